package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"journeyagent/internal/runctl"
)

// startRequest mirrors spec.md §6's /start body. monkeyMode/bareMode are
// additive fields the spec's wire contract doesn't name but
// internal/runctl.Options requires to pick a decision Provider — matching
// the "no implicit globals, every configuration surface is explicit" note.
type startRequest struct {
	URL             string `json:"url"`
	PersonaName     string `json:"personaName"`
	Objective       string `json:"objective"`
	DebugMode       bool   `json:"debugMode"`
	ModelName       string `json:"modelName"`
	TTSEnabled      bool   `json:"ttsEnabled"`
	HeadlessMode    bool   `json:"headlessMode"`
	SaveTrace       bool   `json:"saveTrace"`
	SaveThoughts    bool   `json:"saveThoughts"`
	SaveScreenshots bool   `json:"saveScreenshots"`
	MonkeyMode      bool   `json:"monkeyMode"`
	BareMode        bool   `json:"bareMode"`
}

func (r startRequest) toOptions() runctl.Options {
	return runctl.Options{
		URL:             r.URL,
		PersonaName:     r.PersonaName,
		Objective:       r.Objective,
		DebugMode:       r.DebugMode,
		ModelName:       r.ModelName,
		TTSEnabled:      r.TTSEnabled,
		HeadlessMode:    r.HeadlessMode,
		SaveTrace:       r.SaveTrace,
		SaveThoughts:    r.SaveThoughts,
		SaveScreenshots: r.SaveScreenshots,
		MonkeyMode:      r.MonkeyMode,
		BareMode:        r.BareMode,
	}
}

func (s *Server) handleStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := s.ctl.Start(c.Request.Context(), req.toOptions())
	switch {
	case err == runctl.ErrMissingURL:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err == runctl.ErrAlreadyActive:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, info)
	}
}

func (s *Server) handleStop(c *gin.Context) {
	if err := s.ctl.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) handleModels(c *gin.Context) {
	models, source := listModels(c.Request.Context(), s.cfg, s.logger)
	c.JSON(http.StatusOK, gin.H{"models": models, "source": source})
}

func (s *Server) handleDownloads(c *gin.Context) {
	relative := c.Param("relative")

	root, err := filepath.Abs(s.cfg.ArtifactsDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bad artifacts root"})
		return
	}
	target := filepath.Join(root, filepath.Clean("/"+relative))
	if !strings.HasPrefix(target, root+string(filepath.Separator)) && target != root {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path"})
		return
	}

	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.File(target)
}

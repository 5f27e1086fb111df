// Package httpapi exposes the Run Controller over HTTP: the start/stop/
// models/downloads REST surface spec.md §6 names, plus a websocket upgrade
// that streams internal/runctl's event Hub and accepts the two
// operator-to-agent messages (tts_done, tts_toggle).
package httpapi

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"journeyagent/internal/config"
	"journeyagent/internal/runctl"
)

// Server wraps a gin.Engine bound to one Controller.
type Server struct {
	engine *gin.Engine
	ctl    *runctl.Controller
	cfg    *config.AppConfig
	logger *zap.Logger
}

// NewServer builds the gin engine and registers every route.
func NewServer(cfg *config.AppConfig, ctl *runctl.Controller, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), zapLogger(logger))

	s := &Server{engine: engine, ctl: ctl, cfg: cfg, logger: logger}

	engine.POST("/start", s.handleStart)
	engine.POST("/stop", s.handleStop)
	engine.GET("/models", s.handleModels)
	engine.GET("/downloads/*relative", s.handleDownloads)
	engine.GET("/ws", s.handleWebSocket)

	return s
}

// Handler returns the underlying http.Handler, for use with http.Server or
// in tests via httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe runs the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	return s.engine.Run(s.cfg.ServerAddr)
}

// zapLogger adapts zap into a gin middleware, the way the teacher's CLI
// wires a zap.Logger into cobra rather than using gin's default logger.
func zapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if logger == nil {
			return
		}
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}

func artifactsAbsPath(cfg *config.AppConfig, relative string) (string, error) {
	return filepath.Abs(filepath.Join(cfg.ArtifactsDir, filepath.Clean("/"+relative)))
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journeyagent/internal/config"
	"journeyagent/internal/persona"
	"journeyagent/internal/runctl"
	"journeyagent/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")

	cfg := config.DefaultAppConfig()
	cfg.ArtifactsDir = t.TempDir()

	lib, err := persona.LoadLibrary(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctl := runctl.NewController(cfg, lib, st)
	return NewServer(cfg, ctl, nil)
}

func TestHandleStart_RejectsMissingURL(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStart_RejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStop_OKWhenIdle(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/stop", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "stopped", body["status"])
}

func TestHandleModels_FallsBackWithoutAPIKey(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Models []ModelInfo `json:"models"`
		Source string      `json:"source"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "fallback", body.Source)
	assert.NotEmpty(t, body.Models)
}

func TestHandleDownloads_ServesExistingFile(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.ArtifactsDir, "hello.txt"), []byte("hi"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/downloads/hello.txt", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", rec.Body.String())
}

func TestHandleDownloads_RejectsPathTraversal(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/downloads/../../etc/passwd", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestHandleDownloads_404sOnMissingFile(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/downloads/nope.txt", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

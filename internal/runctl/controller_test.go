package runctl

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journeyagent/internal/config"
	"journeyagent/internal/persona"
	"journeyagent/internal/store"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	cfg := config.DefaultAppConfig()
	cfg.ArtifactsDir = filepath.Join(t.TempDir(), "artifacts")

	lib, err := persona.LoadLibrary(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewController(cfg, lib, st)
}

func TestController_Start_RejectsMissingURL(t *testing.T) {
	c := newTestController(t)

	_, err := c.Start(context.Background(), Options{})

	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestController_Start_RejectsWhenAlreadyActive(t *testing.T) {
	c := newTestController(t)
	c.mu.Lock()
	c.active = &activeRun{runID: "already-running"}
	c.mu.Unlock()

	_, err := c.Start(context.Background(), Options{URL: "https://example.com"})

	assert.ErrorIs(t, err, ErrAlreadyActive)
}

func TestController_IsActive_ReflectsState(t *testing.T) {
	c := newTestController(t)
	assert.False(t, c.IsActive())

	c.mu.Lock()
	c.active = &activeRun{runID: "r1"}
	c.mu.Unlock()

	assert.True(t, c.IsActive())
}

func TestController_ResolvePersona_FallsBackToDefaultWhenLibraryEmpty(t *testing.T) {
	c := newTestController(t)

	p := c.resolvePersona("nonexistent")

	assert.Equal(t, "default", p.Name)
	assert.NotEmpty(t, p.BasePrompt)
}

func TestController_BuildProvider_MonkeyModeNeedsNoAPIKey(t *testing.T) {
	c := newTestController(t)

	provider, err := c.buildProvider(Options{MonkeyMode: true}, persona.Persona{Name: "x", BasePrompt: "y"}, "gemini-2.5-flash")

	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestController_Stop_NoopWhenNothingActive(t *testing.T) {
	c := newTestController(t)

	assert.NoError(t, c.Stop())
}

func TestController_Ack_NoopWhenNoActiveRunOrGate(t *testing.T) {
	c := newTestController(t)

	c.Ack("some-id")

	c.mu.Lock()
	c.active = &activeRun{runID: "r1"}
	c.mu.Unlock()

	c.Ack("some-id")
}

func TestController_ToggleTTS_UpdatesActiveRunOptions(t *testing.T) {
	c := newTestController(t)
	run := &activeRun{runID: "r1", opts: Options{TTSEnabled: true}}
	c.mu.Lock()
	c.active = run
	c.mu.Unlock()

	c.ToggleTTS(false)

	assert.False(t, run.opts.TTSEnabled)
}

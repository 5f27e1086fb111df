package persona

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLibrary(t *testing.T, path, yaml string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
}

func TestLoadLibrary_ParsesPersonasBySlug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	writeLibrary(t, path, `
personas:
  - name: Careful Shopper
    base_prompt: "You compare prices before buying."
  - name: Speedrunner
    base_prompt: "You move fast and skip reading."
    context:
      viewport_width: 1920
      viewport_height: 1080
`)

	lib, err := LoadLibrary(path)
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	p, ok := lib.Get("Careful Shopper")
	require.True(t, ok)
	assert.Equal(t, DefaultContextOptions().ViewportWidth, p.Context.ViewportWidth)

	speed, ok := lib.Get("speedrunner")
	require.True(t, ok)
	assert.Equal(t, 1920, speed.Context.ViewportWidth)

	assert.Len(t, lib.List(), 2)
}

func TestLoadLibrary_MissingFileYieldsEmptyLibrary(t *testing.T) {
	lib, err := LoadLibrary(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	assert.Empty(t, lib.List())
}

func TestLoadLibrary_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	writeLibrary(t, path, "personas:\n  - name: Scout\n    base_prompt: \"explore broadly\"\n")

	lib, err := LoadLibrary(path)
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	reloaded := make(chan struct{}, 1)
	lib.OnReload(func() { reloaded <- struct{}{} })

	writeLibrary(t, path, "personas:\n  - name: Scout\n    base_prompt: \"explore broadly\"\n  - name: Closer\n    base_prompt: \"go straight for checkout\"\n")

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("reload callback was not invoked")
	}

	assert.Len(t, lib.List(), 2)
}

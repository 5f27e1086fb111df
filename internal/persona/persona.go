// Package persona loads the persona library a Run selects from: a
// declarative YAML file describing each persona's base prompt, browsing
// context, and optional TTS voice, hot-reloaded via fsnotify so editing
// the library file takes effect without restarting the server.
package persona

import (
	"fmt"
	"regexp"
	"strings"
)

// ContextOptions are the browser context settings a Persona fixes for the
// duration of a Run.
type ContextOptions struct {
	ViewportWidth    int     `yaml:"viewport_width"`
	ViewportHeight   int     `yaml:"viewport_height"`
	DeviceScale      float64 `yaml:"device_scale"`
	Locale           string  `yaml:"locale"`
	Timezone         string  `yaml:"timezone"`
	ReducedMotion    bool    `yaml:"reduced_motion"`
}

// VoiceConfig selects a TTS voice for a persona, passed through to
// genai's PrebuiltVoiceConfig.
type VoiceConfig struct {
	Name         string `yaml:"name"`
	LanguageCode string `yaml:"language_code"`
}

// Persona is immutable for the duration of a Run.
type Persona struct {
	Name       string          `yaml:"name"`
	BasePrompt string          `yaml:"base_prompt"`
	Context    ContextOptions  `yaml:"context"`
	Voice      *VoiceConfig    `yaml:"voice,omitempty"`
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives the run-id-friendly identifier spec.md §6 requires:
// lowercase, non-alphanumeric runs collapsed to a single hyphen, trimmed
// of leading/trailing hyphens.
func Slug(name string) string {
	s := nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// DefaultContextOptions mirrors a common laptop viewport, used when a
// persona file omits the context block.
func DefaultContextOptions() ContextOptions {
	return ContextOptions{
		ViewportWidth:  1440,
		ViewportHeight: 900,
		DeviceScale:    1,
		Locale:         "en-US",
		Timezone:       "UTC",
	}
}

func (p *Persona) applyDefaults() {
	if p.Context.ViewportWidth == 0 {
		p.Context.ViewportWidth = DefaultContextOptions().ViewportWidth
	}
	if p.Context.ViewportHeight == 0 {
		p.Context.ViewportHeight = DefaultContextOptions().ViewportHeight
	}
	if p.Context.DeviceScale == 0 {
		p.Context.DeviceScale = DefaultContextOptions().DeviceScale
	}
	if p.Context.Locale == "" {
		p.Context.Locale = DefaultContextOptions().Locale
	}
	if p.Context.Timezone == "" {
		p.Context.Timezone = DefaultContextOptions().Timezone
	}
}

func (p Persona) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("persona name must not be empty")
	}
	if strings.TrimSpace(p.BasePrompt) == "" {
		return fmt.Errorf("persona %q: base prompt must not be empty", p.Name)
	}
	return nil
}

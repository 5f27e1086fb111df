// Package config loads the agent's process-wide configuration — server
// address, artifact/persona paths, default model/voice, and the timeout
// ceilings in timeouts.go — via viper, with fsnotify-driven hot reload so
// an operator can retune timeouts or point at a new persona library
// without restarting a run in progress.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"journeyagent/internal/logging"
)

// AppConfig is the full process configuration.
type AppConfig struct {
	ServerAddr         string   `mapstructure:"server_addr"`
	ArtifactsDir       string   `mapstructure:"artifacts_dir"`
	PersonaLibraryPath string   `mapstructure:"persona_library_path"`
	DefaultModel       string   `mapstructure:"default_model"`
	DefaultVoice       string   `mapstructure:"default_voice"`
	APIKeyEnvVar       string   `mapstructure:"api_key_env_var"`
	Timeouts           Timeouts `mapstructure:"timeouts"`
}

// DefaultAppConfig returns the configuration used when no config file is
// present, matching the teacher's DefaultConfig()-as-baseline idiom.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		ServerAddr:         ":8088",
		ArtifactsDir:       "artifacts",
		PersonaLibraryPath: "personas",
		DefaultModel:       "gemini-2.5-flash",
		DefaultVoice:       "",
		APIKeyEnvVar:       "GEMINI_API_KEY",
		Timeouts:           DefaultTimeouts(),
	}
}

// Watcher owns the live viper instance and fans config changes out to
// registered callbacks.
type Watcher struct {
	v         *viper.Viper
	callbacks []func(*AppConfig)
}

// Load reads configuration from path (YAML/JSON/TOML, viper auto-detects
// by extension), falling back to defaults when the file is absent, and
// starts watching the file for changes. Environment variables matching
// mapstructure keys (upper-cased, `.` replaced with `_`) always win.
func Load(path string) (*AppConfig, *Watcher, error) {
	v := viper.New()
	cfg := DefaultAppConfig()
	setDefaults(v, cfg)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			logging.BootWarn("config file %s not found, using defaults", path)
		}
	}

	loaded := DefaultAppConfig()
	if err := v.Unmarshal(loaded); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	SetTimeouts(loaded.Timeouts)
	logging.Boot("config loaded: server=%s model=%s artifacts=%s", loaded.ServerAddr, loaded.DefaultModel, loaded.ArtifactsDir)

	w := &Watcher{v: v}
	if path != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			reloaded := DefaultAppConfig()
			if err := v.Unmarshal(reloaded); err != nil {
				logging.BootError("config hot reload failed: %v", err)
				return
			}
			SetTimeouts(reloaded.Timeouts)
			logging.Boot("config hot reloaded from %s", e.Name)
			for _, cb := range w.callbacks {
				cb(reloaded)
			}
		})
		v.WatchConfig()
	}

	return loaded, w, nil
}

// OnReload registers a callback invoked whenever the watched config file
// changes, after the new values have already taken effect globally.
func (w *Watcher) OnReload(fn func(*AppConfig)) {
	w.callbacks = append(w.callbacks, fn)
}

func setDefaults(v *viper.Viper, cfg *AppConfig) {
	v.SetDefault("server_addr", cfg.ServerAddr)
	v.SetDefault("artifacts_dir", cfg.ArtifactsDir)
	v.SetDefault("persona_library_path", cfg.PersonaLibraryPath)
	v.SetDefault("default_model", cfg.DefaultModel)
	v.SetDefault("default_voice", cfg.DefaultVoice)
	v.SetDefault("api_key_env_var", cfg.APIKeyEnvVar)
	v.SetDefault("timeouts.som_scan", cfg.Timeouts.SoMScan)
	v.SetDefault("timeouts.stability_wait", cfg.Timeouts.StabilityWait)
	v.SetDefault("timeouts.navigation", cfg.Timeouts.Navigation)
	v.SetDefault("timeouts.decision_retry_budget", cfg.Timeouts.DecisionRetryBudget)
	v.SetDefault("timeouts.speech_watchdog_min", cfg.Timeouts.SpeechWatchdogMin)
	v.SetDefault("timeouts.speech_watchdog_max", cfg.Timeouts.SpeechWatchdogMax)
	v.SetDefault("timeouts.turn_settle", cfg.Timeouts.TurnSettle)
	v.SetDefault("timeouts.failure_backoff", cfg.Timeouts.FailureBackoff)
}

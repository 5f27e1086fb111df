package config

import "time"

// Timeouts centralizes every per-step ceiling the control loop enforces
// independently, so no single external call (perception, decision,
// navigation, speech) can hang a Run indefinitely.
//
// The shortest timeout in a chain wins: a context deadline always cuts a
// call short before any client-level timeout gets the chance to.
type Timeouts struct {
	// SoMScan bounds one Set-of-Marks discovery pass, including the
	// MutationObserver stability wait.
	SoMScan time.Duration `mapstructure:"som_scan"`

	// StabilityWait is loaded and reloaded with the other ceilings, but
	// discovery does not read it: the in-page stability observer in
	// internal/somperception uses a fixed 3 s cap.
	StabilityWait time.Duration `mapstructure:"stability_wait"`

	// Navigation bounds a goto/navigation suspension point.
	Navigation time.Duration `mapstructure:"navigation"`

	// DecisionRetryBudget is loaded and reloaded with the other ceilings,
	// but the Decision Engine does not read it: its retry sequence is
	// bounded only by its attempt count, its backoff and the caller's ctx.
	DecisionRetryBudget time.Duration `mapstructure:"decision_retry_budget"`

	// SpeechWatchdogMin/Max bound the Speech Gate's per-request wait,
	// computed per-text by watchdogFor in internal/speech.
	SpeechWatchdogMin time.Duration `mapstructure:"speech_watchdog_min"`
	SpeechWatchdogMax time.Duration `mapstructure:"speech_watchdog_max"`

	// TurnSettle is the pause after executing an action and before the
	// next loop turn begins, letting the page settle visually.
	TurnSettle time.Duration `mapstructure:"turn_settle"`

	// FailureBackoff is the pause after a caught exception before the
	// next turn is attempted.
	FailureBackoff time.Duration `mapstructure:"failure_backoff"`
}

// DefaultTimeouts returns the ceilings spec.md §5 names.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		SoMScan:             5 * time.Second,
		StabilityWait:       3 * time.Second,
		Navigation:          30 * time.Second,
		DecisionRetryBudget: 4 * time.Second,
		SpeechWatchdogMin:   7 * time.Second,
		SpeechWatchdogMax:   45 * time.Second,
		TurnSettle:          1 * time.Second,
		FailureBackoff:      5 * time.Second,
	}
}

// FastTimeouts tightens every ceiling, for Monkey-mode or CI smoke runs
// where a hung upstream should surface quickly rather than eat the
// default budget.
func FastTimeouts() Timeouts {
	return Timeouts{
		SoMScan:             2 * time.Second,
		StabilityWait:       1 * time.Second,
		Navigation:          10 * time.Second,
		DecisionRetryBudget: 2 * time.Second,
		SpeechWatchdogMin:   3 * time.Second,
		SpeechWatchdogMax:   15 * time.Second,
		TurnSettle:          300 * time.Millisecond,
		FailureBackoff:      1 * time.Second,
	}
}

var globalTimeouts = DefaultTimeouts()

// GetTimeouts returns the process-wide timeout configuration.
func GetTimeouts() Timeouts {
	return globalTimeouts
}

// SetTimeouts updates the process-wide timeout configuration; called at
// startup after the config file (and any env overrides) loads, and again
// on every config hot reload.
func SetTimeouts(t Timeouts) {
	globalTimeouts = t
}

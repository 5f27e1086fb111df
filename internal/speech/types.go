// Package speech implements the Speech Gate: a single-slot blocking
// rendezvous between the Run Controller and whatever operator surface
// plays audio back, so narration never overlaps itself and a turn never
// proceeds while a thought is still being spoken.
package speech

import "time"

// Request is one outstanding TTS request the Run Controller is waiting on.
type Request struct {
	ID       string
	Text     string
	Audio    []byte // WAV-encoded
	Watchdog time.Duration
}

// minWatchdog, maxWatchdog, and perCharacter implement the default
// watchdog timeout formula: max(7s, min(45s, len(text)*70ms)). A Gate
// built with NewGate uses these; NewGateWithBounds lets a caller source
// the min/max from config.Timeouts instead.
const (
	minWatchdog  = 7 * time.Second
	maxWatchdog  = 45 * time.Second
	perCharacter = 70 * time.Millisecond
)

func watchdogFor(text string, min, max time.Duration) time.Duration {
	d := time.Duration(len(text)) * perCharacter
	if d > max {
		d = max
	}
	if d < min {
		d = min
	}
	return d
}

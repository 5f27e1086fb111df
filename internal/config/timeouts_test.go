package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTimeouts_MatchesSpecCeilings(t *testing.T) {
	dt := DefaultTimeouts()
	assert.Equal(t, 5*time.Second, dt.SoMScan)
	assert.Equal(t, 3*time.Second, dt.StabilityWait)
	assert.Equal(t, 30*time.Second, dt.Navigation)
}

func TestFastTimeouts_AreStrictlyTighterThanDefaults(t *testing.T) {
	d := DefaultTimeouts()
	f := FastTimeouts()

	assert.Less(t, f.SoMScan, d.SoMScan)
	assert.Less(t, f.Navigation, d.Navigation)
	assert.Less(t, f.SpeechWatchdogMax, d.SpeechWatchdogMax)
}

func TestGetSetTimeouts_RoundTrips(t *testing.T) {
	original := GetTimeouts()
	defer SetTimeouts(original)

	SetTimeouts(FastTimeouts())
	assert.Equal(t, FastTimeouts(), GetTimeouts())
}

package somperception

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"journeyagent/internal/browserx"
	"journeyagent/internal/logging"
)

// MaxMarks is the hard cap on accepted candidates per observation.
const MaxMarks = 220

// ceiling is the hard time budget for one discovery pass; on timeout the
// caller falls back to a raw screenshot per spec.
const ceiling = 5 * time.Second

// Discover runs the Set-of-Marks algorithm against the session's active
// page and returns the observation, or an error if the ceiling is exceeded
// or the injected script failed.
func Discover(ctx context.Context, session *browserx.Session) (*PageObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	timer := logging.StartTimer(logging.CategoryPerception, "som_discover")
	defer timer.Stop()

	res, err := session.Eval(ctx, somScript, MaxMarks)
	if err != nil {
		return nil, fmt.Errorf("som injection failed: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("som injection returned no result")
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal som result: %w", err)
	}

	var rr rawResult
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("decode som result: %w", err)
	}

	obs := rr.toObservation()
	logging.PerceptionDebug("som discovered %d marks", obs.Count)
	return &obs, nil
}

// SetOverlayVisible toggles the overlay without re-running discovery.
func SetOverlayVisible(ctx context.Context, session *browserx.Session, visible bool) error {
	_, err := session.Eval(ctx, toggleOverlayScript, visible)
	return err
}

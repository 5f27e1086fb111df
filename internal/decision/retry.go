package decision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"journeyagent/internal/logging"
)

// retryConfig configures the decision-round retry policy. The attempt/
// backoff/ctx-done skeleton mirrors the researcher shard's WithRetry; only
// the backoff multiplier is swapped from exponential to linear, per turn
// budget constraints a vision call runs under.
type retryConfig struct {
	MaxAttempts int
	Step        time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{MaxAttempts: 3, Step: 1200 * time.Millisecond}
}

// calculateBackoff computes linear backoff: step * attempt.
func calculateBackoff(cfg retryConfig, attempt int) time.Duration {
	return time.Duration(int64(cfg.Step) * int64(attempt))
}

// generateFunc is one attempt at producing a raw model response.
type generateFunc func(ctx context.Context) (string, error)

// withRetry runs fn up to cfg.MaxAttempts times, sleeping a linear backoff
// between attempts on failure. When every attempt fails it returns the last
// error wrapped; the caller (GenAIProvider.Decide) turns that into a wait
// Decision via fallbackDecision, since a decision round must always yield
// some Decision for the control loop to act on.
func withRetry(ctx context.Context, cfg retryConfig, operation string, fn generateFunc) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		resp, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logging.DecisionDebug("retry succeeded for %s on attempt %d", operation, attempt)
			}
			return resp, nil
		}

		lastErr = err
		logging.DecisionWarn("attempt %d/%d for %s failed: %v", attempt, cfg.MaxAttempts, operation, err)

		if attempt < cfg.MaxAttempts {
			backoff := calculateBackoff(cfg, attempt)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return "", fmt.Errorf("decision round exhausted retries for %s: %w", operation, lastErr)
}

// fallbackDecision builds the wait Decision used when every retry attempt
// for a decision round has failed.
func fallbackDecision(err error) Decision {
	msg := "I couldn't reach the decision model after several attempts"
	if isRateLimited(err) {
		msg = "The decision model is rate-limited right now"
	}
	return Decision{
		Action:  ActionWait,
		Thought: msg + "; I'll wait a moment and look again.",
	}
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, sub := range []string{"429", "503", "rate limit", "resource exhausted", "resource_exhausted", "unavailable"} {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

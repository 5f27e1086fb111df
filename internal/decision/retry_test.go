package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBackoff_IsLinearInAttempt(t *testing.T) {
	cfg := retryConfig{MaxAttempts: 3, Step: 1200 * time.Millisecond}
	assert.Equal(t, 1200*time.Millisecond, calculateBackoff(cfg, 1))
	assert.Equal(t, 2400*time.Millisecond, calculateBackoff(cfg, 2))
	assert.Equal(t, 3600*time.Millisecond, calculateBackoff(cfg, 3))
}

func TestWithRetry_SucceedsWithoutExhaustingAttempts(t *testing.T) {
	calls := 0
	cfg := retryConfig{MaxAttempts: 3, Step: time.Millisecond}
	resp, err := withRetry(context.Background(), cfg, "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_ExhaustsAndReturnsError(t *testing.T) {
	cfg := retryConfig{MaxAttempts: 3, Step: time.Millisecond}
	calls := 0
	_, err := withRetry(context.Background(), cfg, "test", func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("permanent")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestFallbackDecision_IsAlwaysWait(t *testing.T) {
	d := fallbackDecision(errors.New("boom"))
	assert.Equal(t, ActionWait, d.Action)
	assert.NotEmpty(t, d.Thought)
}

func TestFallbackDecision_AcknowledgesRateLimit(t *testing.T) {
	d := fallbackDecision(errors.New("429 Too Many Requests"))
	assert.Contains(t, d.Thought, "rate-limited")
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(errors.New("status 503 unavailable")))
	assert.True(t, isRateLimited(errors.New("RESOURCE_EXHAUSTED")))
	assert.False(t, isRateLimited(errors.New("invalid argument")))
}

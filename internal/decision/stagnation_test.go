package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func entry(action Action, target string) HistoryEntry {
	return HistoryEntry{Action: action, TargetID: target, Success: true, Timestamp: time.Now()}
}

func TestStagnationTracker_IncrementsOnRepeatedNarrowActions(t *testing.T) {
	var s StagnationTracker

	// 10 actionable entries collapsing into 2 distinct (action, target) pairs.
	history := []HistoryEntry{
		entry(ActionClick, "3"), entry(ActionClick, "3"), entry(ActionClick, "3"),
		entry(ActionClick, "3"), entry(ActionScroll, ""), entry(ActionClick, "3"),
		entry(ActionClick, "3"), entry(ActionScroll, ""), entry(ActionClick, "3"),
		entry(ActionClick, "3"),
	}

	got := s.Observe(history)
	assert.Equal(t, 1, got)
}

func TestStagnationTracker_DecrementsOnVariedHistory(t *testing.T) {
	var s StagnationTracker
	s.counter = 2

	varied := []HistoryEntry{
		entry(ActionClick, "1"), entry(ActionClick, "2"), entry(ActionClick, "3"),
		entry(ActionClick, "4"), entry(ActionClick, "5"), entry(ActionClick, "6"),
		entry(ActionClick, "7"), entry(ActionClick, "8"), entry(ActionClick, "9"),
	}

	got := s.Observe(varied)
	assert.Equal(t, 1, got)
}

func TestStagnationTracker_DoesNotGoBelowZero(t *testing.T) {
	var s StagnationTracker
	s.Observe(nil)
	assert.Equal(t, 0, s.Counter())
}

func TestStagnationTracker_ExitsAtThreeConsecutiveStagnantRounds(t *testing.T) {
	var s StagnationTracker
	repeating := []HistoryEntry{
		entry(ActionClick, "3"), entry(ActionClick, "3"), entry(ActionClick, "3"),
		entry(ActionClick, "3"), entry(ActionClick, "3"), entry(ActionClick, "3"),
		entry(ActionClick, "3"), entry(ActionClick, "3"),
	}

	s.Observe(repeating)
	s.Observe(repeating)
	assert.False(t, s.Stagnant())
	s.Observe(repeating)
	assert.True(t, s.Stagnant())
}

func TestLoopGuardHint_TriggersOnRepeatedPair(t *testing.T) {
	history := []HistoryEntry{
		entry(ActionClick, "5"), entry(ActionScroll, ""), entry(ActionClick, "5"),
	}
	assert.NotEmpty(t, loopGuardHint(history))
}

func TestLoopGuardHint_EmptyWhenNoRepeats(t *testing.T) {
	history := []HistoryEntry{
		entry(ActionClick, "1"), entry(ActionClick, "2"), entry(ActionClick, "3"),
	}
	assert.Empty(t, loopGuardHint(history))
}

func TestLoopGuardHint_OnlyLooksAtLastEightEntries(t *testing.T) {
	history := []HistoryEntry{
		entry(ActionClick, "9"), entry(ActionClick, "9"), // outside the 8-entry window below
		entry(ActionClick, "1"), entry(ActionClick, "2"), entry(ActionClick, "3"),
		entry(ActionClick, "4"), entry(ActionClick, "5"), entry(ActionClick, "6"),
		entry(ActionClick, "7"), entry(ActionClick, "8"),
	}
	assert.Empty(t, loopGuardHint(history))
}

package decision

// StagnationTracker implements the anti-loop counter: it watches the last
// ten history entries and increments a counter whenever at least eight of
// them are actionable and collapse into three or fewer distinct
// (action, targetId) pairs. The counter decrements (floored at zero)
// otherwise, and the run should terminate once it reaches three.
type StagnationTracker struct {
	counter int
}

// ExitThreshold is the counter value at which the control loop must stop.
const ExitThreshold = 3

// Observe updates the counter from the given history (only the last ten
// entries are considered) and returns the updated counter value.
func (s *StagnationTracker) Observe(history []HistoryEntry) int {
	window := history
	if len(window) > 10 {
		window = window[len(window)-10:]
	}

	actionable := 0
	unique := make(map[string]bool)
	for _, h := range window {
		if !h.Actionable() {
			continue
		}
		actionable++
		unique[h.key()] = true
	}

	if actionable >= 8 && len(unique) <= 3 {
		s.counter++
	} else if s.counter > 0 {
		s.counter--
	}

	return s.counter
}

// Counter returns the current stagnation counter without observing.
func (s *StagnationTracker) Counter() int {
	return s.counter
}

// Stagnant reports whether the tracker has reached the exit threshold.
func (s *StagnationTracker) Stagnant() bool {
	return s.counter >= ExitThreshold
}

// loopGuardHint inspects the last eight history entries, grouped by
// (action, targetId); if any group repeats twice or more it returns a short
// anti-loop paragraph to splice into the next prompt, otherwise "".
func loopGuardHint(history []HistoryEntry) string {
	window := history
	if len(window) > 8 {
		window = window[len(window)-8:]
	}

	counts := make(map[string]int)
	for _, h := range window {
		counts[h.key()]++
	}

	repeated := false
	for _, c := range counts {
		if c >= 2 {
			repeated = true
			break
		}
	}
	if !repeated {
		return ""
	}

	return "You have repeated the same action against the same target recently with no apparent progress. " +
		"Do not repeat it again: choose a different target, a different action, or conclude the objective is unreachable and stop."
}

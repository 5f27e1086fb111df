// Package decision turns a page observation into the next action to take.
// It is deliberately polymorphic: the Run Controller talks to a Provider
// interface, and swaps in a vision-LLM-backed implementation, a random
// Monkey-mode implementation, or a neutral Bare-mode implementation without
// any other package noticing which one is wired in.
package decision

import (
	"context"
	"time"

	"journeyagent/internal/somperception"
)

// Action is the enumerated action a Decision may carry.
type Action string

const (
	ActionClick  Action = "click"
	ActionScroll Action = "scroll"
	ActionType   Action = "type"
	ActionWait   Action = "wait"
	ActionDone   Action = "done"
)

// Decision is the normalized output of a decision round, regardless of which
// Provider produced it.
type Decision struct {
	Action   Action `json:"action"`
	TargetID string `json:"targetId,omitempty"`
	Value    string `json:"value,omitempty"`
	Thought  string `json:"thought"`
}

// HistoryEntry records one executed turn for stagnation and loop-guard
// analysis, and for the rolling context fed back into future prompts.
type HistoryEntry struct {
	Action    Action
	TargetID  string
	Value     string
	Thought   string
	Success   bool
	Timestamp time.Time
}

// Actionable reports whether the entry represents an action that could
// repeat in a loop (click/scroll/type), as opposed to wait/done.
func (h HistoryEntry) Actionable() bool {
	return h.Action == ActionClick || h.Action == ActionScroll || h.Action == ActionType
}

// key is the (action, targetId) pair used for loop detection.
func (h HistoryEntry) key() string {
	return string(h.Action) + "|" + h.TargetID
}

// FailedTargetLedger counts how many times a click/type against a given
// mark id has failed (element missing, stale, out of viewport, etc.), keyed
// by mark id. The Decision Engine surfaces these counts to steer the model
// away from targets that keep failing.
type FailedTargetLedger map[string]int

// Charge increments the failure count for a target id.
func (l FailedTargetLedger) Charge(targetID string) {
	if targetID == "" {
		return
	}
	l[targetID]++
}

// Request bundles everything a Provider needs to produce one Decision.
type Request struct {
	Objective   string
	URL         string
	Title       string
	Observation somperception.PageObservation
	Screenshot  []byte
	History     []HistoryEntry
	Failed      FailedTargetLedger
	PersonaBase string
}

// Provider is the polymorphism seam: the Run Controller depends on this
// interface only, never on a concrete LLM client, so that vision, monkey,
// and bare modes are interchangeable.
type Provider interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

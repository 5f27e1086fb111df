package decision

import (
	"context"
	"math/rand"
	"strconv"

	"journeyagent/internal/somperception"
)

// MonkeyProvider ignores the model entirely and picks a weighted-random
// action each turn: a cheap, always-available stress-test mode that still
// respects the page's current marks.
type MonkeyProvider struct {
	rng *rand.Rand
}

// NewMonkeyProvider creates a Monkey-mode Provider. rng may be nil, in which
// case a new source seeded with 1 is used, so the action sequence repeats
// from run to run.
func NewMonkeyProvider(rng *rand.Rand) *MonkeyProvider {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &MonkeyProvider{rng: rng}
}

// Decide implements Provider with weighted random actions: wait 0.16,
// scroll 0.20, type-into-a-random-input 0.20 (when inputs exist), and
// otherwise click-a-random-mark for the remainder. With no marks at all it
// always scrolls, deterministically, to look for more.
func (m *MonkeyProvider) Decide(_ context.Context, req Request) (Decision, error) {
	inputs := filterFillable(req.Observation)
	marks := req.Observation.Elements

	if len(marks) == 0 {
		return Decision{Action: ActionScroll, Thought: "Nothing marked on the page; scrolling to look for more."}, nil
	}

	roll := m.rng.Float64()
	switch {
	case roll < 0.16:
		return Decision{Action: ActionWait, Thought: "Taking a random pause."}, nil
	case roll < 0.36:
		return Decision{Action: ActionScroll, Thought: "Scrolling at random to explore the page."}, nil
	case roll < 0.56 && len(inputs) > 0:
		target := inputs[m.rng.Intn(len(inputs))]
		return Decision{
			Action:   ActionType,
			TargetID: idOf(target),
			Value:    randomWord(m.rng),
			Thought:  "Typing random text into a random input field.",
		}, nil
	default:
		target := marks[m.rng.Intn(len(marks))]
		return Decision{
			Action:   ActionClick,
			TargetID: idOf(target),
			Thought:  "Clicking a random marked element.",
		}, nil
	}
}

func idOf(c somperception.SoMCandidate) string {
	return strconv.Itoa(c.ID)
}

func filterFillable(obs somperception.PageObservation) []somperception.SoMCandidate {
	var out []somperception.SoMCandidate
	for _, c := range obs.Elements {
		if c.Tag == "input" || c.Tag == "textarea" || c.Role == "textbox" || c.Role == "searchbox" {
			out = append(out, c)
		}
	}
	return out
}

var monkeyWords = []string{"hello", "test", "foo", "bar", "asdf", "qwerty", "banana", "42"}

func randomWord(rng *rand.Rand) string {
	return monkeyWords[rng.Intn(len(monkeyWords))]
}

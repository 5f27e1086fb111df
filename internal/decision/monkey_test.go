package decision

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journeyagent/internal/somperception"
)

func TestMonkeyProvider_NoMarksAlwaysScrolls(t *testing.T) {
	p := NewMonkeyProvider(rand.New(rand.NewSource(42)))
	for i := 0; i < 20; i++ {
		d, err := p.Decide(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, ActionScroll, d.Action)
	}
}

func TestMonkeyProvider_NeverPicksDone(t *testing.T) {
	obs := somperception.PageObservation{Elements: []somperception.SoMCandidate{
		{ID: 0, Tag: "button", Text: "Go"},
		{ID: 1, Tag: "input", Role: "textbox"},
	}}
	p := NewMonkeyProvider(rand.New(rand.NewSource(7)))
	for i := 0; i < 50; i++ {
		d, err := p.Decide(context.Background(), Request{Observation: obs})
		require.NoError(t, err)
		assert.NotEqual(t, ActionDone, d.Action)
		assert.NotEmpty(t, d.Thought)
	}
}

func TestMonkeyProvider_TargetsReferExistingMarkIDs(t *testing.T) {
	obs := somperception.PageObservation{Elements: []somperception.SoMCandidate{
		{ID: 3, Tag: "button", Text: "Go"},
	}}
	p := NewMonkeyProvider(rand.New(rand.NewSource(99)))
	for i := 0; i < 20; i++ {
		d, err := p.Decide(context.Background(), Request{Observation: obs})
		require.NoError(t, err)
		if d.Action == ActionClick || d.Action == ActionType {
			assert.Equal(t, "3", d.TargetID)
		}
	}
}

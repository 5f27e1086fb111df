package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision_PlainJSON(t *testing.T) {
	d, err := parseDecision(`{"action":"click","targetId":"7","thought":"clicking the login button"}`)
	require.NoError(t, err)
	assert.Equal(t, ActionClick, d.Action)
	assert.Equal(t, "7", d.TargetID)
	assert.Equal(t, "clicking the login button", d.Thought)
}

func TestParseDecision_MarkdownFencedAndSurroundingProse(t *testing.T) {
	resp := "Sure, here's my decision:\n```json\n{\"action\": \"type\", \"targetId\": 3, \"value\": \"hello\", \"thought\": \"filling search box\"}\n```\nLet me know if that works."
	d, err := parseDecision(resp)
	require.NoError(t, err)
	assert.Equal(t, ActionType, d.Action)
	assert.Equal(t, "3", d.TargetID)
	assert.Equal(t, "hello", d.Value)
}

func TestParseDecision_NoJSON(t *testing.T) {
	_, err := parseDecision("I think we should click the button.")
	assert.Error(t, err)
}

func TestNormalize_StopAndFailAliasToDone(t *testing.T) {
	for _, word := range []string{"stop", "fail", "done", "finished", "COMPLETE"} {
		d := normalize(rawDecision{Action: word, Thought: "x"})
		assert.Equal(t, ActionDone, d.Action, "word=%s", word)
	}
}

func TestNormalize_UnknownActionFallsBackToWait(t *testing.T) {
	d := normalize(rawDecision{Action: "teleport", Thought: "x"})
	assert.Equal(t, ActionWait, d.Action)
}

func TestNormalize_EmptyThoughtIsNeverEmpty(t *testing.T) {
	d := normalize(rawDecision{Action: "wait"})
	assert.NotEmpty(t, d.Thought)
}

func TestNormalize_ValueAliasing(t *testing.T) {
	d := normalize(rawDecision{Action: "type", InputValue: "aliased", Thought: "x"})
	assert.Equal(t, "aliased", d.Value)
}

func TestNormalize_TargetIDStringifiesNumericJSON(t *testing.T) {
	d := normalize(rawDecision{Action: "click", MarkID: float64(12), Thought: "x"})
	assert.Equal(t, "12", d.TargetID)
}

package trace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReplayScript_EmitsInitialGoto(t *testing.T) {
	script := GenerateReplayScript(ReplayMeta{RunID: "run-1", StartURL: "https://example.com"}, nil)
	assert.Contains(t, script, `await harness.goto("https://example.com");`)
}

func TestGenerateReplayScript_EscapesStringLiterals(t *testing.T) {
	steps := []TraceStep{
		{Action: "type", Selector: `input[name="q"]`, Value: "hello \"world\"\nnext line"},
	}
	script := GenerateReplayScript(ReplayMeta{StartURL: "https://example.com"}, steps)

	assert.Contains(t, script, `await harness.fill("input[name=\"q\"]", "hello \"world\"\nnext line");`)
}

func TestGenerateReplayScript_ClickPrefersSelectorOverCoordinates(t *testing.T) {
	steps := []TraceStep{
		{Action: "click", Selector: "#submit", HasCoords: true, X: 10, Y: 20},
	}
	script := GenerateReplayScript(ReplayMeta{}, steps)

	assert.Contains(t, script, `harness.clickSelector("#submit")`)
	assert.NotContains(t, script, "clickAt")
}

func TestGenerateReplayScript_ClickFallsBackToCoordinates(t *testing.T) {
	steps := []TraceStep{{Action: "click", HasCoords: true, X: 12.5, Y: 40}}
	script := GenerateReplayScript(ReplayMeta{}, steps)

	assert.Contains(t, script, "harness.clickAt(12.50, 40.00)")
}

func TestGenerateReplayScript_TabSwitchAndScrollAndWait(t *testing.T) {
	steps := []TraceStep{
		{Action: "scroll", X: 0, Y: 400},
		{Action: "wait", WaitMS: 3000},
		{Action: "tab-switch"},
	}
	script := GenerateReplayScript(ReplayMeta{}, steps)

	for _, want := range []string{"harness.scroll(0.00, 400.00)", "harness.wait(3000)", "harness.tabSwitchToLastOpened()"} {
		assert.Contains(t, script, want)
	}
}

func TestGenerateReplayScript_PreservesStepOrder(t *testing.T) {
	steps := []TraceStep{
		{Action: "goto", URL: "https://a.test"},
		{Action: "wait", WaitMS: 1000},
		{Action: "goto", URL: "https://b.test"},
	}
	script := GenerateReplayScript(ReplayMeta{StartURL: "https://start.test"}, steps)

	first := strings.Index(script, "https://a.test")
	second := strings.Index(script, "harness.wait(1000)")
	third := strings.Index(script, "https://b.test")
	assert.True(t, first < second && second < third, "steps must be emitted in recorded order")
}

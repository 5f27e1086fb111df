package trace

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() snapshot {
	now := time.Now()
	return snapshot{
		runID:     "run-1",
		persona:   "scout",
		objective: "find the pricing page",
		modelName: "gemini-2.5-flash",
		startURL:  "https://example.com",
		finalURL:  "https://example.com/pricing",
		steps: []StepRecord{
			{ID: 0, Timestamp: now, Action: "click", TargetID: "3", Thought: "clicking nav", URL: "https://example.com"},
			{ID: 1, Timestamp: now.Add(time.Second), Action: "click", TargetID: "9, with comma", Value: "has \"quotes\"", Thought: "line one\nline two", URL: "https://example.com/pricing"},
		},
		thoughts: []ThoughtRecord{{Timestamp: now, Message: "looking for pricing", URL: "https://example.com"}},
		errors:   nil,
	}
}

func TestBuildReportJSON_CountsActionsAndDuration(t *testing.T) {
	s := sampleSnapshot()
	report := buildReportJSON(s)

	assert.Equal(t, 2, report.Metrics.TotalSteps)
	assert.Equal(t, 2, report.Metrics.ActionCounts["click"])
	assert.Equal(t, 1.0, report.Metrics.DurationSeconds)
}

func TestBuildStepsCSV_HasExactHeader(t *testing.T) {
	data, err := buildStepsCSV(sampleSnapshot())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\r\n"), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "id,timestamp,action,targetId,value,thought,url", lines[0])
}

func TestBuildStepsCSV_QuotesFieldsWithSpecialCharacters(t *testing.T) {
	data, err := buildStepsCSV(sampleSnapshot())
	require.NoError(t, err)

	csvText := string(data)
	assert.Contains(t, csvText, `"9, with comma"`)
	assert.Contains(t, csvText, `"has ""quotes"""`)
	assert.Contains(t, csvText, "\"line one\nline two\"")
}

func TestBuildReportHTML_IncludesSectionsAndEscapesThoughts(t *testing.T) {
	s := sampleSnapshot()
	report := buildReportJSON(s)
	htmlDoc := buildReportHTML(s, report, []string{"data:image/png;base64,AAAA"})

	for _, want := range []string{"<h1>Run report", "Action breakdown", "Last thoughts", "Screenshots", "data:image/png;base64,AAAA"} {
		assert.Contains(t, htmlDoc, want)
	}
}

func TestLastN_ReturnsOnlyTrailingEntries(t *testing.T) {
	items := make([]ThoughtRecord, 25)
	for i := range items {
		items[i] = ThoughtRecord{Message: string(rune('a' + i))}
	}
	last := lastN(items, 20)
	assert.Len(t, last, 20)
	assert.Equal(t, items[5], last[0])
}

func TestFirstN_CapsAtLimit(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"a", "b"}, firstN(items, 2))
	assert.Equal(t, items, firstN(items, 10))
}

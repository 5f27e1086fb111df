package decision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"journeyagent/internal/somperception"
)

func TestFormatMark_IncludesRoleWhenPresent(t *testing.T) {
	m := somperception.SoMCandidate{ID: 4, Tag: "div", Role: "button", Text: "Add to cart"}
	out := formatMark(m)
	assert.Equal(t, `#4 <div role=button> "Add to cart"`, out)
}

func TestFormatMark_OmitsRoleAttrWhenAbsent(t *testing.T) {
	m := somperception.SoMCandidate{ID: 1, Tag: "a", Text: "Home"}
	out := formatMark(m)
	assert.Equal(t, `#1 <a> "Home"`, out)
}

func TestTopMarks_CapsAtTwentyHighestScoring(t *testing.T) {
	var els []somperception.SoMCandidate
	for i := 0; i < 30; i++ {
		els = append(els, somperception.SoMCandidate{ID: i, Score: i % 5})
	}
	obs := somperception.PageObservation{Count: len(els), Elements: els}
	top := topMarks(obs)
	assert.Len(t, top, maxMarkLines)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Score, top[i].Score)
	}
}

func TestMenuLabels_MatchesNavKeywordsAndObjectiveWords(t *testing.T) {
	obs := somperception.PageObservation{Elements: []somperception.SoMCandidate{
		{ID: 0, Text: "Home"},
		{ID: 1, Text: "Shipping Policy"},
		{ID: 2, Text: "Sneakers"},
		{ID: 3, Text: "Unrelated filler text"},
	}}
	got := menuLabels("buy red sneakers", obs)
	var texts []string
	for _, g := range got {
		texts = append(texts, g.Text)
	}
	assert.Contains(t, texts, "Home")
	assert.Contains(t, texts, "Sneakers")
	assert.NotContains(t, texts, "Unrelated filler text")
}

func TestBuildPrompt_IncludesOutputContractAndObjective(t *testing.T) {
	req := Request{
		Objective: "find the pricing page",
		URL:       "https://example.com",
		Title:     "Example",
	}
	p := buildPrompt(req, "persona text")
	assert.True(t, strings.Contains(p, "find the pricing page"))
	assert.True(t, strings.Contains(p, "persona text"))
	assert.True(t, strings.Contains(p, `"action":"click|scroll|type|wait|done"`))
}

func TestFailedTargetHint_ListsCounts(t *testing.T) {
	hint := failedTargetHint(FailedTargetLedger{"7": 2})
	assert.Contains(t, hint, "#7")
	assert.Contains(t, hint, "2 time")
}

func TestFailedTargetHint_EmptyWhenNoFailures(t *testing.T) {
	assert.Empty(t, failedTargetHint(FailedTargetLedger{}))
}

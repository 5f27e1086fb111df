package somperception

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawResultTrimsLongTextFields(t *testing.T) {
	long := strings.Repeat("x", 200)
	rr := rawResult{
		Count: 1,
		Elements: []SoMCandidate{
			{ID: 0, Tag: "a", Text: long, AriaLabel: long, Title: long},
		},
	}

	obs := rr.toObservation()

	assert.Equal(t, 1, obs.Count)
	assert.Len(t, obs.Elements[0].Text, 80)
	assert.Len(t, obs.Elements[0].AriaLabel, 80)
	assert.Len(t, obs.Elements[0].Title, 80)
}

func TestRawResultPreservesShortTextFields(t *testing.T) {
	rr := rawResult{
		Count:    1,
		Elements: []SoMCandidate{{ID: 0, Tag: "button", Text: "Shop"}},
	}
	obs := rr.toObservation()
	assert.Equal(t, "Shop", obs.Elements[0].Text)
}

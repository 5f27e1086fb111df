package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_AssignsSequentialIDs(t *testing.T) {
	r := NewRecorder("run-1", "scout", "find pricing", "gemini-2.5-flash", "https://example.com")

	id0 := r.RecordStep("click", "4", "", "clicking pricing link", "https://example.com")
	id1 := r.RecordStep("scroll", "", "", "scrolling down", "https://example.com/pricing")

	assert.Equal(t, 0, id0)
	assert.Equal(t, 1, id1)
	assert.Equal(t, 2, r.StepCount())
}

func TestRecorder_TraceStepIDsAreIndependentOfStepIDs(t *testing.T) {
	r := NewRecorder("run-1", "scout", "obj", "model", "https://example.com")

	tid := r.RecordTraceStep(TraceStep{Action: "goto", URL: "https://example.com"})
	r.RecordStep("wait", "", "", "waiting", "https://example.com")
	tid2 := r.RecordTraceStep(TraceStep{Action: "wait", WaitMS: 2000})

	assert.Equal(t, 0, tid)
	assert.Equal(t, 1, tid2)
}

func TestRecorder_SnapshotIsACopyNotALiveView(t *testing.T) {
	r := NewRecorder("run-1", "scout", "obj", "model", "https://example.com")
	r.RecordThought("first thought", "https://example.com")

	s := r.snapshot()
	require.Len(t, s.thoughts, 1)

	r.RecordThought("second thought", "https://example.com")
	assert.Len(t, s.thoughts, 1, "snapshot must not observe writes made after it was taken")
}

func TestRecorder_SetFinalURLUpdatesSnapshot(t *testing.T) {
	r := NewRecorder("run-1", "scout", "obj", "model", "https://example.com")
	r.SetFinalURL("https://example.com/checkout")

	s := r.snapshot()
	assert.Equal(t, "https://example.com", s.startURL)
	assert.Equal(t, "https://example.com/checkout", s.finalURL)
}

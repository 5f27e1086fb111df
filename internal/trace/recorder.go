package trace

import (
	"sync"
	"time"
)

// Recorder accumulates a single Run's event logs in memory. It is owned
// exclusively by the Run Controller's loop goroutine for writes; every
// method, snapshot included, takes the recorder's lock and is safe to call
// concurrently with those writes.
type Recorder struct {
	mu sync.Mutex

	runID     string
	persona   string
	objective string
	modelName string
	startURL  string
	finalURL  string

	traceSteps  []TraceStep
	thoughts    []ThoughtRecord
	steps       []StepRecord
	errors      []ErrorRecord
	screenshots []ScreenshotRecord

	nextTraceID int
	nextStepID  int
}

// NewRecorder starts a fresh recorder for one Run.
func NewRecorder(runID, persona, objective, modelName, startURL string) *Recorder {
	return &Recorder{
		runID:     runID,
		persona:   persona,
		objective: objective,
		modelName: modelName,
		startURL:  startURL,
		finalURL:  startURL,
	}
}

// SetFinalURL updates the URL recorded as the Run's resting place; the
// Run Controller calls it once at teardown with the page's current URL.
func (r *Recorder) SetFinalURL(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalURL = url
}

// RecordTraceStep appends a replay-log entry and returns its assigned id.
func (r *Recorder) RecordTraceStep(step TraceStep) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	step.ID = r.nextTraceID
	r.nextTraceID++
	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now()
	}
	r.traceSteps = append(r.traceSteps, step)
	return step.ID
}

// RecordThought appends a think-aloud line.
func (r *Recorder) RecordThought(message, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.thoughts = append(r.thoughts, ThoughtRecord{Timestamp: time.Now(), Message: message, URL: url})
}

// RecordStep appends a completed control-loop turn and returns its id.
func (r *Recorder) RecordStep(action, targetID, value, thought, url string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextStepID
	r.nextStepID++
	r.steps = append(r.steps, StepRecord{
		ID:        id,
		Timestamp: time.Now(),
		Action:    action,
		TargetID:  targetID,
		Value:     value,
		Thought:   thought,
		URL:       url,
	})
	return id
}

// RecordError appends a caught failure.
func (r *Recorder) RecordError(message, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, ErrorRecord{Timestamp: time.Now(), Message: message, URL: url})
}

// RecordScreenshot appends a saved screenshot path.
func (r *Recorder) RecordScreenshot(path, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screenshots = append(r.screenshots, ScreenshotRecord{Timestamp: time.Now(), Path: path, URL: url})
}

// StepCount reports how many control-loop turns have been recorded,
// the gate for "always emit a report if any steps were recorded".
func (r *Recorder) StepCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.steps)
}

// snapshot is an immutable copy of everything recorded so far, safe to
// hand to the artifact writer without holding the recorder's lock while
// it does file I/O.
type snapshot struct {
	runID, persona, objective, modelName, startURL, finalURL string
	traceSteps                                               []TraceStep
	thoughts                                                 []ThoughtRecord
	steps                                                    []StepRecord
	errors                                                   []ErrorRecord
	screenshots                                              []ScreenshotRecord
}

func (r *Recorder) snapshot() snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return snapshot{
		runID:       r.runID,
		persona:     r.persona,
		objective:   r.objective,
		modelName:   r.modelName,
		startURL:    r.startURL,
		finalURL:    r.finalURL,
		traceSteps:  append([]TraceStep(nil), r.traceSteps...),
		thoughts:    append([]ThoughtRecord(nil), r.thoughts...),
		steps:       append([]StepRecord(nil), r.steps...),
		errors:      append([]ErrorRecord(nil), r.errors...),
		screenshots: append([]ScreenshotRecord(nil), r.screenshots...),
	}
}

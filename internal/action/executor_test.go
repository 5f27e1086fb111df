package action

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"journeyagent/internal/browserx"
)

func TestTargetPoint_StaysWithinInsetBounds(t *testing.T) {
	e := &Executor{rng: rand.New(rand.NewSource(5))}
	rect := locateResult{X: 100, Y: 100, Width: 40, Height: 20}

	for i := 0; i < 50; i++ {
		p := e.targetPoint(rect)
		assert.GreaterOrEqual(t, p.X, rect.X)
		assert.LessOrEqual(t, p.X, rect.X+rect.Width)
		assert.GreaterOrEqual(t, p.Y, rect.Y)
		assert.LessOrEqual(t, p.Y, rect.Y+rect.Height)
	}
}

func TestTargetPoint_InsetClampedForTinyElements(t *testing.T) {
	e := &Executor{rng: rand.New(rand.NewSource(6))}
	rect := locateResult{X: 0, Y: 0, Width: 3, Height: 3}
	p := e.targetPoint(rect)
	assert.GreaterOrEqual(t, p.X, 0.0)
	assert.LessOrEqual(t, p.X, 3.0)
}

func TestHandleTabEvent_PageSwitchRecentersCursor(t *testing.T) {
	session := browserx.New(browserx.DefaultConfig())
	executor := NewExecutor(session, 1440, 900)
	executor.ReinitCursor(Point{X: 10, Y: 10})

	sw := HandleTabEvent(executor, session, browserx.TabEvent{Kind: browserx.TargetPage, URL: "https://example.com"})
	assert.True(t, sw.Survived)
	assert.Equal(t, Point{X: 720, Y: 450}, executor.cursor)
}

func TestHandleTabEvent_CloseWithNoPageIsNotSurvived(t *testing.T) {
	session := browserx.New(browserx.DefaultConfig())
	executor := NewExecutor(session, 1440, 900)

	sw := HandleTabEvent(executor, session, browserx.TabEvent{Kind: browserx.TargetClose})
	assert.False(t, sw.Survived)
}

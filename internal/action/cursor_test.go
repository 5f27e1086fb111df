package action

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGeneratePath_StartsAndEndsAtGivenPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	from, to := Point{X: 10, Y: 10}, Point{X: 400, Y: 300}
	p := GeneratePath(rng, from, to)

	require := assert.New(t)
	require.InDelta(from.X, p.Points[0].X, 0.001)
	require.InDelta(from.Y, p.Points[0].Y, 0.001)
	last := p.Points[len(p.Points)-1]
	require.InDelta(to.X, last.X, 0.001)
	require.InDelta(to.Y, last.Y, 0.001)
}

func TestGeneratePath_StepCountScalesWithDistanceWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	short := GeneratePath(rng, Point{}, Point{X: 5, Y: 0})
	assert.GreaterOrEqual(t, len(short.Points), 12)

	long := GeneratePath(rng, Point{}, Point{X: 2000, Y: 0})
	assert.LessOrEqual(t, len(long.Points), 2*65) // two segments max when overshoot fires
}

func TestGeneratePath_DurationIsClampedToBelievableWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, dist := range []float64{1, 50, 500, 5000} {
		p := GeneratePath(rng, Point{}, Point{X: dist, Y: 0})
		assert.GreaterOrEqual(t, p.Duration, 220*time.Millisecond)
		assert.LessOrEqual(t, p.Duration, 2*960*time.Millisecond)
	}
}

func TestEaseInOutCubic_IsMonotonicAndBounded(t *testing.T) {
	prev := -1.0
	for i := 0; i <= 10; i++ {
		v := easeInOutCubic(float64(i) / 10)
		assert.GreaterOrEqual(t, v, prev)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0001)
		prev = v
	}
	assert.InDelta(t, 0.0, easeInOutCubic(0), 0.0001)
	assert.InDelta(t, 1.0, easeInOutCubic(1), 0.0001)
}

func TestBezierSegment_BendsAwayFromStraightLine(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	pts := bezierSegment(rng, Point{X: 0, Y: 0}, Point{X: 300, Y: 0})
	// Straight line is y=0 all the way; a real bend produces a non-zero
	// interior y at the path's midpoint-ish index.
	mid := pts[len(pts)/2]
	assert.NotEqual(t, 0.0, math.Round(mid.Y))
}

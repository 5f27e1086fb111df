//go:build integration

package somperception_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"journeyagent/internal/browserx"
	"journeyagent/internal/somperception"
)

func TestDiscover_IDDensityAndCap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, `<button id="b%d">Button %d</button>`, i, i)
	}
	sb.WriteString("</body></html>")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sb.String())
	}))
	defer ts.Close()

	cfg := browserx.DefaultConfig()
	cfg.Headless = true
	sess := browserx.New(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer sess.Shutdown(context.Background())

	require.NoError(t, sess.Start(ctx))
	require.NoError(t, sess.Open(ctx, ts.URL))

	obs, err := somperception.Discover(ctx, sess)
	require.NoError(t, err)
	require.LessOrEqual(t, obs.Count, somperception.MaxMarks)
	require.Equal(t, obs.Count, len(obs.Elements))

	seen := make(map[int]bool)
	for _, e := range obs.Elements {
		seen[e.ID] = true
	}
	for i := 0; i < obs.Count; i++ {
		require.True(t, seen[i], "mark ids must form a dense prefix from 0")
	}
}

func TestDiscover_NoOverlapAboveThreshold(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<html><body>
			<div style="position:absolute;left:0;top:0;width:100px;height:40px">
				<button style="width:100%;height:100%">Wrap</button>
			</div>
			<a href="/other" style="position:absolute;left:300px;top:300px;width:80px;height:30px">Other</a>
		</body></html>`)
	}))
	defer ts.Close()

	cfg := browserx.DefaultConfig()
	cfg.Headless = true
	sess := browserx.New(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer sess.Shutdown(context.Background())

	require.NoError(t, sess.Start(ctx))
	require.NoError(t, sess.Open(ctx, ts.URL))

	obs, err := somperception.Discover(ctx, sess)
	require.NoError(t, err)

	for i := 0; i < len(obs.Elements); i++ {
		for j := i + 1; j < len(obs.Elements); j++ {
			a, b := obs.Elements[i], obs.Elements[j]
			overlap := rectOverlapRatio(a, b)
			require.LessOrEqualf(t, overlap, 0.92, "marks %d and %d overlap too much", a.ID, b.ID)
		}
	}
}

func rectOverlapRatio(a, b somperception.SoMCandidate) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	overlap := (x2 - x1) * (y2 - y1)
	smaller := min(a.Width*a.Height, b.Width*b.Height)
	if smaller <= 0 {
		return 0
	}
	return overlap / smaller
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

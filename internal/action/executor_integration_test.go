//go:build integration

package action_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"journeyagent/internal/action"
	"journeyagent/internal/browserx"
	"journeyagent/internal/somperception"
)

func TestExecutor_ClickAndType_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<button id="go" onclick="document.title='clicked'">Go</button>
			<input id="box" placeholder="say something">
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

	var buttonID, inputID string
	for _, el := range obs.Elements {
		if el.Tag == "button" {
			buttonID = fmt.Sprint(el.ID)
		}
		if el.Tag == "input" {
			inputID = fmt.Sprint(el.ID)
		}
	}
	require.NotEmpty(t, buttonID)
	require.NotEmpty(t, inputID)

	exec := action.NewExecutor(sess, cfg.ViewportWidth, cfg.ViewportHeight)

	clickResult, err := exec.Click(ctx, buttonID)
	require.NoError(t, err)
	require.True(t, clickResult.Success)

	typeResult, err := exec.Type(ctx, inputID, "hello")
	require.NoError(t, err)
	require.True(t, typeResult.Success)

	scrollResult, err := exec.Scroll(ctx)
	require.NoError(t, err)
	require.True(t, scrollResult.Success)
}

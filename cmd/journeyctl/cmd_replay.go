package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"journeyagent/internal/action"
	"journeyagent/internal/browserx"
	"journeyagent/internal/config"
)

const (
	fillJS = `(sel, value) => {
		const el = document.querySelector(sel);
		if (!el) throw new Error("element not found: " + sel);
		el.focus();
		el.value = value;
		el.dispatchEvent(new Event("input", { bubbles: true }));
		el.dispatchEvent(new Event("change", { bubbles: true }));
	}`
	scrollJS = `(dx, dy) => window.scrollBy(dx, dy)`
)

var (
	replayTraceFile string
	replayHeadless  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-drive a saved trace's navigation/click/type/scroll steps against a fresh session",
	Long: `replay reads a trace-<runId>.json artifact and re-executes its recorded
steps structurally: a fresh browserx.Session is started, and each step's
selector or raw coordinates are replayed directly. This does not execute
the companion trace-<runId>.js file, which targets an abstract harness
interface for external tooling, not journeyctl itself.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayTraceFile, "trace", "", "Path to a trace-<runId>.json artifact (required)")
	replayCmd.Flags().BoolVar(&replayHeadless, "headless", false, "Run Chrome headless during replay")
	replayCmd.MarkFlagRequired("trace")
}

// replayStep mirrors internal/trace.TraceStep's JSON shape. It is defined
// locally rather than importing internal/trace so replay depends only on
// the artifact's documented wire format, not that package's internals.
type replayStep struct {
	ID        int     `json:"id"`
	URL       string  `json:"url"`
	Action    string  `json:"action"`
	Selector  string  `json:"selector,omitempty"`
	HasCoords bool    `json:"hasCoords,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Value     string  `json:"value,omitempty"`
	WaitMS    int     `json:"waitMs,omitempty"`
}

type replayDoc struct {
	RunID    string       `json:"runId"`
	StartURL string       `json:"startUrl"`
	Steps    []replayStep `json:"steps"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(replayTraceFile)
	if err != nil {
		return fmt.Errorf("read trace file: %w", err)
	}
	var doc replayDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse trace file: %w", err)
	}

	if _, _, err := config.Load(configPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bcfg := browserx.DefaultConfig()
	bcfg.Headless = replayHeadless
	session := browserx.New(bcfg)

	ctx := context.Background()
	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer session.Shutdown(ctx)

	fmt.Printf("replaying run %s (%d steps) against %s\n", doc.RunID, len(doc.Steps), doc.StartURL)
	if err := session.Open(ctx, doc.StartURL); err != nil {
		return fmt.Errorf("initial navigation: %w", err)
	}

	timeouts := config.GetTimeouts()
	executor := action.NewExecutor(session, bcfg.ViewportWidth, bcfg.ViewportHeight)

	for _, step := range doc.Steps {
		if err := replayOneStep(ctx, session, executor, step, timeouts.Navigation); err != nil {
			fmt.Printf("[step %d] %s failed: %v\n", step.ID, step.Action, err)
			continue
		}
		fmt.Printf("[step %d] %s ok\n", step.ID, step.Action)
	}

	url, title, _ := session.PageInfo(ctx)
	fmt.Printf("replay finished at %s (%s)\n", url, title)
	return nil
}

func replayOneStep(ctx context.Context, session *browserx.Session, executor *action.Executor, step replayStep, navTimeout time.Duration) error {
	switch step.Action {
	case "goto":
		navCtx, cancel := context.WithTimeout(ctx, navTimeout)
		defer cancel()
		return session.Open(navCtx, step.URL)
	case "click":
		if step.Selector != "" {
			return session.Click(ctx, step.Selector)
		}
		if step.HasCoords {
			return executor.ClickAt(ctx, step.X, step.Y)
		}
		return fmt.Errorf("no selector or coordinates recorded")
	case "type":
		if step.Selector == "" {
			return fmt.Errorf("no selector recorded")
		}
		_, err := session.Eval(ctx, fillJS, step.Selector, step.Value)
		return err
	case "scroll":
		_, err := session.Eval(ctx, scrollJS, step.X, step.Y)
		return err
	case "wait":
		ms := step.WaitMS
		if ms <= 0 {
			ms = 2000
		}
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case "tab-switch":
		return nil
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

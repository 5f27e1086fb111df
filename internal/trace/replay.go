package trace

import (
	"fmt"
	"strconv"
	"strings"
)

// replayExt is the companion script's file extension, referenced by
// spec.md's filesystem layout as trace-<runId>.<replay-ext>.
const replayExt = "js"

// GenerateReplayScript renders steps as a sequence of idempotent calls
// against a small `harness` object (goto/clickSelector/clickAt/fill/
// scroll/wait/tabSwitch) that any deterministic replay driver can
// implement. Each trace step becomes exactly one line, in order: a harness
// call, or a comment for a step that cannot be replayed (a click with no
// selector or coordinates, a type with no selector, an unknown action), so
// replay is a straight line with no branching or retries.
//
// String literals are escaped with strconv.Quote: Go's double-quoted
// escape grammar for the characters that appear here (backslash, quote,
// newline, control characters) is a strict subset of JavaScript's, so
// the emitted literal is always a valid JS string.
func GenerateReplayScript(meta ReplayMeta, steps []TraceStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// replay script for run %s\n", quote(meta.RunID))
	fmt.Fprintf(&b, "// generated %s, %d step(s)\n", meta.CreatedAt, len(steps))
	b.WriteString("async function replay(harness) {\n")
	fmt.Fprintf(&b, "  await harness.goto(%s);\n", quote(meta.StartURL))

	for _, step := range steps {
		b.WriteString(renderStep(step))
	}

	b.WriteString("}\n\nmodule.exports = replay;\n")
	return b.String()
}

// ReplayMeta carries the fields that precede the per-step calls in the
// generated script (the initial navigation and the header comment).
type ReplayMeta struct {
	RunID     string
	CreatedAt string
	StartURL  string
}

func renderStep(step TraceStep) string {
	switch step.Action {
	case "goto":
		return fmt.Sprintf("  await harness.goto(%s);\n", quote(step.URL))
	case "click":
		if step.Selector != "" {
			return fmt.Sprintf("  await harness.clickSelector(%s);\n", quote(step.Selector))
		}
		if step.HasCoords {
			return fmt.Sprintf("  await harness.clickAt(%s, %s);\n", formatCoord(step.X), formatCoord(step.Y))
		}
		return fmt.Sprintf("  // skipped click with no selector or coordinates (step %d)\n", step.ID)
	case "type":
		if step.Selector == "" {
			return fmt.Sprintf("  // skipped type with no selector (step %d)\n", step.ID)
		}
		return fmt.Sprintf("  await harness.fill(%s, %s);\n", quote(step.Selector), quote(step.Value))
	case "scroll":
		return fmt.Sprintf("  await harness.scroll(%s, %s);\n", formatCoord(step.X), formatCoord(step.Y))
	case "wait":
		ms := step.WaitMS
		if ms <= 0 {
			ms = 2000
		}
		return fmt.Sprintf("  await harness.wait(%d);\n", ms)
	case "tab-switch":
		return "  await harness.tabSwitchToLastOpened();\n"
	default:
		return fmt.Sprintf("  // unknown action %s (step %d)\n", quote(step.Action), step.ID)
	}
}

func quote(s string) string {
	return strconv.Quote(s)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

package trace

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strconv"
	"time"
)

// reportJSON is the shape written to report/report.json: a summary plus
// every log the recorder collected.
type reportJSON struct {
	RunID       string             `json:"runId"`
	Persona     string             `json:"persona"`
	Objective   string             `json:"objective"`
	ModelName   string             `json:"modelName"`
	StartURL    string             `json:"startUrl"`
	FinalURL    string             `json:"finalUrl"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Metrics     reportMetrics      `json:"metrics"`
	Steps       []StepRecord       `json:"steps"`
	Thoughts    []ThoughtRecord    `json:"thoughts"`
	Errors      []ErrorRecord      `json:"errors"`
	Screenshots []ScreenshotRecord `json:"screenshots"`
}

type reportMetrics struct {
	TotalSteps      int            `json:"totalSteps"`
	TotalErrors     int            `json:"totalErrors"`
	ActionCounts    map[string]int `json:"actionCounts"`
	DurationSeconds float64        `json:"durationSeconds"`
}

func buildReportJSON(s snapshot) reportJSON {
	counts := map[string]int{}
	for _, st := range s.steps {
		counts[st.Action]++
	}
	var duration float64
	if len(s.steps) > 1 {
		duration = s.steps[len(s.steps)-1].Timestamp.Sub(s.steps[0].Timestamp).Seconds()
	}
	return reportJSON{
		RunID:       s.runID,
		Persona:     s.persona,
		Objective:   s.objective,
		ModelName:   s.modelName,
		StartURL:    s.startURL,
		FinalURL:    s.finalURL,
		GeneratedAt: time.Now(),
		Metrics: reportMetrics{
			TotalSteps:      len(s.steps),
			TotalErrors:     len(s.errors),
			ActionCounts:    counts,
			DurationSeconds: duration,
		},
		Steps:       s.steps,
		Thoughts:    s.thoughts,
		Errors:      s.errors,
		Screenshots: s.screenshots,
	}
}

// buildStepsCSV renders report/steps.csv with the exact header spec.md
// requires. encoding/csv already quotes fields containing `,` `"` or a
// newline per RFC4180, so no bespoke escaping is needed.
func buildStepsCSV(s snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "timestamp", "action", "targetId", "value", "thought", "url"}); err != nil {
		return nil, err
	}
	for _, st := range s.steps {
		row := []string{
			strconv.Itoa(st.ID),
			st.Timestamp.Format(time.RFC3339),
			st.Action,
			st.TargetID,
			st.Value,
			st.Thought,
			st.URL,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// buildReportHTML renders the page PrintPDF turns into report.pdf:
// metadata, metrics, an action-breakdown table, the last 20 thoughts,
// and the first 12 embedded screenshot previews.
func buildReportHTML(s snapshot, report reportJSON, screenshotDataURLs []string) string {
	var b bytes.Buffer
	b.WriteString("<!doctype html><html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:-apple-system,Helvetica,Arial,sans-serif;margin:32px;color:#1a1a1a}")
	b.WriteString("h1,h2{margin-bottom:8px}table{border-collapse:collapse;width:100%;margin:12px 0}")
	b.WriteString("td,th{border:1px solid #ccc;padding:4px 8px;text-align:left;font-size:13px}")
	b.WriteString(".shots{display:flex;flex-wrap:wrap;gap:8px}.shots img{max-width:220px;border:1px solid #ccc}")
	b.WriteString("</style></head><body>")

	fmt.Fprintf(&b, "<h1>Run report — %s</h1>", html.EscapeString(report.RunID))
	b.WriteString("<h2>Metadata</h2><table>")
	writeRow(&b, "Persona", report.Persona)
	writeRow(&b, "Objective", report.Objective)
	writeRow(&b, "Model", report.ModelName)
	writeRow(&b, "Start URL", report.StartURL)
	writeRow(&b, "Final URL", report.FinalURL)
	writeRow(&b, "Generated at", report.GeneratedAt.Format(time.RFC3339))
	b.WriteString("</table>")

	b.WriteString("<h2>Metrics</h2><table>")
	writeRow(&b, "Total steps", strconv.Itoa(report.Metrics.TotalSteps))
	writeRow(&b, "Total errors", strconv.Itoa(report.Metrics.TotalErrors))
	writeRow(&b, "Duration (s)", strconv.FormatFloat(report.Metrics.DurationSeconds, 'f', 1, 64))
	b.WriteString("</table>")

	b.WriteString("<h2>Action breakdown</h2><table><tr><th>Action</th><th>Count</th></tr>")
	actions := make([]string, 0, len(report.Metrics.ActionCounts))
	for a := range report.Metrics.ActionCounts {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	for _, a := range actions {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td></tr>", html.EscapeString(a), report.Metrics.ActionCounts[a])
	}
	b.WriteString("</table>")

	b.WriteString("<h2>Last thoughts</h2><table><tr><th>Time</th><th>Thought</th></tr>")
	for _, t := range lastN(report.Thoughts, 20) {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>",
			html.EscapeString(t.Timestamp.Format(time.RFC3339)), html.EscapeString(t.Message))
	}
	b.WriteString("</table>")

	b.WriteString("<h2>Screenshots</h2><div class=\"shots\">")
	for _, src := range firstN(screenshotDataURLs, 12) {
		fmt.Fprintf(&b, "<img src=%q>", src)
	}
	b.WriteString("</div>")

	b.WriteString("</body></html>")
	return b.String()
}

func writeRow(b *bytes.Buffer, label, value string) {
	fmt.Fprintf(b, "<tr><th>%s</th><td>%s</td></tr>", html.EscapeString(label), html.EscapeString(value))
}

func lastN(t []ThoughtRecord, n int) []ThoughtRecord {
	if len(t) <= n {
		return t
	}
	return t[len(t)-n:]
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func marshalIndent(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

package trace

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"journeyagent/internal/logging"
)

// PDFRenderer is the one capability the writer borrows from the browser
// session: rendering an HTML string to PDF bytes. Satisfied by
// *browserx.Session.PrintPDF.
type PDFRenderer interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// Toggles mirrors the Run's save-trace/save-thoughts/save-screenshots
// options; only the first two gate artifact emission here (screenshots
// are written during the run itself, not at flush time).
type Toggles struct {
	SaveTrace    bool
	SaveThoughts bool
}

// Emitter publishes trace_saved/report_ready events carrying both the
// filesystem path and the /downloads/<relative> URL for each artifact.
type Emitter func(kind string, payload map[string]interface{})

// Writer turns a Recorder's snapshot into the artifact tree under
// artifacts/<runId>/ and reports it over Emitter.
type Writer struct {
	root     string // artifacts root directory, e.g. "artifacts"
	renderer PDFRenderer
	emit     Emitter
}

// NewWriter creates a Writer rooted at root ("artifacts" in production).
func NewWriter(root string, renderer PDFRenderer, emit Emitter) *Writer {
	if emit == nil {
		emit = func(string, map[string]interface{}) {}
	}
	return &Writer{root: root, renderer: renderer, emit: emit}
}

// Flush writes the artifact set for one Run, in the order spec.md
// requires: trace (if toggled), thoughts (if toggled), then the report
// unconditionally whenever at least one step was recorded.
func (w *Writer) Flush(ctx context.Context, r *Recorder, toggles Toggles) error {
	s := r.snapshot()
	dir := filepath.Join(w.root, s.runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	if toggles.SaveTrace {
		if err := w.writeTrace(dir, s); err != nil {
			return err
		}
	}

	if toggles.SaveThoughts {
		if err := w.writeThoughts(dir, s); err != nil {
			return err
		}
	}

	if len(s.steps) > 0 {
		if err := w.writeReport(ctx, dir, s); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) writeTrace(dir string, s snapshot) error {
	traceDir := filepath.Join(dir, "trace")
	if err := os.MkdirAll(traceDir, 0o755); err != nil {
		return fmt.Errorf("create trace dir: %w", err)
	}

	doc := struct {
		Version   int         `json:"version"`
		CreatedAt time.Time   `json:"createdAt"`
		RunID     string      `json:"runId"`
		StartURL  string      `json:"startUrl"`
		FinalURL  string      `json:"finalUrl"`
		Objective string      `json:"objective"`
		Persona   string      `json:"persona"`
		ModelName string      `json:"modelName"`
		Steps     []TraceStep `json:"steps"`
	}{
		Version:   1,
		CreatedAt: time.Now(),
		RunID:     s.runID,
		StartURL:  s.startURL,
		FinalURL:  s.finalURL,
		Objective: s.objective,
		Persona:   s.persona,
		ModelName: s.modelName,
		Steps:     s.traceSteps,
	}

	traceJSONPath := filepath.Join(traceDir, fmt.Sprintf("trace-%s.json", s.runID))
	data, err := marshalIndent(doc)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	if err := os.WriteFile(traceJSONPath, data, 0o644); err != nil {
		return fmt.Errorf("write trace json: %w", err)
	}

	script := GenerateReplayScript(ReplayMeta{
		RunID:     s.runID,
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
		StartURL:  s.startURL,
	}, s.traceSteps)
	replayPath := filepath.Join(traceDir, fmt.Sprintf("trace-%s.%s", s.runID, replayExt))
	if err := os.WriteFile(replayPath, []byte(script), 0o644); err != nil {
		return fmt.Errorf("write replay script: %w", err)
	}

	logging.Trace("wrote trace artifacts for run %s (%d steps)", s.runID, len(s.traceSteps))
	w.emit("trace_saved", map[string]interface{}{
		"runId":       s.runID,
		"path":        traceJSONPath,
		"replayPath":  replayPath,
		"downloadUrl": downloadURL(s.runID, "trace", filepath.Base(traceJSONPath)),
		"replayUrl":   downloadURL(s.runID, "trace", filepath.Base(replayPath)),
	})
	return nil
}

func (w *Writer) writeThoughts(dir string, s snapshot) error {
	thoughtsDir := filepath.Join(dir, "thoughts")
	if err := os.MkdirAll(thoughtsDir, 0o755); err != nil {
		return fmt.Errorf("create thoughts dir: %w", err)
	}

	jsonData, err := marshalIndent(s.thoughts)
	if err != nil {
		return fmt.Errorf("marshal thoughts: %w", err)
	}
	if err := os.WriteFile(filepath.Join(thoughtsDir, "thoughts.json"), jsonData, 0o644); err != nil {
		return fmt.Errorf("write thoughts json: %w", err)
	}

	var txt []byte
	for _, t := range s.thoughts {
		txt = append(txt, []byte(fmt.Sprintf("[%s] %s\n", t.Timestamp.Format(time.RFC3339), t.Message))...)
	}
	if err := os.WriteFile(filepath.Join(thoughtsDir, "thoughts.txt"), txt, 0o644); err != nil {
		return fmt.Errorf("write thoughts txt: %w", err)
	}

	logging.Trace("wrote thought artifacts for run %s (%d thoughts)", s.runID, len(s.thoughts))
	return nil
}

func (w *Writer) writeReport(ctx context.Context, dir string, s snapshot) error {
	reportDir := filepath.Join(dir, "report")
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	report := buildReportJSON(s)
	reportData, err := marshalIndent(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	reportJSONPath := filepath.Join(reportDir, "report.json")
	if err := os.WriteFile(reportJSONPath, reportData, 0o644); err != nil {
		return fmt.Errorf("write report json: %w", err)
	}

	csvData, err := buildStepsCSV(s)
	if err != nil {
		return fmt.Errorf("build steps csv: %w", err)
	}
	stepsCSVPath := filepath.Join(reportDir, "steps.csv")
	if err := os.WriteFile(stepsCSVPath, csvData, 0o644); err != nil {
		return fmt.Errorf("write steps csv: %w", err)
	}

	reportPDFPath := filepath.Join(reportDir, "report.pdf")
	if w.renderer != nil {
		dataURLs := screenshotDataURLs(firstN(screenshotPaths(s.screenshots), 12))
		htmlDoc := buildReportHTML(s, report, dataURLs)
		pdf, err := w.renderer.PrintPDF(ctx, htmlDoc)
		if err != nil {
			logging.TraceWarn("report pdf render failed for run %s: %v", s.runID, err)
		} else if err := os.WriteFile(reportPDFPath, pdf, 0o644); err != nil {
			return fmt.Errorf("write report pdf: %w", err)
		}
	}

	logging.Trace("wrote report artifacts for run %s (%d steps)", s.runID, len(s.steps))
	w.emit("report_ready", map[string]interface{}{
		"runId":       s.runID,
		"jsonPath":    reportJSONPath,
		"csvPath":     stepsCSVPath,
		"pdfPath":     reportPDFPath,
		"jsonUrl":     downloadURL(s.runID, "report", "report.json"),
		"csvUrl":      downloadURL(s.runID, "report", "steps.csv"),
		"pdfUrl":      downloadURL(s.runID, "report", "report.pdf"),
	})
	return nil
}

func screenshotPaths(recs []ScreenshotRecord) []string {
	paths := make([]string, 0, len(recs))
	for _, r := range recs {
		paths = append(paths, r.Path)
	}
	return paths
}

// screenshotDataURLs reads each screenshot file and inlines it as a
// base64 data URL for the report HTML; unreadable files are skipped
// rather than failing the whole report.
func screenshotDataURLs(paths []string) []string {
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		urls = append(urls, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(data))
	}
	return urls
}

func downloadURL(runID, category, filename string) string {
	return fmt.Sprintf("/downloads/%s/%s/%s", runID, category, filename)
}

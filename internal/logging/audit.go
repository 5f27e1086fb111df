// Package logging provides audit logging that outputs structured, queryable facts.
// Audit logs are JSON-lines of typed events describing Run lifecycle, decisions,
// actions, cookie handling, speech gate transitions, and artifact writes.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType defines the type of audit event.
type AuditEventType string

const (
	// Run lifecycle events
	AuditRunStart    AuditEventType = "run_start"
	AuditRunStop     AuditEventType = "run_stop"
	AuditTurnStart   AuditEventType = "turn_start"
	AuditTurnEnd     AuditEventType = "turn_end"
	AuditStagnation  AuditEventType = "stagnation_exit"

	// Decision engine events
	AuditDecisionRequest  AuditEventType = "decision_request"
	AuditDecisionResponse AuditEventType = "decision_response"
	AuditDecisionError    AuditEventType = "decision_error"
	AuditDecisionRetry    AuditEventType = "decision_retry"

	// Action executor events
	AuditActionExecute  AuditEventType = "action_execute"
	AuditActionComplete AuditEventType = "action_complete"
	AuditActionError    AuditEventType = "action_error"
	AuditTabSwitch      AuditEventType = "tab_switch"

	// Cookie dismisser events
	AuditCookieDetected  AuditEventType = "cookie_detected"
	AuditCookieDismissed AuditEventType = "cookie_dismissed"
	AuditCookieFailed    AuditEventType = "cookie_failed"

	// Speech gate events
	AuditSpeechRequest AuditEventType = "speech_request"
	AuditSpeechDone    AuditEventType = "speech_done"
	AuditSpeechTimeout AuditEventType = "speech_timeout"

	// Artifact / file events
	AuditFileWrite AuditEventType = "file_write"
	AuditFileError AuditEventType = "file_error"

	// Performance
	AuditPerfMetric AuditEventType = "perf_metric"
	AuditPerfSlow   AuditEventType = "perf_slow"

	// Errors
	AuditErrorGeneric  AuditEventType = "error_generic"
	AuditErrorCritical AuditEventType = "error_critical"
	AuditErrorRecovery AuditEventType = "error_recovery"
)

// =============================================================================
// AUDIT EVENT STRUCTURE
// =============================================================================

// AuditEvent represents a structured audit log entry.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`      // Unix milliseconds
	EventType  AuditEventType         `json:"event"`   // event kind
	Category   string                 `json:"cat"`     // Log category
	RunID      string                 `json:"run"`     // Run correlation id
	RequestID  string                 `json:"req"`     // Request correlation
	Target     string                 `json:"target"`  // Target of operation (mark id, selector, path)
	Action     string                 `json:"action"`  // Action being performed
	Success    bool                   `json:"success"` // Operation succeeded
	DurationMs int64                  `json:"dur_ms"`  // Duration in milliseconds
	Error      string                 `json:"error"`   // Error message if failed
	Message    string                 `json:"msg"`     // Human-readable message
	Fields     map[string]interface{} `json:"fields"`  // Additional structured fields
	Fact       string                 `json:"fact"`    // Pre-formatted flat fact string
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger handles structured audit logging scoped to a Run.
type AuditLogger struct {
	runID    string
	category Category
}

// InitAudit initializes the audit logging system
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	header := fmt.Sprintf("# Audit log started at %s\n# Format: JSON-lines structured events\n", time.Now().Format(time.RFC3339))
	auditFile.WriteString(header)

	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{}
	}
	return auditLogger
}

// AuditWithRun creates an audit logger scoped to a run
func AuditWithRun(runID string) *AuditLogger {
	return &AuditLogger{runID: runID}
}

// AuditWithContext creates a fully-scoped audit logger
func AuditWithContext(runID string, category Category) *AuditLogger {
	return &AuditLogger{runID: runID, category: category}
}

// =============================================================================
// AUDIT LOGGING METHODS
// =============================================================================

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.RunID == "" && a.runID != "" {
		event.RunID = a.runID
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}
	if event.Fields == nil {
		event.Fields = make(map[string]interface{})
	}

	event.Fact = generateFact(event)

	auditMu.Lock()
	defer auditMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

// generateFact creates a compact single-line fact string from an event, for
// grep/awk-friendly scanning of the audit log without parsing JSON.
func generateFact(e AuditEvent) string {
	switch e.EventType {
	case AuditRunStart, AuditRunStop, AuditTurnStart, AuditTurnEnd, AuditStagnation:
		return fmt.Sprintf("run_event(%d, %s, %s, %v).", e.Timestamp, e.EventType, e.RunID, e.Success)

	case AuditDecisionRequest, AuditDecisionResponse, AuditDecisionError, AuditDecisionRetry:
		return fmt.Sprintf("decision_event(%d, %s, %v, %dms).", e.Timestamp, e.EventType, e.Success, e.DurationMs)

	case AuditActionExecute, AuditActionComplete, AuditActionError, AuditTabSwitch:
		return fmt.Sprintf("action_event(%d, %s, %q, %q, %v, %dms).",
			e.Timestamp, e.EventType, e.Action, e.Target, e.Success, e.DurationMs)

	case AuditCookieDetected, AuditCookieDismissed, AuditCookieFailed:
		return fmt.Sprintf("cookie_event(%d, %s, %q, %v).", e.Timestamp, e.EventType, e.Target, e.Success)

	case AuditSpeechRequest, AuditSpeechDone, AuditSpeechTimeout:
		return fmt.Sprintf("speech_event(%d, %s, %q, %v).", e.Timestamp, e.EventType, e.RequestID, e.Success)

	case AuditFileWrite, AuditFileError:
		size := int64(0)
		if s, ok := e.Fields["size"].(int64); ok {
			size = s
		}
		return fmt.Sprintf("file_op(%d, %s, %q, %v, %d).", e.Timestamp, e.EventType, e.Target, e.Success, size)

	case AuditPerfMetric, AuditPerfSlow:
		return fmt.Sprintf("perf_metric(%d, %q, %q, %dms).", e.Timestamp, e.Category, e.Action, e.DurationMs)

	case AuditErrorGeneric, AuditErrorCritical, AuditErrorRecovery:
		return fmt.Sprintf("error_event(%d, %s, %q, %q).", e.Timestamp, e.EventType, e.Category, escapeString(e.Error))

	default:
		return fmt.Sprintf("audit_event(%d, %s, %q, %q, %v).", e.Timestamp, e.EventType, e.Category, escapeString(e.Message), e.Success)
	}
}

func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/10)

	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// =============================================================================
// CONVENIENCE METHODS FOR COMMON EVENTS
// =============================================================================

// RunStart logs a run start event
func (a *AuditLogger) RunStart(runID, persona, mission string) {
	a.Log(AuditEvent{
		EventType: AuditRunStart,
		RunID:     runID,
		Success:   true,
		Fields:    map[string]interface{}{"persona": persona, "mission": mission},
		Message:   fmt.Sprintf("Run started: %s (persona=%s)", runID, persona),
	})
}

// RunStop logs a run stop event
func (a *AuditLogger) RunStop(runID string, turns int, durationMs int64) {
	a.Log(AuditEvent{
		EventType:  AuditRunStop,
		RunID:      runID,
		Success:    true,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"turns": turns},
		Message:    fmt.Sprintf("Run stopped: %s (%d turns, %dms)", runID, turns, durationMs),
	})
}

// TurnStart logs turn start
func (a *AuditLogger) TurnStart(runID string, turnNum int) {
	a.Log(AuditEvent{
		EventType: AuditTurnStart,
		RunID:     runID,
		Success:   true,
		Fields:    map[string]interface{}{"turn": turnNum},
		Message:   fmt.Sprintf("Turn %d started", turnNum),
	})
}

// TurnEnd logs turn end
func (a *AuditLogger) TurnEnd(runID string, turnNum int, durationMs int64, success bool) {
	a.Log(AuditEvent{
		EventType:  AuditTurnEnd,
		RunID:      runID,
		Success:    success,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"turn": turnNum},
		Message:    fmt.Sprintf("Turn %d ended (%dms, success=%v)", turnNum, durationMs, success),
	})
}

// DecisionResponse logs a completed decision engine call.
func (a *AuditLogger) DecisionResponse(action string, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditDecisionResponse,
		Action:     action,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Decision: action=%s success=%v (%dms)", action, success, durationMs),
	})
}

// ActionComplete logs an action completion
func (a *AuditLogger) ActionComplete(action, target string, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditActionComplete,
		Action:     action,
		Target:     target,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Action completed: %s -> %s (success=%v, %dms)", action, target, success, durationMs),
	})
}

// CookieDismissed logs a successful cookie-surface dismissal and the layer that did it.
func (a *AuditLogger) CookieDismissed(layer string) {
	a.Log(AuditEvent{
		EventType: AuditCookieDismissed,
		Target:    layer,
		Success:   true,
		Message:   fmt.Sprintf("Cookie surface dismissed via %s", layer),
	})
}

// SpeechRequest logs a new outstanding speech request
func (a *AuditLogger) SpeechRequest(requestID string, textLen int) {
	a.Log(AuditEvent{
		EventType: AuditSpeechRequest,
		RequestID: requestID,
		Success:   true,
		Fields:    map[string]interface{}{"text_len": textLen},
		Message:   fmt.Sprintf("Speech request %s (%d chars)", requestID, textLen),
	})
}

// SpeechResolved logs how a speech request was resolved.
func (a *AuditLogger) SpeechResolved(requestID string, timedOut bool) {
	eventType := AuditSpeechDone
	if timedOut {
		eventType = AuditSpeechTimeout
	}
	a.Log(AuditEvent{
		EventType: eventType,
		RequestID: requestID,
		Success:   !timedOut,
		Message:   fmt.Sprintf("Speech %s resolved (timed_out=%v)", requestID, timedOut),
	})
}

// FileOp logs a file operation (artifact write)
func (a *AuditLogger) FileOp(op AuditEventType, path string, size int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType: op,
		Target:    path,
		Success:   success,
		Error:     errMsg,
		Fields:    map[string]interface{}{"size": size},
		Message:   fmt.Sprintf("File %s: %s (%d bytes, success=%v)", op, path, size, success),
	})
}

// PerfMetric logs a performance metric
func (a *AuditLogger) PerfMetric(operation string, durationMs int64, threshold int64) {
	eventType := AuditPerfMetric
	success := true
	if threshold > 0 && durationMs > threshold {
		eventType = AuditPerfSlow
		success = false
	}
	fields := map[string]interface{}{}
	if threshold > 0 {
		fields["threshold_ms"] = threshold
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Action:     operation,
		DurationMs: durationMs,
		Success:    success,
		Fields:     fields,
		Message:    fmt.Sprintf("Perf: %s took %dms (threshold=%dms)", operation, durationMs, threshold),
	})
}

// Error logs an error event
func (a *AuditLogger) Error(category string, err error, critical bool) {
	eventType := AuditErrorGeneric
	if critical {
		eventType = AuditErrorCritical
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	a.Log(AuditEvent{
		EventType: eventType,
		Category:  category,
		Success:   false,
		Error:     errMsg,
		Message:   fmt.Sprintf("Error in %s: %s (critical=%v)", category, errMsg, critical),
	})
}

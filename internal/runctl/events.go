package runctl

import (
	"sync"
	"time"
)

// EventKind enumerates the event-stream kinds spec.md §6 names.
type EventKind string

const (
	EventStatus      EventKind = "status"
	EventThought     EventKind = "thought"
	EventStep        EventKind = "step"
	EventScreenshot  EventKind = "screenshot"
	EventCursor      EventKind = "cursor"
	EventTTS         EventKind = "tts"
	EventTraceSaved  EventKind = "trace_saved"
	EventReportReady EventKind = "report_ready"
	EventError       EventKind = "error"
)

// Event is one message broadcast to every subscriber.
type Event struct {
	Kind    EventKind              `json:"kind"`
	At      time.Time              `json:"at"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Hub fans Events out to any number of subscribers — in-process CLI
// watchers and internal/httpapi's websocket clients alike — adapted from
// the register/unregister/broadcast-channel shape common to
// gorilla/websocket hubs (None9527-NGOClaw's gateway hub included).
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: map[chan Event]struct{}{}}
}

// Subscribe registers a new buffered channel that receives every
// subsequent broadcast. Call the returned function to unsubscribe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, unsubscribe
}

// Broadcast sends ev to every current subscriber. A subscriber whose
// buffer is full is skipped rather than blocking the control loop —
// a slow operator UI must never stall a Run.
func (h *Hub) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// emit builds and broadcasts an event in one call.
func (h *Hub) emit(kind EventKind, payload map[string]interface{}) {
	h.Broadcast(Event{Kind: kind, Payload: payload})
}

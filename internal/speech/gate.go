package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"journeyagent/internal/logging"
)

// ErrWatchdogTimeout is returned when no tts_done ack arrives before the
// watchdog elapses.
var ErrWatchdogTimeout = errors.New("speech gate watchdog timeout")

// ErrSuperseded is returned to a caller whose in-flight request got bumped
// by a newer one before it resolved.
var ErrSuperseded = errors.New("speech request superseded by a newer request")

// Publisher emits the "tts" event carrying the request for whatever
// surface plays audio back (the operator websocket, in this system).
type Publisher func(Request)

type pending struct {
	id   string
	done chan error // nil on ack, ErrWatchdogTimeout/ErrSuperseded/ctx.Err() otherwise
}

// Gate enforces the single-outstanding-TTS-request invariant: Speak blocks
// the calling goroutine (one control-loop turn) until its own request
// resolves one way or another, and a newer Speak call supersedes whatever
// request came before it instead of waiting for it.
type Gate struct {
	mu          sync.Mutex
	current     *pending
	publish     Publisher
	minWatchdog time.Duration
	maxWatchdog time.Duration
}

// NewGate creates a Gate that calls publish for every outstanding request,
// using the package's default watchdog bounds.
func NewGate(publish Publisher) *Gate {
	return NewGateWithBounds(publish, minWatchdog, maxWatchdog)
}

// NewGateWithBounds creates a Gate whose per-request watchdog is clamped to
// [min, max] instead of the package defaults, so a deployment can tune the
// bound via config.Timeouts without touching this package.
func NewGateWithBounds(publish Publisher, min, max time.Duration) *Gate {
	return &Gate{publish: publish, minWatchdog: min, maxWatchdog: max}
}

// Speak synthesizes text, wraps it as WAV if needed, publishes the tts
// event, and blocks until Ack is called with the same id, the watchdog
// elapses, or ctx is canceled (run stop). It never returns an error for a
// successful synth-and-publish; the returned error only reflects whether
// the rendezvous resolved via ack, timeout, supersession, or cancellation.
func (g *Gate) Speak(ctx context.Context, synth Synthesizer, text, voice string) (Request, error) {
	if synth == nil {
		return Request{}, fmt.Errorf("no synthesizer configured")
	}

	audio, mime, err := synth.Synthesize(ctx, text, voice)
	if err != nil {
		return Request{}, fmt.Errorf("synthesis failed: %w", err)
	}

	req := Request{
		ID:       uuid.NewString(),
		Text:     text,
		Audio:    toWAV(audio, mime),
		Watchdog: watchdogFor(text, g.minWatchdog, g.maxWatchdog),
	}

	p := &pending{id: req.ID, done: make(chan error, 1)}

	g.mu.Lock()
	if g.current != nil {
		select {
		case g.current.done <- ErrSuperseded:
		default:
		}
	}
	g.current = p
	g.mu.Unlock()

	g.publish(req)
	logging.SpeechDebug("tts request %s published, watchdog=%v", req.ID, req.Watchdog)

	select {
	case err := <-p.done:
		g.clearIfCurrent(p.id)
		return req, err
	case <-time.After(req.Watchdog):
		g.clearIfCurrent(p.id)
		logging.SpeechWarn("tts request %s timed out waiting for ack", req.ID)
		return req, ErrWatchdogTimeout
	case <-ctx.Done():
		g.clearIfCurrent(p.id)
		return req, ctx.Err()
	}
}

// Ack resolves the outstanding request matching id (a tts_done message
// from the operator). Acks for an id that is no longer current are
// ignored: the rendezvous for that id has already resolved.
func (g *Gate) Ack(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil || g.current.id != id {
		return
	}
	select {
	case g.current.done <- nil:
	default:
	}
}

func (g *Gate) clearIfCurrent(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != nil && g.current.id == id {
		g.current = nil
	}
}

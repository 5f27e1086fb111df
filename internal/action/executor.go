// Package action executes Decisions against the browser: it moves the
// cursor along a human-like path, clicks or types at the resolved target,
// scrolls, or waits, and reports what it actually did so the caller can
// update the failed-target ledger and trace.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"journeyagent/internal/browserx"
	"journeyagent/internal/logging"
)

// CursorEvent is emitted roughly every other motion step so an operator
// view can render a live cursor trail.
type CursorEvent struct {
	X             float64
	Y             float64
	ViewportWidth int
	ViewportHeight int
	At            time.Time
}

// Result describes what an action actually did, for trace recording and
// failed-target bookkeeping.
type Result struct {
	Success  bool
	Selector string
	X, Y     float64
	Width    float64
	Height   float64
}

// waitDuration is the fixed pause a "wait" decision performs.
const waitDuration = 2 * time.Second

var errNoTarget = errors.New("target not found")

// Executor drives one Session's pointer, keyboard, and scroll wheel.
type Executor struct {
	session *browserx.Session
	rng     *rand.Rand

	mu     sync.Mutex
	cursor Point

	viewportWidth  int
	viewportHeight int

	events chan CursorEvent
}

// NewExecutor creates an Executor starting with the cursor parked at the
// viewport center.
func NewExecutor(session *browserx.Session, viewportWidth, viewportHeight int) *Executor {
	return &Executor{
		session:        session,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		cursor:         Point{X: float64(viewportWidth) / 2, Y: float64(viewportHeight) / 2},
		viewportWidth:  viewportWidth,
		viewportHeight: viewportHeight,
		events:         make(chan CursorEvent, 64),
	}
}

// Events returns the cursor-position event stream.
func (e *Executor) Events() <-chan CursorEvent {
	return e.events
}

// ReinitCursor re-centers the cursor, used after a tab-follow switch since
// the new tab has no prior pointer history.
func (e *Executor) ReinitCursor(p Point) {
	e.mu.Lock()
	e.cursor = p
	e.mu.Unlock()
}

type locateResult struct {
	Found    bool    `json:"found"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Fillable bool    `json:"fillable"`
	Selector string  `json:"selector"`
}

func (e *Executor) locate(ctx context.Context, markID string) (locateResult, error) {
	res, err := e.session.Eval(ctx, locateScript, markID)
	if err != nil {
		return locateResult{}, fmt.Errorf("locate eval failed: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return locateResult{}, err
	}
	var lr locateResult
	if err := json.Unmarshal(raw, &lr); err != nil {
		return locateResult{}, err
	}
	if !lr.Found {
		return locateResult{}, errNoTarget
	}
	return lr, nil
}

// targetPoint inset by 20% of the minor dimension, clamped 2-10px, so
// repeated clicks on the same element don't land on the exact same pixel.
func (e *Executor) targetPoint(rect locateResult) Point {
	minor := rect.Width
	if rect.Height < minor {
		minor = rect.Height
	}
	inset := clamp(minor*0.2, 2, 10)

	maxDX := rect.Width/2 - inset
	maxDY := rect.Height/2 - inset
	if maxDX < 0 {
		maxDX = 0
	}
	if maxDY < 0 {
		maxDY = 0
	}

	cx := rect.X + rect.Width/2 + (e.rng.Float64()*2-1)*maxDX
	cy := rect.Y + rect.Height/2 + (e.rng.Float64()*2-1)*maxDY
	return Point{X: cx, Y: cy}
}

// moveTo walks the cursor along a generated path, checking ctx between
// steps and emitting a CursorEvent every second step.
func (e *Executor) moveTo(ctx context.Context, to Point) error {
	page := e.session.Page()
	if page == nil {
		return errors.New("no active page")
	}

	e.mu.Lock()
	from := e.cursor
	e.mu.Unlock()

	path := GeneratePath(e.rng, from, to)
	if len(path.Points) == 0 {
		return nil
	}
	perStep := path.Duration / time.Duration(len(path.Points))

	for i, p := range path.Points {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := page.Context(ctx).Mouse.MoveTo(proto.Point{X: p.X, Y: p.Y}); err != nil {
			return fmt.Errorf("mouse move failed: %w", err)
		}

		e.mu.Lock()
		e.cursor = p
		e.mu.Unlock()

		if i%2 == 0 {
			e.emitCursor(p)
		}

		if i < len(path.Points)-1 {
			time.Sleep(perStep)
		}
	}
	return nil
}

func (e *Executor) emitCursor(p Point) {
	ev := CursorEvent{X: p.X, Y: p.Y, ViewportWidth: e.viewportWidth, ViewportHeight: e.viewportHeight, At: time.Now()}
	select {
	case e.events <- ev:
	default:
		logging.ActionWarn("cursor event channel full, dropping event")
	}
}

// click performs a down/up pair with a short randomized pause between, and
// a ripple visual on each half.
func (e *Executor) click(ctx context.Context, p Point) error {
	page := e.session.Page()
	if page == nil {
		return errors.New("no active page")
	}

	if _, err := e.session.Eval(ctx, rippleScript, p.X, p.Y, "down"); err != nil {
		logging.ActionWarn("ripple (down) failed: %v", err)
	}
	if err := page.Context(ctx).Mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("mouse down failed: %w", err)
	}

	pause := time.Duration(35+e.rng.Intn(61)) * time.Millisecond
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pause):
	}

	if _, err := e.session.Eval(ctx, rippleScript, p.X, p.Y, "up"); err != nil {
		logging.ActionWarn("ripple (up) failed: %v", err)
	}
	if err := page.Context(ctx).Mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("mouse up failed: %w", err)
	}
	return nil
}

// ClickAt performs a bare human-motion click at raw viewport coordinates,
// without resolving a mark id first. It satisfies the cookie package's
// Clicker function type for the vision-coordinate cookie fallback layer.
func (e *Executor) ClickAt(ctx context.Context, x, y float64) error {
	target := Point{X: x, Y: y}
	if err := e.moveTo(ctx, target); err != nil {
		return err
	}
	return e.click(ctx, target)
}

// Click resolves a mark id to its current element, moves the cursor there,
// and clicks. A missing/stale mark id is reported as a failed Result, not
// an error: the caller decides whether that's fatal to the run.
func (e *Executor) Click(ctx context.Context, markID string) (Result, error) {
	lr, err := e.locate(ctx, markID)
	if err != nil {
		logging.ActionWarn("click target %s not found: %v", markID, err)
		return Result{Success: false}, nil
	}

	target := e.targetPoint(lr)
	if err := e.moveTo(ctx, target); err != nil {
		return Result{}, err
	}
	if err := e.click(ctx, target); err != nil {
		return Result{}, err
	}

	return Result{Success: true, Selector: lr.Selector, X: target.X, Y: target.Y, Width: lr.Width, Height: lr.Height}, nil
}

// Type resolves a mark id, falls back to the nearest fillable element if
// the mark itself can't accept text, clicks it to focus, clears any
// existing value, and types value with a per-character human delay.
func (e *Executor) Type(ctx context.Context, markID, value string) (Result, error) {
	lr, err := e.locate(ctx, markID)
	if err != nil {
		logging.ActionWarn("type target %s not found: %v", markID, err)
		return Result{Success: false}, nil
	}

	if !lr.Fillable {
		fallback, ferr := e.locateNearestFillable(ctx, lr.X+lr.Width/2, lr.Y+lr.Height/2)
		if ferr != nil {
			logging.ActionWarn("type target %s isn't fillable and no nearby input found: %v", markID, ferr)
			return Result{Success: false}, nil
		}
		lr = fallback
	}

	target := e.targetPoint(lr)
	if err := e.moveTo(ctx, target); err != nil {
		return Result{}, err
	}
	if err := e.click(ctx, target); err != nil {
		return Result{}, err
	}

	page := e.session.Page()
	if page == nil {
		return Result{}, errors.New("no active page")
	}
	pctx := page.Context(ctx)

	if el, elErr := pctx.Element(lr.Selector); elErr == nil {
		if err := el.SelectAllText(); err != nil {
			logging.ActionWarn("select-all before type failed: %v", err)
		}
	} else {
		logging.ActionWarn("could not resolve selector %q for clearing: %v", lr.Selector, elErr)
	}
	if err := pctx.Keyboard.Type(input.Backspace); err != nil {
		logging.ActionWarn("clear before type failed: %v", err)
	}

	for _, r := range value {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		if err := pctx.Keyboard.InsertText(string(r)); err != nil {
			return Result{}, fmt.Errorf("type failed: %w", err)
		}
		delay := time.Duration(35+e.rng.Intn(51)) * time.Millisecond
		time.Sleep(delay)
	}

	return Result{Success: true, Selector: lr.Selector, X: target.X, Y: target.Y, Width: lr.Width, Height: lr.Height}, nil
}

func (e *Executor) locateNearestFillable(ctx context.Context, cx, cy float64) (locateResult, error) {
	res, err := e.session.Eval(ctx, nearestFillableScript, cx, cy)
	if err != nil {
		return locateResult{}, err
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return locateResult{}, err
	}
	var lr locateResult
	if err := json.Unmarshal(raw, &lr); err != nil {
		return locateResult{}, err
	}
	if !lr.Found {
		return locateResult{}, errNoTarget
	}
	lr.Fillable = true
	return lr, nil
}

// Scroll nudges the cursor a little (so it looks like a real hand on a
// wheel) and scrolls the page by a random human-sized wheel delta.
func (e *Executor) Scroll(ctx context.Context) (Result, error) {
	page := e.session.Page()
	if page == nil {
		return Result{}, errors.New("no active page")
	}

	e.mu.Lock()
	cur := e.cursor
	e.mu.Unlock()
	nudge := Point{X: cur.X + (e.rng.Float64()*2-1)*20, Y: cur.Y + (e.rng.Float64()*2-1)*20}
	if err := e.moveTo(ctx, nudge); err != nil {
		return Result{}, err
	}

	delta := 320 + e.rng.Float64()*360
	if err := page.Context(ctx).Mouse.Scroll(0, delta, 1); err != nil {
		return Result{}, fmt.Errorf("scroll failed: %w", err)
	}

	return Result{Success: true}, nil
}

// Wait performs the fixed pause a "wait" decision asks for.
func (e *Executor) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(waitDuration):
	}
	return Result{Success: true}, nil
}

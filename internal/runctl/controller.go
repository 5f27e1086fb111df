// Package runctl implements the Run Controller: the single state machine
// that owns a Run's browser session, decision provider, and artifact
// writers, and drives the per-turn loop spec.md §4.1 describes. Only one
// Run may be active at a time.
package runctl

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"journeyagent/internal/action"
	"journeyagent/internal/browserx"
	"journeyagent/internal/config"
	"journeyagent/internal/cookie"
	"journeyagent/internal/decision"
	"journeyagent/internal/logging"
	"journeyagent/internal/persona"
	"journeyagent/internal/somperception"
	"journeyagent/internal/speech"
	"journeyagent/internal/store"
	"journeyagent/internal/trace"
)

// hydrationWait is the fixed settle time after the first navigation,
// before the loop's first perception pass — generalized from the
// teacher's post-navigate sleep in its own browsing loop.
const hydrationWait = 2 * time.Second

// Controller owns at most one active Run at a time, fanning its
// progress out over a Hub and persisting a durable record via Store.
type Controller struct {
	cfg      *config.AppConfig
	personas *persona.Library
	runStore *store.Store
	hub      *Hub

	mu     sync.Mutex
	active *activeRun
}

// activeRun bundles the per-Run state a single loop goroutine owns.
type activeRun struct {
	runID       string
	opts        Options
	persona     persona.Persona
	artifactDir string

	session   *browserx.Session
	executor  *action.Executor
	dismisser *cookie.Dismisser
	provider  decision.Provider
	speechGate *speech.Gate
	synth     speech.Synthesizer
	recorder  *trace.Recorder
	writer    *trace.Writer

	history    []decision.HistoryEntry
	failed     decision.FailedTargetLedger
	stagnation *decision.StagnationTracker

	status Status
	cancel context.CancelFunc
}

// NewController wires a Controller from its already-loaded dependencies.
func NewController(cfg *config.AppConfig, personas *persona.Library, runStore *store.Store) *Controller {
	return &Controller{
		cfg:      cfg,
		personas: personas,
		runStore: runStore,
		hub:      NewHub(),
	}
}

// Subscribe exposes the event hub to websocket/CLI watchers.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.hub.Subscribe()
}

// IsActive reports whether a Run is currently underway.
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Start begins a new Run. It returns immediately once the browser session
// is up and the loop goroutine has been launched; the loop itself runs to
// completion (or Stop) in the background.
func (c *Controller) Start(ctx context.Context, opts Options) (RunInfo, error) {
	if opts.URL == "" {
		return RunInfo{}, ErrMissingURL
	}

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return RunInfo{}, ErrAlreadyActive
	}
	c.mu.Unlock()

	p := c.resolvePersona(opts.PersonaName)

	runID := time.Now().UTC().Format("2006-01-02T15-04-05") + "-" + persona.Slug(p.Name)
	artifactDir := filepath.Join(c.cfg.ArtifactsDir, runID)
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return RunInfo{}, fmt.Errorf("create artifact dir: %w", err)
	}

	session := browserx.New(browserx.Config{
		Headless:            opts.HeadlessMode,
		ViewportWidth:       p.Context.ViewportWidth,
		ViewportHeight:      p.Context.ViewportHeight,
		NavigationTimeoutMs: int(config.GetTimeouts().Navigation / time.Millisecond),
		DeviceScale:         p.Context.DeviceScale,
		Locale:              p.Context.Locale,
		Timezone:            p.Context.Timezone,
		ReducedMotion:       p.Context.ReducedMotion,
	})
	if err := session.Start(ctx); err != nil {
		return RunInfo{}, fmt.Errorf("start browser: %w", err)
	}
	if err := session.Open(ctx, opts.URL); err != nil {
		logging.RunWarn("run %s: initial navigation to %s failed, continuing: %v", runID, opts.URL, err)
	}

	modelName := opts.ModelName
	if modelName == "" {
		modelName = c.cfg.DefaultModel
	}

	provider, err := c.buildProvider(opts, p, modelName)
	if err != nil {
		_ = session.Shutdown(ctx)
		return RunInfo{}, fmt.Errorf("build decision provider: %w", err)
	}

	run := &activeRun{
		runID:       runID,
		opts:        opts,
		persona:     p,
		artifactDir: artifactDir,
		session:     session,
		executor:    action.NewExecutor(session, p.Context.ViewportWidth, p.Context.ViewportHeight),
		provider:    provider,
		failed:      decision.FailedTargetLedger{},
		stagnation:  &decision.StagnationTracker{},
		recorder:    trace.NewRecorder(runID, p.Name, opts.Objective, modelName, opts.URL),
		writer:      trace.NewWriter(c.cfg.ArtifactsDir, session, c.hubEmitter()),
		status:      StatusStarting,
	}
	run.dismisser = cookie.New(session, run.executor.ClickAt)

	if opts.TTSEnabled {
		apiKey := os.Getenv(c.cfg.APIKeyEnvVar)
		synth, serr := speech.NewGenAISynthesizer(apiKey, nil)
		if serr != nil {
			logging.RunWarn("run %s: tts requested but synthesizer unavailable: %v", runID, serr)
		} else {
			run.synth = synth
			watchdogs := config.GetTimeouts()
			run.speechGate = speech.NewGateWithBounds(c.publishTTS, watchdogs.SpeechWatchdogMin, watchdogs.SpeechWatchdogMax)
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	run.cancel = cancel

	c.mu.Lock()
	c.active = run
	c.mu.Unlock()

	if err := c.runStore.SaveRun(&store.RunRecord{
		ID:          runID,
		Persona:     p.Name,
		Mission:     opts.Objective,
		ModelName:   modelName,
		Status:      "running",
		StartedAt:   time.Now(),
		ArtifactDir: artifactDir,
		Options: store.RunOptions{
			DebugMode:       opts.DebugMode,
			TTSEnabled:      opts.TTSEnabled,
			HeadlessMode:    opts.HeadlessMode,
			SaveTrace:       opts.SaveTrace,
			SaveThoughts:    opts.SaveThoughts,
			SaveScreenshots: opts.SaveScreenshots,
			StartURL:        opts.URL,
		},
	}); err != nil {
		logging.RunWarn("run %s: failed to persist run record: %v", runID, err)
	}

	info := RunInfo{
		RunID:       runID,
		Persona:     p.Name,
		Objective:   opts.Objective,
		ModelName:   modelName,
		StartURL:    opts.URL,
		ArtifactDir: artifactDir,
		StartedAt:   time.Now(),
		Status:      StatusStarting,
	}

	go c.runLoop(loopCtx, run)
	go c.followTabs(loopCtx, run)
	go c.followCursor(loopCtx, run)

	c.hub.emit(EventStatus, map[string]interface{}{"status": string(StatusStarting), "runId": runID})
	return info, nil
}

// Stop cancels the active Run's loop and waits for nothing: teardown
// happens asynchronously inside runLoop's defer chain.
func (c *Controller) Stop() error {
	c.mu.Lock()
	run := c.active
	c.mu.Unlock()
	if run == nil {
		return nil
	}
	run.cancel()
	return nil
}

// Ack forwards a tts_done acknowledgement to the active Run's Speech Gate.
func (c *Controller) Ack(id string) {
	c.mu.Lock()
	run := c.active
	c.mu.Unlock()
	if run != nil && run.speechGate != nil {
		run.speechGate.Ack(id)
	}
}

// ToggleTTS enables or disables voice for the active Run. An outstanding
// Speak call is already bound to the loop's ctx and Ack/watchdog, so
// disabling here only stops the next turn from starting a new one.
func (c *Controller) ToggleTTS(enabled bool) {
	c.mu.Lock()
	run := c.active
	c.mu.Unlock()
	if run == nil {
		return
	}
	run.opts.TTSEnabled = enabled
}

func (c *Controller) resolvePersona(name string) persona.Persona {
	if name != "" {
		if p, ok := c.personas.Get(name); ok {
			return p
		}
		logging.RunWarn("persona %q not found, falling back to default", name)
	}
	all := c.personas.List()
	if len(all) > 0 {
		return all[0]
	}
	return persona.Persona{
		Name:       "default",
		BasePrompt: "You are a careful, literal web operator pursuing the stated objective.",
		Context:    persona.DefaultContextOptions(),
	}
}

func (c *Controller) buildProvider(opts Options, p persona.Persona, modelName string) (decision.Provider, error) {
	switch {
	case opts.MonkeyMode:
		return decision.NewMonkeyProvider(rand.New(rand.NewSource(time.Now().UnixNano()))), nil
	case opts.BareMode:
		return decision.NewBareGenAIProvider(os.Getenv(c.cfg.APIKeyEnvVar), modelName)
	default:
		return decision.NewGenAIProvider(os.Getenv(c.cfg.APIKeyEnvVar), modelName, p.BasePrompt)
	}
}

func (c *Controller) hubEmitter() trace.Emitter {
	return func(kind string, payload map[string]interface{}) {
		c.hub.emit(EventKind(kind), payload)
	}
}

func (c *Controller) publishTTS(req speech.Request) {
	c.hub.emit(EventTTS, map[string]interface{}{
		"id":       req.ID,
		"text":     req.Text,
		"watchdog": req.Watchdog.String(),
	})
}

// followTabs re-centers the cursor on every popup/navigation and stops the
// run outright if the followed tab closes or crashes with nothing to fall
// back to.
func (c *Controller) followTabs(ctx context.Context, run *activeRun) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-run.session.Events:
			if !ok {
				return
			}
			sw := action.HandleTabEvent(run.executor, run.session, ev)
			run.recorder.RecordTraceStep(trace.TraceStep{
				Action: "tab-switch",
				URL:    sw.URL,
				Note:   string(sw.Kind),
			})
			c.hub.emit(EventStep, map[string]interface{}{"action": "tab-switch", "kind": string(sw.Kind), "url": sw.URL})
			if !sw.Survived {
				logging.RunWarn("run %s: followed tab %s with no surviving page, stopping", run.runID, sw.Kind)
				run.cancel()
				return
			}
		}
	}
}

// followCursor republishes the Executor's cursor-trajectory stream onto the
// Hub so an operator view can render the live cursor trail spec.md §6
// documents, for as long as the Run is active.
func (c *Controller) followCursor(ctx context.Context, run *activeRun) {
	events := run.executor.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.hub.emit(EventCursor, map[string]interface{}{
				"x":              ev.X,
				"y":              ev.Y,
				"viewportWidth":  ev.ViewportWidth,
				"viewportHeight": ev.ViewportHeight,
			})
		}
	}
}

// runLoop drives the 9-step per-turn sequence until stopped, the page is
// gone, or the decision engine emits "done".
func (c *Controller) runLoop(ctx context.Context, run *activeRun) {
	finalStatus := "stopped"
	defer func() {
		c.teardown(run, finalStatus)
	}()

	select {
	case <-ctx.Done():
		return
	case <-time.After(hydrationWait):
	}

	timeouts := config.GetTimeouts()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if run.session.Page() == nil {
			logging.RunWarn("run %s: no active page, stopping", run.runID)
			return
		}

		// 1. cookie pass.
		c.setStatus(run, StatusScanning)
		if dismissed, layer, thought := run.dismisser.Run(ctx); dismissed {
			run.recorder.RecordThought(thought, c.currentURL(ctx, run))
			run.recorder.RecordTraceStep(trace.TraceStep{Action: "cookie-dismiss", Note: layer})
			c.hub.emit(EventStep, map[string]interface{}{"action": "cookie-dismiss", "layer": layer})
		}

		// 2. perception, bounded by the SoM scan ceiling.
		scanCtx, cancelScan := context.WithTimeout(ctx, timeouts.SoMScan)
		obs, err := somperception.Discover(scanCtx, run.session)
		cancelScan()
		if err != nil {
			msg := fmt.Sprintf("Perception failed (%v); continuing with the raw screenshot.", err)
			logging.PerceptionWarn("run %s: %s", run.runID, msg)
			run.recorder.RecordThought(msg, c.currentURL(ctx, run))
			c.hub.emit(EventThought, map[string]interface{}{"message": msg})
			obs = &somperception.PageObservation{}
		}

		url, title, _ := run.session.PageInfo(ctx)

		// 3. screenshot: the marked capture always goes to the model; the
		// clean capture (or the marked one, when debug marks are already
		// on) is what gets streamed live to operators and optionally
		// persisted.
		_ = somperception.SetOverlayVisible(ctx, run.session, true)
		shot, shotErr := run.session.Screenshot(ctx, false)
		if shotErr != nil {
			logging.RunWarn("run %s: screenshot failed: %v", run.runID, shotErr)
		}

		streamShot := shot
		if !run.opts.DebugMode {
			_ = somperception.SetOverlayVisible(ctx, run.session, false)
			if clean, cerr := run.session.Screenshot(ctx, false); cerr == nil {
				streamShot = clean
			} else {
				logging.RunWarn("run %s: clean screenshot failed: %v", run.runID, cerr)
			}
			_ = somperception.SetOverlayVisible(ctx, run.session, true)
		}

		if streamShot != nil {
			c.hub.emit(EventScreenshot, map[string]interface{}{"data": dataURL(streamShot), "url": url})
		}
		if run.opts.SaveScreenshots && streamShot != nil {
			c.saveScreenshot(run, streamShot, url)
		}

		// 4. decide.
		c.setStatus(run, StatusThinking)
		dec, err := run.provider.Decide(ctx, decision.Request{
			Objective:   run.opts.Objective,
			URL:         url,
			Title:       title,
			Observation: *obs,
			Screenshot:  shot,
			History:     run.history,
			Failed:      run.failed,
			PersonaBase: run.persona.BasePrompt,
		})
		if err != nil {
			c.onTurnError(ctx, run, fmt.Errorf("decision failed: %w", err), "")
			continue
		}

		// 5. history + stagnation.
		entry := decision.HistoryEntry{
			Action:    dec.Action,
			TargetID:  dec.TargetID,
			Value:     dec.Value,
			Thought:   dec.Thought,
			Success:   true,
			Timestamp: time.Now(),
		}
		run.history = append(run.history, entry)
		run.stagnation.Observe(run.history)

		// 6. thought + speech.
		run.recorder.RecordThought(dec.Thought, url)
		c.hub.emit(EventThought, map[string]interface{}{"message": dec.Thought, "url": url})
		if run.opts.TTSEnabled && run.speechGate != nil && dec.Thought != "" {
			if _, serr := run.speechGate.Speak(ctx, run.synth, dec.Thought, run.persona.voiceName()); serr != nil {
				logging.SpeechWarn("run %s: speak did not resolve cleanly: %v", run.runID, serr)
			}
		}

		// 7. termination check.
		if dec.Action == decision.ActionDone || run.stagnation.Stagnant() {
			stepID := run.recorder.RecordStep(string(dec.Action), dec.TargetID, dec.Value, dec.Thought, url)
			c.hub.emit(EventStep, map[string]interface{}{
				"id":       stepID,
				"action":   string(dec.Action),
				"targetId": dec.TargetID,
				"value":    dec.Value,
				"thought":  dec.Thought,
				"success":  true,
			})
			finalStatus = "stopped"
			return
		}

		// 8. execute.
		c.setStatus(run, StatusActing)
		result := c.execute(ctx, run, dec)
		stepID := run.recorder.RecordStep(string(dec.Action), dec.TargetID, dec.Value, dec.Thought, url)
		run.recorder.RecordTraceStep(trace.TraceStep{
			Action:    string(dec.Action),
			URL:       url,
			Selector:  result.Selector,
			HasCoords: result.Success && dec.Action == decision.ActionClick,
			X:         result.X,
			Y:         result.Y,
			Value:     dec.Value,
		})
		c.hub.emit(EventStep, map[string]interface{}{
			"id":       stepID,
			"action":   string(dec.Action),
			"targetId": dec.TargetID,
			"value":    dec.Value,
			"thought":  dec.Thought,
			"success":  result.Success,
		})
		if !result.Success {
			run.failed.Charge(dec.TargetID)
		}

		// 9. settle.
		select {
		case <-ctx.Done():
			return
		case <-time.After(timeouts.TurnSettle):
		}
	}
}

func (run *activeRun) voiceName() string {
	if run.persona.Voice != nil {
		return run.persona.Voice.Name
	}
	return ""
}

func (c *Controller) execute(ctx context.Context, run *activeRun, dec decision.Decision) action.Result {
	switch dec.Action {
	case decision.ActionClick:
		res, err := run.executor.Click(ctx, dec.TargetID)
		if err != nil {
			logging.ActionWarn("run %s: click failed: %v", run.runID, err)
		}
		return res
	case decision.ActionType:
		res, err := run.executor.Type(ctx, dec.TargetID, dec.Value)
		if err != nil {
			logging.ActionWarn("run %s: type failed: %v", run.runID, err)
		}
		return res
	case decision.ActionScroll:
		res, err := run.executor.Scroll(ctx)
		if err != nil {
			logging.ActionWarn("run %s: scroll failed: %v", run.runID, err)
		}
		return res
	case decision.ActionWait:
		res, err := run.executor.Wait(ctx)
		if err != nil {
			logging.ActionWarn("run %s: wait failed: %v", run.runID, err)
		}
		return res
	default:
		return action.Result{Success: true}
	}
}

func (c *Controller) onTurnError(ctx context.Context, run *activeRun, err error, targetID string) {
	url := c.currentURL(ctx, run)
	run.recorder.RecordError(err.Error(), url)
	c.hub.emit(EventError, map[string]interface{}{"message": err.Error(), "url": url})
	if targetID != "" {
		run.failed.Charge(targetID)
	}
	logging.RunError("run %s: %v", run.runID, err)

	select {
	case <-ctx.Done():
	case <-time.After(config.GetTimeouts().FailureBackoff):
	}
}

func (c *Controller) currentURL(ctx context.Context, run *activeRun) string {
	url, _, err := run.session.PageInfo(ctx)
	if err != nil {
		return ""
	}
	return url
}

func (c *Controller) saveScreenshot(run *activeRun, data []byte, url string) {
	dir := filepath.Join(run.artifactDir, "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logging.TraceWarn("run %s: create screenshots dir: %v", run.runID, err)
		return
	}
	name := fmt.Sprintf("shot-%d.png", run.recorder.StepCount())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logging.TraceWarn("run %s: write screenshot: %v", run.runID, err)
		return
	}
	run.recorder.RecordScreenshot(path, url)
}

// dataURL encodes a PNG screenshot as the data URL spec.md §6's screenshot
// event carries, so operators never need filesystem access to render it.
func dataURL(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

func (c *Controller) setStatus(run *activeRun, s Status) {
	run.status = s
	c.hub.emit(EventStatus, map[string]interface{}{"status": string(s), "runId": run.runID})
}

func (c *Controller) teardown(run *activeRun, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if url, _, err := run.session.PageInfo(ctx); err == nil {
		run.recorder.SetFinalURL(url)
	}

	if err := run.writer.Flush(ctx, run.recorder, trace.Toggles{
		SaveTrace:    run.opts.SaveTrace,
		SaveThoughts: run.opts.SaveThoughts,
	}); err != nil {
		logging.TraceWarn("run %s: flush artifacts: %v", run.runID, err)
	}

	if err := run.session.Shutdown(ctx); err != nil {
		logging.RunWarn("run %s: shutdown: %v", run.runID, err)
	}

	if err := c.runStore.MarkFinished(run.runID, status); err != nil {
		logging.StoreWarn("run %s: mark finished: %v", run.runID, err)
	}

	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()

	c.hub.emit(EventStatus, map[string]interface{}{"status": string(StatusStopped), "runId": run.runID})
}

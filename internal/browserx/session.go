// Package browserx drives the single browser context a Run operates in:
// launch/connect, navigation, tab-follow across popup/crash/close targets,
// and the low-level primitives (click, type, screenshot, PDF print, JS eval)
// that perception and action build on.
package browserx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"journeyagent/internal/logging"
)

// Config holds browser launch and runtime configuration. Most fields mirror
// a Persona's preferences: viewport, whether the session runs headless, and
// the navigation timeout that should scale with how patient the persona is.
type Config struct {
	DebuggerURL         string   `json:"debugger_url"`
	Launch              []string `json:"launch"`
	Headless            bool     `json:"headless"`
	ViewportWidth       int      `json:"viewport_width"`
	ViewportHeight      int      `json:"viewport_height"`
	NavigationTimeoutMs int      `json:"navigation_timeout_ms"`
	UserAgent           string   `json:"user_agent"`
	DeviceScale         float64  `json:"device_scale"`
	Locale              string   `json:"locale"`
	Timezone            string   `json:"timezone"`
	ReducedMotion       bool     `json:"reduced_motion"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:            false,
		ViewportWidth:       1440,
		ViewportHeight:      900,
		NavigationTimeoutMs: 30000,
		DeviceScale:         1,
		Locale:              "en-US",
		Timezone:            "UTC",
	}
}

func (c Config) deviceScale() float64 {
	if c.DeviceScale == 0 {
		return 1
	}
	return c.DeviceScale
}

func (c Config) viewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1440
	}
	return c.ViewportWidth
}

func (c Config) viewportHeight() int {
	if c.ViewportHeight == 0 {
		return 900
	}
	return c.ViewportHeight
}

func (c Config) navigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// TargetKind identifies which tab-follow transition produced the active page.
type TargetKind string

const (
	TargetPage  TargetKind = "page"
	TargetPopup TargetKind = "popup"
	TargetClose TargetKind = "close"
	TargetCrash TargetKind = "crash"
)

// TabEvent is pushed to Session.Events whenever the followed tab changes.
type TabEvent struct {
	Kind TargetKind
	URL  string
	At   time.Time
}

// Session owns exactly one followed browser tab for the lifetime of a Run.
type Session struct {
	cfg        Config
	mu         sync.RWMutex
	browser    *rod.Browser
	page       *rod.Page
	controlURL string

	Events chan TabEvent

	cancelFollow context.CancelFunc
}

// New creates a Session. The browser is not launched until Start is called.
func New(cfg Config) *Session {
	return &Session{
		cfg:    cfg,
		Events: make(chan TabEvent, 16),
	}
}

// Start connects to an existing Chrome instance (DebuggerURL) or launches one.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		_ = s.browser.Close()
		s.browser = nil
		s.controlURL = ""
	}

	controlURL := s.cfg.DebuggerURL
	if controlURL == "" && len(s.cfg.Launch) > 0 {
		bin := s.cfg.Launch[0]
		l := launcher.New().Bin(bin).Headless(s.cfg.Headless)
		for _, rawFlag := range s.cfg.Launch[1:] {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				l = l.Set(flags.Flag(name), val)
			} else {
				l = l.Set(flags.Flag(name))
			}
		}
		url, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}
	if controlURL == "" {
		url, err := launcher.New().Headless(s.cfg.Headless).Launch()
		if err != nil {
			return fmt.Errorf("no debugger_url and failed to launch: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	s.browser = browser
	s.controlURL = controlURL
	logging.Browser("browser connected at %s", controlURL)
	return nil
}

// Open navigates the followed tab to url, creating it if this is the first call.
func (s *Session) Open(ctx context.Context, url string) error {
	s.mu.Lock()
	if s.browser == nil {
		s.mu.Unlock()
		return errors.New("browser not started")
	}
	if s.page == nil {
		page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("create page: %w", err)
		}
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             s.cfg.viewportWidth(),
			Height:            s.cfg.viewportHeight(),
			DeviceScaleFactor: s.cfg.deviceScale(),
			Mobile:            false,
		}).Call(page); err != nil {
			logging.BrowserWarn("failed to set viewport: %v", err)
		}
		if s.cfg.Locale != "" {
			if err := (proto.EmulationSetLocaleOverride{Locale: s.cfg.Locale}).Call(page); err != nil {
				logging.BrowserWarn("failed to set locale: %v", err)
			}
		}
		if s.cfg.Timezone != "" {
			if err := (proto.EmulationSetTimezoneOverride{TimezoneID: s.cfg.Timezone}).Call(page); err != nil {
				logging.BrowserWarn("failed to set timezone: %v", err)
			}
		}
		if s.cfg.ReducedMotion {
			if err := (proto.EmulationSetEmulatedMedia{
				Features: []*proto.EmulationMediaFeature{{Name: "prefers-reduced-motion", Value: "reduce"}},
			}).Call(page); err != nil {
				logging.BrowserWarn("failed to set reduced-motion media feature: %v", err)
			}
		}
		s.page = page
		s.startTabFollow(ctx)
	}
	page := s.page
	s.mu.Unlock()

	return page.Context(ctx).Timeout(s.cfg.navigationTimeout()).Navigate(url)
}

// Page returns the currently followed page, or nil if none is open.
func (s *Session) Page() *rod.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// Click performs a plain left-click at the element matched by selector.
// Most clicks should go through internal/action's human-motion cursor instead;
// this is the direct primitive for layers (like cookie dismissal) that don't.
func (s *Session) Click(ctx context.Context, selector string) error {
	page := s.Page()
	if page == nil {
		return errors.New("no active page")
	}
	el, err := page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %w", err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// PageInfo returns the active page's current URL and title, used to
// stamp decisions, trace steps, and report metadata.
func (s *Session) PageInfo(ctx context.Context) (url, title string, err error) {
	page := s.Page()
	if page == nil {
		return "", "", errors.New("no active page")
	}
	info, err := page.Context(ctx).Info()
	if err != nil {
		return "", "", fmt.Errorf("read page info: %w", err)
	}
	return info.URL, info.Title, nil
}

// Eval runs JS in the page context and returns the raw JSON-encoded result value.
func (s *Session) Eval(ctx context.Context, js string, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	page := s.Page()
	if page == nil {
		return nil, errors.New("no active page")
	}
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Screenshot captures the followed page.
func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	page := s.Page()
	if page == nil {
		return nil, errors.New("no active page")
	}
	return page.Context(ctx).Screenshot(fullPage, nil)
}

// PrintPDF renders html on a throwaway page and returns the PDF bytes. Used
// by the report builder: go-rod's own CDP print is the only PDF renderer
// available anywhere in this stack.
func (s *Session) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	s.mu.RLock()
	browser := s.browser
	s.mu.RUnlock()
	if browser == nil {
		return nil, errors.New("browser not started")
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create report page: %w", err)
	}
	defer page.Close()

	if err := page.Context(ctx).SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set report content: %w", err)
	}

	reader, err := page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	buf := make([]byte, 0, 64*1024)
	chunk := make([]byte, 32*1024)
	for {
		n, rerr := reader.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if rerr != nil {
			break
		}
	}
	return buf, nil
}

// startTabFollow watches for popup/crash/close/navigation target changes on
// the followed tab. A popup opened by the active page becomes the active
// page. A crash or close of the active page is only reported on Events: the
// active page is not reassigned to another surviving tab.
func (s *Session) startTabFollow(ctx context.Context) {
	followCtx, cancel := context.WithCancel(ctx)
	s.cancelFollow = cancel

	go func() {
		waitNav := s.page.Context(followCtx).EachEvent(func(ev *proto.PageFrameNavigated) {
			s.emit(TabEvent{Kind: TargetPage, URL: ev.Frame.URL, At: time.Now()})
		})
		waitNav()
	}()

	go func() {
		waitTarget := s.browser.Context(followCtx).EachEvent(
			func(ev *proto.TargetTargetCreated) {
				if ev.TargetInfo.OpenerID == "" {
					return
				}
				s.mu.RLock()
				current := s.page
				s.mu.RUnlock()
				if current == nil || ev.TargetInfo.OpenerID != current.TargetID {
					return
				}
				popup, err := s.browser.PageFromTarget(ev.TargetInfo.TargetID)
				if err != nil {
					logging.BrowserWarn("tab-follow: attach popup: %v", err)
					return
				}
				s.mu.Lock()
				s.page = popup
				s.mu.Unlock()
				s.emit(TabEvent{Kind: TargetPopup, URL: ev.TargetInfo.URL, At: time.Now()})
			},
			func(ev *proto.TargetTargetCrashed) {
				s.mu.RLock()
				current := s.page
				s.mu.RUnlock()
				if current == nil || ev.TargetID != current.TargetID {
					return
				}
				s.emit(TabEvent{Kind: TargetCrash, At: time.Now()})
			},
			func(ev *proto.TargetTargetDestroyed) {
				s.mu.RLock()
				current := s.page
				s.mu.RUnlock()
				if current == nil || ev.TargetID != current.TargetID {
					return
				}
				s.emit(TabEvent{Kind: TargetClose, At: time.Now()})
			},
		)
		waitTarget()
	}()
}

func (s *Session) emit(ev TabEvent) {
	select {
	case s.Events <- ev:
	default:
		logging.BrowserWarn("tab event channel full, dropping %s event", ev.Kind)
	}
}

// Shutdown closes the followed page and the browser.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelFollow != nil {
		s.cancelFollow()
	}
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.controlURL = ""
	return err
}

// ControlURL returns the CDP websocket URL the session is attached to.
func (s *Session) ControlURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controlURL
}

// IsConnected reports whether the browser is attached.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.browser != nil
}

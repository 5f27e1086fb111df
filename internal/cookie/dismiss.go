// Package cookie implements the layered cookie/consent-banner dismisser that
// runs at the top of every control-loop turn. Detection and candidate
// scoring are done the way honeypot.go split element analysis from
// scoring: an injected script pulls a flat list of candidate elements off
// the page, and plain Go functions score and pick among them. There is no
// rule engine here — the four layers below are a fixed escalation, not an
// extensible rule set.
package cookie

import (
	"context"
	"fmt"
	"time"

	"journeyagent/internal/browserx"
	"journeyagent/internal/logging"
)

// strictSelectors are known-good vendor consent-accept selectors.
var strictSelectors = []string{
	"#onetrust-accept-btn-handler",
	".onetrust-close-btn-handler",
	"#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll",
	"#CybotCookiebotDialogBodyButtonAccept",
	".cookie-consent button.accept",
	".cookie-consent [data-accept-all]",
	"[data-testid='accept-all']",
	"[data-testid='uc-accept-all-button']",
	"#accept-all-cookies",
	"button[aria-label='Accept all']",
}

// acceptPhrases is the accept-phrase whitelist used by the container+text
// layer and the vision-coordinate layer's scoring function.
var acceptPhrases = []string{
	"alle akzeptieren",
	"accept all cookies",
	"accept all",
	"zustimmen",
	"ich stimme zu",
	"allow all",
	"agree",
	"accept cookies",
	"alle zulassen",
}

// cookieKeywords trigger the textual-surface detection fallback.
var cookieKeywords = []string{"cookie", "cookies", "consent", "datenschutz", "privacy"}

// Clicker performs a simulated click at a viewport coordinate using the
// human-motion cursor (internal/action). Injected so this package does not
// need to depend on the action package or duplicate its Bezier-path logic.
type Clicker func(ctx context.Context, x, y float64) error

// Dismisser runs the four-layer cookie-surface elimination.
type Dismisser struct {
	session *browserx.Session
	click   Clicker
}

// New creates a Dismisser bound to a browser session. click is used only by
// the vision-coordinate fallback layer.
func New(session *browserx.Session, click Clicker) *Dismisser {
	return &Dismisser{session: session, click: click}
}

// Layer names recorded on trace steps and audit events.
const (
	LayerStrictSelector    = "strict_selector"
	LayerContainerText     = "container_text_pattern"
	LayerIframe            = "iframe_pass"
	LayerVisionFallback    = "vision_coordinate_fallback"
	settleDelay            = 850 * time.Millisecond
)

// Run detects a cookie surface and, if present, attempts dismissal through
// escalating layers until the surface disappears or all layers are
// exhausted. It never returns an error that should abort the run — cookie
// handling failures are always absorbed by the caller via the returned bool.
func (d *Dismisser) Run(ctx context.Context) (dismissed bool, layer string, thought string) {
	present, err := d.Detect(ctx)
	if err != nil {
		logging.CookieWarn("detect failed: %v", err)
		return false, "", ""
	}
	if !present {
		return false, "", ""
	}

	logging.Cookie("cookie surface detected, attempting dismissal")

	type attempt struct {
		name string
		fn   func(context.Context) (bool, error)
	}
	attempts := []attempt{
		{LayerStrictSelector, d.tryStrictSelectors},
		{LayerContainerText, d.tryContainerTextPattern},
		{LayerIframe, d.tryIframePass},
		{LayerVisionFallback, d.tryVisionFallback},
	}

	for _, a := range attempts {
		clicked, err := a.fn(ctx)
		if err != nil {
			logging.CookieDebug("layer %s error: %v", a.name, err)
			continue
		}
		if !clicked {
			continue
		}

		select {
		case <-time.After(settleDelay):
		case <-ctx.Done():
			return false, "", ""
		}

		stillPresent, err := d.Detect(ctx)
		if err != nil || !stillPresent {
			logging.Audit().CookieDismissed(a.name)
			return true, a.name, fmt.Sprintf("dismissed cookie surface via %s", a.name)
		}
		logging.CookieDebug("layer %s clicked but surface still present, escalating", a.name)
	}

	return false, "", "cookie surface resisted all dismissal layers"
}

// Detect reports whether a cookie/consent surface is currently visible.
func (d *Dismisser) Detect(ctx context.Context) (bool, error) {
	res, err := d.session.Eval(ctx, detectScript, strictSelectors, cookieKeywords)
	if err != nil {
		return false, err
	}
	if res == nil {
		return false, nil
	}
	return res.Value.Bool(), nil
}

func (d *Dismisser) tryStrictSelectors(ctx context.Context) (bool, error) {
	for _, sel := range strictSelectors {
		clickCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		err := d.session.Click(clickCtx, sel)
		cancel()
		if err == nil {
			return true, nil
		}
	}
	return false, nil
}

func (d *Dismisser) tryContainerTextPattern(ctx context.Context) (bool, error) {
	res, err := d.session.Eval(ctx, containerTextScript, acceptPhrases, cookieKeywords)
	if err != nil || res == nil {
		return false, err
	}
	selector := res.Value.String()
	if selector == "" {
		return false, nil
	}
	if err := d.session.Click(ctx, selector); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Dismisser) tryIframePass(ctx context.Context) (bool, error) {
	page := d.session.Page()
	if page == nil {
		return false, nil
	}
	frames, err := page.Context(ctx).Elements("iframe")
	if err != nil {
		return false, nil
	}
	for _, frame := range frames {
		p, err := frame.Frame()
		if err != nil {
			continue
		}
		for _, sel := range strictSelectors {
			el, err := p.Context(ctx).Timeout(300 * time.Millisecond).Element(sel)
			if err != nil || el == nil {
				continue
			}
			if err := el.Click(1, 1); err == nil {
				return true, nil
			}
		}
	}
	return false, nil
}

func (d *Dismisser) tryVisionFallback(ctx context.Context) (bool, error) {
	if d.click == nil {
		return false, fmt.Errorf("vision fallback requires a clicker")
	}
	res, err := d.session.Eval(ctx, visionScoreScript, acceptPhrases)
	if err != nil || res == nil {
		return false, err
	}

	var best struct {
		Found bool    `json:"found"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Score float64 `json:"score"`
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return false, err
	}
	if err := unmarshalInto(raw, &best); err != nil {
		return false, err
	}
	if !best.Found || best.Score <= 0 {
		return false, nil
	}

	logging.CookieDebug("vision fallback best candidate score=%.2f at (%.0f,%.0f)", best.Score, best.X, best.Y)
	return true, d.click(ctx, best.X, best.Y)
}

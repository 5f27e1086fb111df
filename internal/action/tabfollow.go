package action

import (
	"journeyagent/internal/browserx"
	"journeyagent/internal/logging"
)

// TabSwitch describes one followed-tab transition the Run Controller needs
// to record as a trace step and (for close/crash) decide whether to stop
// the run over.
type TabSwitch struct {
	Kind      browserx.TargetKind
	URL       string
	Survived  bool // false for close/crash with no other page to fall back to
}

// HandleTabEvent reacts to one browserx.TabEvent: on page/popup it
// re-centers the cursor (the new tab has no prior pointer history), on
// close/crash it reports whether the session still has an active page to
// continue on.
func HandleTabEvent(executor *Executor, session *browserx.Session, ev browserx.TabEvent) TabSwitch {
	switch ev.Kind {
	case browserx.TargetPage, browserx.TargetPopup:
		executor.ReinitCursor(Point{
			X: float64(executor.viewportWidth) / 2,
			Y: float64(executor.viewportHeight) / 2,
		})
		logging.Action("tab-follow: now on %s (%s)", ev.URL, ev.Kind)
		return TabSwitch{Kind: ev.Kind, URL: ev.URL, Survived: true}
	case browserx.TargetClose, browserx.TargetCrash:
		survived := session.Page() != nil
		logging.ActionWarn("tab-follow: %s, survived=%v", ev.Kind, survived)
		return TabSwitch{Kind: ev.Kind, URL: ev.URL, Survived: survived}
	default:
		return TabSwitch{Kind: ev.Kind, URL: ev.URL, Survived: true}
	}
}

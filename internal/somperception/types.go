// Package somperception implements Set-of-Marks discovery: it injects a
// traversal script into the active page that finds, scores, de-duplicates,
// and numbers interactable elements, then draws a collision-aware overlay.
// Go-side this package owns only the typed result and the toggle/eval
// plumbing; the algorithm itself ships as a single self-contained script,
// the way honeypot.go and session_manager.go ship their page-side logic.
package somperception

// SoMCandidate is one accepted, numbered interactable element.
type SoMCandidate struct {
	ID        int     `json:"id"`
	Tag       string  `json:"tag"`
	Role      string  `json:"role,omitempty"`
	Text      string  `json:"text,omitempty"`
	AriaLabel string  `json:"ariaLabel,omitempty"`
	Title     string  `json:"title,omitempty"`
	Href      string  `json:"href,omitempty"`
	Score     int     `json:"score"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// PageObservation is the result of one SoM injection.
type PageObservation struct {
	Count    int            `json:"count"`
	Elements []SoMCandidate `json:"elements"`
}

// rawResult mirrors the shape returned by the injected script, before
// trimming text fields is applied Go-side as a defense-in-depth backstop
// against a script that somehow returns untrimmed text.
type rawResult struct {
	Count    int            `json:"count"`
	Elements []SoMCandidate `json:"elements"`
}

func (r rawResult) toObservation() PageObservation {
	obs := PageObservation{Count: r.Count, Elements: make([]SoMCandidate, len(r.Elements))}
	for i, e := range r.Elements {
		e.Text = trim80(e.Text)
		e.AriaLabel = trim80(e.AriaLabel)
		e.Title = trim80(e.Title)
		obs.Elements[i] = e
	}
	return obs
}

func trim80(s string) string {
	if len(s) <= 80 {
		return s
	}
	return s[:80]
}

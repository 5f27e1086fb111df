package decision

import (
	"fmt"
	"sort"
	"strings"

	"journeyagent/internal/somperception"
)

const (
	maxMenuLabels  = 10
	maxMarkLines   = 20
	historyWindow  = 10
	outputContract = `Respond with a single JSON object only, no markdown fences and no commentary ` +
		`outside the object. Shape: {"action":"click|scroll|type|wait|done","targetId":"<mark id, ` +
		`if applicable>","value":"<text to type, if applicable>","thought":"<one or two sentences ` +
		`explaining why>"}. "thought" is required and must never be empty.`
)

var menuKeywords = []string{"menu", "nav", "home", "shop", "products", "account", "cart", "search", "sign in", "login"}

// buildPrompt assembles the full user-turn prompt: persona/mission, dynamic
// page context, failed-target hints, loop-guard hint, and a short history
// summary, followed by the fixed output contract.
func buildPrompt(req Request, persona string) string {
	var sb strings.Builder

	if persona != "" {
		sb.WriteString(persona)
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "## Objective\n\n%s\n\n", req.Objective)
	fmt.Fprintf(&sb, "## Current Page\n\nURL: %s\nTitle: %s\n%d interactive elements marked.\n\n",
		req.URL, req.Title, req.Observation.Count)

	if menu := menuLabels(req.Objective, req.Observation); len(menu) > 0 {
		sb.WriteString("## Navigation Landmarks\n\n")
		for _, m := range menu {
			sb.WriteString(formatMark(m))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if marks := topMarks(req.Observation); len(marks) > 0 {
		sb.WriteString("## Marked Elements\n\n")
		for _, m := range marks {
			sb.WriteString(formatMark(m))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if hint := failedTargetHint(req.Failed); hint != "" {
		sb.WriteString(hint)
		sb.WriteString("\n\n")
	}

	if hint := loopGuardHint(req.History); hint != "" {
		sb.WriteString(hint)
		sb.WriteString("\n\n")
	}

	if hist := historySummary(req.History); hist != "" {
		sb.WriteString("## Recent History\n\n")
		sb.WriteString(hist)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Output Contract\n\n")
	sb.WriteString(outputContract)

	return sb.String()
}

// formatMark renders one candidate as "#id <tag role=...> \"short label\"".
func formatMark(m somperception.SoMCandidate) string {
	label := m.Text
	if label == "" {
		label = m.AriaLabel
	}
	if label == "" {
		label = m.Title
	}
	roleAttr := ""
	if m.Role != "" {
		roleAttr = fmt.Sprintf(" role=%s", m.Role)
	}
	return fmt.Sprintf("#%d <%s%s> %q", m.ID, m.Tag, roleAttr, label)
}

// topMarks returns up to maxMarkLines highest-scoring candidates, highest
// score first, ties broken by mark id for determinism.
func topMarks(obs somperception.PageObservation) []somperception.SoMCandidate {
	marks := make([]somperception.SoMCandidate, len(obs.Elements))
	copy(marks, obs.Elements)
	sort.SliceStable(marks, func(i, j int) bool {
		if marks[i].Score != marks[j].Score {
			return marks[i].Score > marks[j].Score
		}
		return marks[i].ID < marks[j].ID
	})
	if len(marks) > maxMarkLines {
		marks = marks[:maxMarkLines]
	}
	return marks
}

// menuLabels returns up to maxMenuLabels candidates whose visible text
// looks like navigation/menu chrome or echoes a word from the objective.
func menuLabels(objective string, obs somperception.PageObservation) []somperception.SoMCandidate {
	objLower := strings.ToLower(objective)
	var out []somperception.SoMCandidate
	for _, m := range obs.Elements {
		text := strings.ToLower(m.Text)
		if text == "" {
			continue
		}
		match := false
		for _, kw := range menuKeywords {
			if strings.Contains(text, kw) {
				match = true
				break
			}
		}
		if !match {
			for _, word := range strings.Fields(objLower) {
				if len(word) >= 4 && strings.Contains(text, word) {
					match = true
					break
				}
			}
		}
		if match {
			out = append(out, m)
		}
		if len(out) >= maxMenuLabels {
			break
		}
	}
	return out
}

// failedTargetHint summarizes targets that have failed before, so the
// model is discouraged from retrying them blindly.
func failedTargetHint(failed FailedTargetLedger) string {
	if len(failed) == 0 {
		return ""
	}
	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	sb.WriteString("## Previously Failed Targets\n\n")
	for _, id := range ids {
		fmt.Fprintf(&sb, "- target #%s has failed %d time(s); avoid it unless nothing else fits.\n", id, failed[id])
	}
	return sb.String()
}

// historySummary renders the last historyWindow entries as compact lines.
func historySummary(history []HistoryEntry) string {
	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}
	if len(window) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, h := range window {
		status := "ok"
		if !h.Success {
			status = "failed"
		}
		fmt.Fprintf(&sb, "- %s target=%s value=%q (%s): %s\n", h.Action, h.TargetID, h.Value, status, h.Thought)
	}
	return sb.String()
}

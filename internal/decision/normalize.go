package decision

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawDecision mirrors the loosely-typed JSON a vision model returns. Models
// drift on field names and casing, so several aliases are accepted per
// field before normalize() collapses everything down to a Decision.
type rawDecision struct {
	Action     string      `json:"action"`
	TargetID   interface{} `json:"targetId"`
	Target     interface{} `json:"target"`
	MarkID     interface{} `json:"markId"`
	Value      string      `json:"value"`
	InputValue string      `json:"inputValue"`
	Text       string      `json:"text"`
	Thought    string      `json:"thought"`
	Reasoning  string      `json:"reasoning"`
}

// extractJSON finds the first balanced {...} object in a response, tolerant
// of markdown code fences and surrounding prose.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

// parseDecision extracts and normalizes a Decision from a raw model
// response string, applying the output contract: action aliasing,
// target-id stringification, value/inputValue aliasing, and a guaranteed
// non-empty thought.
func parseDecision(response string) (Decision, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return Decision{}, fmt.Errorf("no JSON object found in decision response")
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return Decision{}, fmt.Errorf("decision JSON parse failed: %w", err)
	}

	return normalize(raw), nil
}

func normalize(raw rawDecision) Decision {
	d := Decision{
		Action:   normalizeAction(raw.Action),
		TargetID: stringifyTarget(raw),
		Value:    firstNonEmpty(raw.Value, raw.InputValue, raw.Text),
		Thought:  firstNonEmpty(raw.Thought, raw.Reasoning),
	}
	if d.Thought == "" {
		d.Thought = "(no rationale given)"
	}
	return d
}

func normalizeAction(a string) Action {
	switch strings.ToLower(strings.TrimSpace(a)) {
	case "click":
		return ActionClick
	case "scroll":
		return ActionScroll
	case "type":
		return ActionType
	case "wait":
		return ActionWait
	case "done", "stop", "fail", "failed", "finish", "finished", "complete", "completed":
		return ActionDone
	default:
		return ActionWait
	}
}

func stringifyTarget(raw rawDecision) string {
	for _, v := range []interface{}{raw.TargetID, raw.Target, raw.MarkID} {
		if s := stringifyAny(v); s != "" {
			return s
		}
	}
	return ""
}

func stringifyAny(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

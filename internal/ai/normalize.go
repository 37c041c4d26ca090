package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExtractJSON strips Markdown code-fence wrapping and stray backticks from a
// raw model response so the remainder can be fed to the JSON decoder. Models
// routinely wrap their output in ```json fences despite being told not to.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// DecodeAssessment parses a raw scoring response into a MatchAssessment.
// The decode is permissive: the score may arrive as a number or a numeric
// string and is clamped to 0..100, missing lists become empty slices. A
// response that is not JSON at all is the caller's problem to fall back on.
func DecodeAssessment(raw string) (*MatchAssessment, error) {
	cleaned := ExtractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse match response: %w", err)
	}

	score := int(coerceFloat(data["score"]))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &MatchAssessment{
		Score:  score,
		Reason: coerceString(data["reason"]),
		Pros:   coerceStrings(data["pros"]),
		Cons:   coerceStrings(data["cons"]),
		Status: StatusCalculated,
	}, nil
}

// DecodeTurnReply parses a raw conversational response into a TurnReply.
// Updates is always non-nil so callers can merge without a nil check.
func DecodeTurnReply(raw string) (*TurnReply, error) {
	cleaned := ExtractJSON(raw)

	var reply TurnReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return nil, fmt.Errorf("parse turn response: %w", err)
	}

	if strings.TrimSpace(reply.Reply) == "" {
		return nil, fmt.Errorf("turn response has no reply text")
	}

	if reply.Updates == nil {
		reply.Updates = map[string]any{}
	}

	return &reply, nil
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nutribunda/mpasi-backend/internal/types"
)

// ParseError carries the raw model text alongside the parse failure so the
// boundary can return it for debugging.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse generated plan: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ParsePlanResponse normalizes model output into a DailyPlan. Tolerated
// format drift, in order:
//   - markdown code fences are stripped;
//   - a one-element array holding an object is unwrapped to that object;
//   - any other valid non-object JSON is kept under a "menu" envelope key
//     instead of being rejected.
//
// Text that is not valid JSON at all is a ParseError.
func ParsePlanResponse(raw string) (*types.DailyPlan, error) {
	cleaned := StripCodeFences(raw)
	if strings.TrimSpace(cleaned) == "" {
		return nil, &ParseError{Raw: raw, Cause: fmt.Errorf("empty response")}
	}

	var payload any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &ParseError{Raw: raw, Cause: err}
	}

	normalized := normalizePayload(payload)

	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, &ParseError{Raw: raw, Cause: err}
	}

	var plan types.DailyPlan
	if err := json.Unmarshal(encoded, &plan); err != nil {
		return nil, &ParseError{Raw: raw, Cause: err}
	}
	return &plan, nil
}

func normalizePayload(payload any) any {
	switch v := payload.(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) == 1 {
			if obj, ok := v[0].(map[string]any); ok {
				return obj
			}
		}
		return map[string]any{"menu": v}
	default:
		return map[string]any{"menu": v}
	}
}

// StripCodeFences removes a surrounding markdown fence (``` or ```json) when
// present; text without fences passes through unchanged.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		// Drop the language tag on the opening fence line.
		first := strings.TrimSpace(trimmed[:idx])
		if first == "" || isFenceLanguageTag(first) {
			trimmed = trimmed[idx+1:]
		}
	} else {
		trimmed = strings.TrimPrefix(trimmed, "json")
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func isFenceLanguageTag(s string) bool {
	for _, r := range s {
		if !('a' <= r && r <= 'z' || '0' <= r && r <= '9') {
			return false
		}
	}
	return true
}

package flow

import (
	"fmt"
	"strings"
)

// FormatAPIErrors extracts field errors from an error document. Two shapes
// are understood:
//
//	{"data": {"email": ["Email already taken"]}}
//	{"error": {"details": {"errors": [{"path": ["email"], "message": "..."}]}}}
//
// Only the first message per field is kept. Unknown shapes yield an empty map.
func FormatAPIErrors(body map[string]any) map[string]string {
	out := map[string]string{}

	if data, ok := body["data"].(map[string]any); ok {
		for field, v := range data {
			if msg, ok := firstMessage(v); ok {
				out[field] = msg
			}
		}
	}

	details, _ := valueAt(body, "error", "details", "errors")
	items, _ := details.([]any)
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		field := joinPath(entry["path"])
		msg, _ := entry["message"].(string)
		if field == "" || msg == "" {
			continue
		}
		if _, seen := out[field]; !seen {
			out[field] = msg
		}
	}

	return out
}

func firstMessage(v any) (string, bool) {
	switch msgs := v.(type) {
	case []any:
		if len(msgs) == 0 {
			return "", false
		}
		s, ok := msgs[0].(string)
		return s, ok
	case []string:
		if len(msgs) == 0 {
			return "", false
		}
		return msgs[0], true
	case string:
		return msgs, true
	}
	return "", false
}

func joinPath(v any) string {
	switch p := v.(type) {
	case []any:
		parts := make([]string, 0, len(p))
		for _, seg := range p {
			parts = append(parts, fmt.Sprint(seg))
		}
		return strings.Join(parts, ".")
	case []string:
		return strings.Join(p, ".")
	case string:
		return p
	}
	return ""
}

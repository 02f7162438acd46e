// Response parsing for the loosely-structured analyzer replies. The model
// is asked for pure JSON but rarely obliges, so each reply runs through an
// ordered chain of fallible parsers: fenced code block, then a balanced
// brace scan, then the whole text. First success wins.

package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// extractFencedJSON returns the contents of the first ```json fenced block
// and the full fenced span (including the fences) within s.
func extractFencedJSON(s string) (inner, span string, ok bool) {
	m := fencedJSONRe.FindStringSubmatchIndex(s)
	if m == nil {
		return "", "", false
	}
	return s[m[2]:m[3]], s[m[0]:m[1]], true
}

// extractBalancedSpan finds the first span delimited by open/close with
// balanced nesting, skipping delimiters inside JSON strings. If the span
// never closes it falls back to a greedy match ending at the last closer.
func extractBalancedSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	// Unbalanced; take everything up to the last closer, if any.
	if end := strings.LastIndexByte(s, close); end > start {
		return s[start : end+1], true
	}
	return "", false
}

// parseObject coerces the response text into a JSON object using the
// three-tier fallback chain. A nil map with ok=false means every tier
// failed and the caller should degrade to an empty contribution.
func parseObject(s string) (map[string]any, bool) {
	if inner, _, ok := extractFencedJSON(s); ok {
		var m map[string]any
		if err := json.Unmarshal([]byte(inner), &m); err == nil {
			return m, true
		}
	}
	if span, ok := extractBalancedSpan(s, '{', '}'); ok {
		var m map[string]any
		if err := json.Unmarshal([]byte(span), &m); err == nil {
			return m, true
		}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err == nil {
		return m, true
	}
	return nil, false
}

// activityItems pulls the activity array out of a decoded JSON value: an
// object carrying the named array field, or a bare array.
func activityItems(v any) ([]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		if arr, ok := t[FieldActivityData].([]any); ok {
			return arr, true
		}
	case []any:
		return t, true
	}
	return nil, false
}

// parseActivityResponse separates the activity reply into the structured
// array and the human-readable table. The matched JSON span is removed
// from the response and the remainder re-scanned for a pipe table; if no
// JSON can be identified at all, the entire response is treated as table
// content and the array stays empty.
func parseActivityResponse(s string) ([]any, string) {
	var items []any
	remainder := ""
	found := false

	if inner, span, ok := extractFencedJSON(s); ok {
		var v any
		if err := json.Unmarshal([]byte(inner), &v); err == nil {
			if arr, ok := activityItems(v); ok {
				items = arr
				remainder = strings.TrimSpace(strings.Replace(s, span, "", 1))
				found = true
			}
		}
	}
	if !found {
		if span, ok := extractBalancedSpan(s, '{', '}'); ok {
			var v any
			if err := json.Unmarshal([]byte(span), &v); err == nil {
				if arr, ok := activityItems(v); ok {
					items = arr
					remainder = strings.TrimSpace(strings.Replace(s, span, "", 1))
					found = true
				}
			}
		}
	}
	if !found {
		if span, ok := extractBalancedSpan(s, '[', ']'); ok {
			var v []any
			if err := json.Unmarshal([]byte(span), &v); err == nil {
				items = v
				remainder = strings.TrimSpace(strings.Replace(s, span, "", 1))
				found = true
			}
		}
	}

	if !found {
		// No parseable JSON anywhere; the whole reply is display content.
		if table, ok := extractPipeTable(s); ok {
			return []any{}, table
		}
		return []any{}, strings.TrimSpace(s)
	}

	if items == nil {
		items = []any{}
	}
	if table, ok := extractPipeTable(remainder); ok {
		return items, table
	}
	return items, remainder
}

// extractPipeTable returns the first maximal run of lines that each begin
// and end with '|', which is how the prompt asks for the markdown table.
func extractPipeTable(s string) (string, bool) {
	lines := strings.Split(s, "\n")
	var table []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") && len(trimmed) > 1 {
			table = append(table, trimmed)
		} else if len(table) > 0 {
			break
		}
	}
	if len(table) < 2 {
		// A lone pipe line is not a table.
		return "", false
	}
	return strings.Join(table, "\n"), true
}

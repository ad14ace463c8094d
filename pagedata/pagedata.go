// Package pagedata reads machine-readable blobs embedded in listing pages.
// Sites routinely ship malformed structured-data blocks (BOMs, HTML comment
// wrappers, trailing commas), so parsing here is deliberately forgiving:
// a one-character defect must not discard a high-value data source.
package pagedata

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// Sanitize strips a leading byte-order mark, HTML comment wrappers, and
// trailing commas before closing braces/brackets. The comma repair is a blunt
// textual rewrite that can touch string values too; SafeParse only falls back
// to it once a strict parse has already failed.
func Sanitize(text string) string {
	s := stripWrappers(text)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return s
}

func stripWrappers(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.TrimSpace(strings.TrimPrefix(s, "<!--"))
	s = strings.TrimSpace(strings.TrimSuffix(s, "-->"))
	return s
}

// SafeParse decodes a JSON blob. Well-formed input is parsed as-is so its
// string values survive byte for byte; only on failure is the trailing-comma
// repair applied and the parse retried. Returns nil on any failure; it never
// panics or propagates a parse error.
func SafeParse(text string) any {
	s := stripWrappers(text)
	if s == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	repaired := trailingCommaRe.ReplaceAllString(s, "$1")
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil
	}
	return v
}

// FindKey walks a decoded JSON value breadth-first and returns the first
// value stored under any of the candidate keys. Hydration payload shapes are
// site-specific black boxes, so a generic search beats fixed paths. Map
// children are visited in sorted key order so ties between sibling subtrees
// resolve the same way on every run.
func FindKey(root any, keys ...string) (any, bool) {
	if root == nil || len(keys) == 0 {
		return nil, false
	}

	queue := []any{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		switch n := node.(type) {
		case map[string]any:
			for _, k := range keys {
				if v, ok := n[k]; ok && v != nil {
					return v, true
				}
			}
			childKeys := make([]string, 0, len(n))
			for k := range n {
				childKeys = append(childKeys, k)
			}
			sort.Strings(childKeys)
			for _, k := range childKeys {
				switch n[k].(type) {
				case map[string]any, []any:
					queue = append(queue, n[k])
				}
			}
		case []any:
			for _, v := range n {
				switch v.(type) {
				case map[string]any, []any:
					queue = append(queue, v)
				}
			}
		}
	}
	return nil, false
}

// AsString renders a scalar as a string, or "" when it is not one.
func AsString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		b, _ := json.Marshal(s)
		return string(b)
	default:
		return ""
	}
}

// StringSlice collects string elements from a decoded JSON array, looking one
// level into element objects for a url-ish key when the array holds objects.
func StringSlice(v any, objectKeys ...string) []string {
	arr, ok := v.([]any)
	if !ok {
		if s := AsString(v); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, el := range arr {
		if s, ok := el.(string); ok && s != "" {
			out = append(out, s)
			continue
		}
		if m, ok := el.(map[string]any); ok {
			for _, k := range objectKeys {
				if s := AsString(m[k]); s != "" {
					out = append(out, s)
					break
				}
			}
		}
	}
	return out
}

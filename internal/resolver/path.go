package resolver

import (
	"strconv"
	"strings"
)

// Lookup evaluates a minimal dot/bracket extraction path against a decoded
// JSON document. Supported syntax: dot-separated keys with optional [n]
// index suffixes, e.g. "rates.EUR" or "current_condition[0].temp_C". It is
// deliberately not a full path-query language. The second return value is
// false when any segment is missing.
func Lookup(doc any, path string) (any, bool) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return nil, false
		}
		key, indexes, ok := splitSegment(seg)
		if !ok {
			return nil, false
		}
		if key != "" {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = m[key]
			if !ok {
				return nil, false
			}
		}
		for _, idx := range indexes {
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	return cur, true
}

// splitSegment splits "key[1][2]" into its key and index parts. A segment may
// also be pure indexes ("[0]") or a bare key.
func splitSegment(seg string) (string, []int, bool) {
	open := strings.IndexByte(seg, '[')
	if open == -1 {
		return seg, nil, true
	}

	key := seg[:open]
	rest := seg[open:]
	var indexes []int
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, false
		}
		close := strings.IndexByte(rest, ']')
		if close == -1 {
			return "", nil, false
		}
		n, err := strconv.Atoi(rest[1:close])
		if err != nil {
			return "", nil, false
		}
		indexes = append(indexes, n)
		rest = rest[close+1:]
	}
	return key, indexes, true
}

// Numeric coerces an extracted JSON value to a float64. JSON numbers decode
// to float64 already; numeric strings (some feeds quote their numbers) are
// parsed. Anything else fails.
func Numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

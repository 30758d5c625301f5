package definition

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// stepTextKeys are tried, in order, when a sequence element is itself a mapping.
var stepTextKeys = []string{"text", "step", "action", "description", "value"}

// stringify renders a polymorphic scalar as text.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case map[string]any:
		for _, k := range stepTextKeys {
			if t, ok := x[k]; ok {
				return stringify(t)
			}
		}
	}
	return fmt.Sprint(v)
}

// isScalar reports whether v is a single text or number value.
func isScalar(v any) bool {
	switch v.(type) {
	case []any, []string, map[string]any, map[any]any:
		return false
	}
	return true
}

// normalizeSequence coerces missing values to an empty sequence, scalars to a
// one-element sequence, and null elements to empty text.
func normalizeSequence(v any) []string {
	switch x := v.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string{}, x...)
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			out[i] = stringify(e)
		}
		return out
	case map[string]any, map[any]any:
		return []string{}
	default:
		return []string{stringify(x)}
	}
}

// normalizeTroubleshooting returns problem/resolution pairs sorted by problem.
// Any non-mapping value yields an empty set and ok=false.
func normalizeTroubleshooting(v any) (pairs []Troubleshoot, ok bool) {
	var m map[string]any
	switch x := v.(type) {
	case nil:
		return []Troubleshoot{}, true
	case map[string]any:
		m = x
	case map[any]any:
		m = make(map[string]any, len(x))
		for k, val := range x {
			m[stringify(k)] = val
		}
	default:
		return []Troubleshoot{}, false
	}

	pairs = make([]Troubleshoot, 0, len(m))
	for k, val := range m {
		pairs = append(pairs, Troubleshoot{Problem: k, Resolution: stringify(val)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Problem < pairs[j].Problem })
	return pairs, true
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func describe(v any) string {
	switch v.(type) {
	case []any, []string:
		return "list"
	case map[string]any, map[any]any:
		return "mapping"
	case nil:
		return "null"
	}
	return "scalar"
}

package typemap

import (
	"encoding/json"
	"sort"
	"strings"
)

// maxSampleDepth bounds recursion into nested sample objects.
const maxSampleDepth = 4

// MapSample is Map with best-effort refinement of json/jsonb columns: when
// sample is a decoded JSON object the result is an inline structural type
// describing its keys. Any other sample, or a non-JSON column, yields the
// same result as Map.
func (m *Mapper) MapSample(raw string, sample any) string {
	t := Normalize(raw)
	if _, overridden := m.override(t); !overridden && isJSON(t) {
		if obj, ok := sample.(map[string]any); ok && len(obj) > 0 {
			return objectShape(obj, 0)
		}
	}
	return m.mapNormalized(t)
}

func objectShape(obj map[string]any, depth int) string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, len(keys))
	for i, k := range keys {
		fields[i] = quote(k) + ": " + valueShape(obj[k], depth+1)
	}
	return "{ " + strings.Join(fields, "; ") + " }"
}

func valueShape(v any, depth int) string {
	if depth > maxSampleDepth {
		return "any"
	}
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return Boolean
	case string:
		return String
	case float64, float32, int, int32, int64, json.Number:
		return Number
	case []any:
		if len(x) == 0 {
			return "any[]"
		}
		return valueShape(x[0], depth+1) + "[]"
	case map[string]any:
		if len(x) == 0 {
			return JSON
		}
		return objectShape(x, depth)
	default:
		return "any"
	}
}

// quote renders s as a double-quoted string literal valid in TypeScript.
func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

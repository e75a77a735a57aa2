// Package redact masks sensitive keys and truncates oversized payloads before
// they reach any log sink or span attribute. All entry points are total: bad
// input degrades to sentinel values, never to a panic or an error.
package redact

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// maxMaskDepth bounds recursion when masking nested structures. Cyclic or
// absurdly deep input stops descending and passes the remaining value through
// as an opaque string.
const maxMaskDepth = 32

// depthExceededValue replaces subtrees deeper than maxMaskDepth.
const depthExceededValue = "[depth limit exceeded]"

// Mask returns a copy of v with every value whose key matches the Matcher
// replaced by RedactedValue. It recurses into maps, structs (via JSON
// round-trip), and slice elements; scalars pass through unchanged. The input
// is never mutated.
func (m *Matcher) Mask(v any) any {
	return m.maskValue(normalize(v), 0)
}

// MaskMap masks a string-keyed map in place-of-copy form. Convenience for
// header maps and log field bags.
func (m *Matcher) MaskMap(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}

	masked, ok := m.maskValue(normalizeMap(fields), 0).(map[string]any)
	if !ok {
		return map[string]any{}
	}

	return masked
}

// MaskStringMap masks a flat string-to-string map (header shapes).
func (m *Matcher) MaskStringMap(fields map[string]string) map[string]string {
	if fields == nil {
		return nil
	}

	out := make(map[string]string, len(fields))

	for k, v := range fields {
		if m.Matches(k) {
			out[k] = RedactedValue
		} else {
			out[k] = v
		}
	}

	return out
}

func (m *Matcher) maskValue(v any, depth int) any {
	if depth > maxMaskDepth {
		return depthExceededValue
	}

	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))

		for k, item := range val {
			if m.Matches(k) {
				out[k] = RedactedValue
			} else {
				out[k] = m.maskValue(item, depth+1)
			}
		}

		return out

	case []any:
		out := make([]any, len(val))

		for i, item := range val {
			out[i] = m.maskValue(item, depth+1)
		}

		return out

	default:
		// Typed containers (map[string]string, structs, []map[string]any)
		// can sit at any depth; normalize and re-dispatch so their keys are
		// still matched. Scalars come back unchanged.
		normalized := normalize(v)

		switch normalized.(type) {
		case map[string]any, []any:
			return m.maskValue(normalized, depth)
		}

		return normalized
	}
}

// normalize converts arbitrary values into the map[string]any / []any / scalar
// shape the masker walks. Structs and typed maps go through a JSON round-trip;
// anything unserializable is stringified so masking still terminates.
func normalize(v any) any {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		map[string]any, []any:
		return v
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}

		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Sprintf("%v", v)
		}

		return decoded
	default:
		return v
	}
}

func normalizeMap(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = normalize(v)
	}

	return out
}

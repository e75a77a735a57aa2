package redact

import (
	"encoding/json"
	"fmt"
)

// UnserializableValue replaces values that cannot be serialized for size
// measurement.
const UnserializableValue = "[unserializable value]"

// DefaultMaxBodyBytes is the default payload size cap applied when a caller
// passes a non-positive limit.
const DefaultMaxBodyBytes = 4096

// Truncate caps v at maxBytes. Values at or under the limit are returned
// unchanged, so truncation is the identity at the boundary. Oversized values
// are replaced by the first maxBytes bytes plus a suffix stating the original
// size. Non-string values are JSON-serialized to measure; serialization
// failure yields UnserializableValue, never an error.
func Truncate(v any, maxBytes int) any {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	if s, ok := v.(string); ok {
		if len(s) <= maxBytes {
			return s
		}

		return truncated(s, maxBytes)
	}

	raw, err := marshalSafe(v)
	if err != nil {
		return UnserializableValue
	}

	if len(raw) <= maxBytes {
		return v
	}

	return truncated(string(raw), maxBytes)
}

func truncated(s string, maxBytes int) string {
	return fmt.Sprintf("%s ... [truncated, original %d bytes]", s[:maxBytes], len(s))
}

// marshalSafe wraps json.Marshal with panic containment: encoding/json panics
// on some exotic inputs (e.g. unsupported cyclic structures surface as errors,
// but custom marshalers may panic).
func marshalSafe(v any) (raw []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("marshal panic: %v", r)
		}
	}()

	return json.Marshal(v)
}

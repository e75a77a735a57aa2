//go:build unit

package redact

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateUnderLimitIsIdentity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", Truncate("short", 10))
}

func TestTruncateAtBoundaryIsIdentity(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("a", 10)
	assert.Equal(t, payload, Truncate(payload, 10))

	// Idempotence at the boundary: a second pass changes nothing.
	assert.Equal(t, payload, Truncate(Truncate(payload, 10), 10))
}

func TestTruncateOverLimit(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("x", 100)
	got, ok := Truncate(payload, 10).(string)
	require.True(t, ok)

	assert.True(t, strings.HasPrefix(got, strings.Repeat("x", 10)))
	assert.Contains(t, got, "original 100 bytes")

	suffix := fmt.Sprintf(" ... [truncated, original %d bytes]", 100)
	assert.Len(t, got, 10+len(suffix))
}

func TestTruncateStructuredValueUnderLimit(t *testing.T) {
	t.Parallel()

	v := map[string]any{"a": "b"}
	got := Truncate(v, 1024)

	// Structured values under the limit pass through untouched.
	assert.Equal(t, v, got)
}

func TestTruncateStructuredValueOverLimit(t *testing.T) {
	t.Parallel()

	v := map[string]any{"data": strings.Repeat("z", 200)}
	got, ok := Truncate(v, 50).(string)
	require.True(t, ok)
	assert.Contains(t, got, "truncated")
}

func TestTruncateUnserializable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, UnserializableValue, Truncate(make(chan int), 100))
	assert.Equal(t, UnserializableValue, Truncate(func() {}, 100))
}

func TestTruncateNonPositiveLimitUsesDefault(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("y", DefaultMaxBodyBytes+1)
	got, ok := Truncate(payload, 0).(string)
	require.True(t, ok)
	assert.Contains(t, got, "truncated")
}

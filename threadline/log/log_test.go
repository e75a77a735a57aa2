//go:build unit

package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{" error ", LevelError},
	}

	for _, tc := range cases {
		got, err := ParseLevel(tc.input)
		require.NoError(t, err, "level %q", tc.input)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseLevel("fatal")
	require.Error(t, err)
}

func TestLevelOrdering(t *testing.T) {
	t.Parallel()

	assert.True(t, LevelDebug < LevelInfo)
	assert.True(t, LevelInfo < LevelWarn)
	assert.True(t, LevelWarn < LevelError)
}

func TestLevelString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown", Level(42).String())
}

func TestFieldConstructors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	assert.Equal(t, Field{Key: "n", Value: 7}, Int("n", 7))
	assert.Equal(t, Field{Key: "ok", Value: true}, Bool("ok", true))
	assert.Equal(t, "error", Err(assert.AnError).Key)
}

func TestNopLogger(t *testing.T) {
	t.Parallel()

	l := NewNop()
	l.Log(context.Background(), LevelError, "dropped")
	assert.False(t, l.Enabled(LevelError))
	assert.Same(t, l, l.With(String("k", "v")))
	require.NoError(t, l.Sync(context.Background()))
}

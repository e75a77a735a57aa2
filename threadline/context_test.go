//go:build unit

package threadline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/threadline-io/lib-threadline/threadline/log"
	"github.com/threadline-io/lib-threadline/threadline/metrics"
)

func TestContextBindingRoundTrip(t *testing.T) {
	t.Parallel()

	logger := log.NewNop()
	recorder := metrics.NewRecorder(nil, nil)

	ctx := context.Background()
	ctx = ContextWithLogger(ctx, logger)
	ctx = ContextWithRecorder(ctx, recorder)
	ctx = ContextWithCorrelationID(ctx, "req-42")

	assert.Same(t, recorder, RecorderFromContext(ctx))
	assert.Equal(t, "req-42", CorrelationIDFromContext(ctx))

	boundLogger, _, boundRecorder, id := TrackingFromContext(ctx)
	assert.Equal(t, logger, boundLogger)
	assert.Same(t, recorder, boundRecorder)
	assert.Equal(t, "req-42", id)
}

func TestUnboundContextFallsBackSafely(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	assert.NotNil(t, LoggerFromContext(ctx))
	assert.NotNil(t, TracerFromContext(ctx))
	assert.NotNil(t, RecorderFromContext(ctx))

	id := CorrelationIDFromContext(ctx)
	_, err := uuid.Parse(id)
	assert.NoError(t, err, "fallback correlation id is a uuid")
}

func TestNilContextFallsBackSafely(t *testing.T) {
	t.Parallel()

	//nolint:staticcheck
	assert.NotPanics(t, func() {
		LoggerFromContext(nil)
		TracerFromContext(nil)
		RecorderFromContext(nil)
		CorrelationIDFromContext(nil)
	})
}

func TestSpanAttributesAccumulate(t *testing.T) {
	t.Parallel()

	ctx := ContextWithSpanAttributes(context.Background(), attribute.String("tenant.id", "t1"))
	ctx = ContextWithSpanAttributes(ctx, attribute.String("region", "eu"))

	attrs := AttributesFromContext(ctx)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.String("tenant.id", "t1"), attrs[0])
	assert.Equal(t, attribute.String("region", "eu"), attrs[1])
}

func TestBindingIsIsolatedPerBranch(t *testing.T) {
	t.Parallel()

	base := ContextWithCorrelationID(context.Background(), "base")

	left := ContextWithCorrelationID(base, "left")
	right := ContextWithSpanAttributes(base, attribute.String("side", "right"))

	// Branching never leaks state between siblings or back to the parent.
	assert.Equal(t, "base", CorrelationIDFromContext(base))
	assert.Equal(t, "left", CorrelationIDFromContext(left))
	assert.Equal(t, "base", CorrelationIDFromContext(right))
	assert.Empty(t, AttributesFromContext(left))
	assert.Len(t, AttributesFromContext(right), 1)
}

//go:build unit

package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupHooks installs the W3C propagator, an in-memory span recorder, and
// returns instrumented Hooks plus a context carrying an active root span.
func setupHooks(t *testing.T) (*Hooks, *tracetest.SpanRecorder, context.Context, trace.Span) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer := tp.Tracer("hooks-test")
	ctx, span := tracer.Start(context.Background(), "root")
	t.Cleanup(func() { span.End() })

	return New(WithTracer(tracer)), recorder, ctx, span
}

// endedSpan returns the single ended span with the given name.
func endedSpan(t *testing.T, recorder *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()

	var found sdktrace.ReadOnlySpan

	for _, s := range recorder.Ended() {
		if s.Name() == name {
			require.Nil(t, found, "multiple spans named %q", name)
			found = s
		}
	}

	require.NotNil(t, found, "no ended span named %q", name)

	return found
}

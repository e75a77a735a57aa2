// Package threadline carries request-scoped correlation state on
// context.Context: the logger, tracer, metric recorder, correlation id, and
// the attribute bag applied to spans at the ingress. Binding rides the
// context value itself, so concurrent units never observe each other's state
// and the binding survives any suspension point.
package threadline

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/threadline-io/lib-threadline/threadline/log"
	"github.com/threadline-io/lib-threadline/threadline/metrics"
)

type contextKey string

// correlationKey stores the *Correlation bundle.
const correlationKey = contextKey("threadline_correlation")

// defaultTracerName names the fallback tracer used when none is bound.
const defaultTracerName = "threadline.default"

// Correlation is the bundle of request-scoped facilities bound to a context.
type Correlation struct {
	CorrelationID string
	Logger        log.Logger
	Tracer        trace.Tracer
	Recorder      *metrics.Recorder

	// AttrBag holds request-wide attributes applied to every span started
	// under this context. Keep cardinality low (tenant id, plan, region).
	AttrBag []attribute.KeyValue
}

// clone returns a copy of the bundle so writers never mutate a bundle another
// goroutine may be reading.
func (c *Correlation) clone() *Correlation {
	if c == nil {
		return &Correlation{}
	}

	out := *c
	out.AttrBag = append([]attribute.KeyValue(nil), c.AttrBag...)

	return &out
}

func correlationFrom(ctx context.Context) *Correlation {
	if ctx == nil {
		return nil
	}

	c, _ := ctx.Value(correlationKey).(*Correlation)

	return c
}

func withCorrelation(ctx context.Context, c *Correlation) context.Context {
	return context.WithValue(ctx, correlationKey, c)
}

// ContextWithLogger binds a logger to the context.
func ContextWithLogger(ctx context.Context, logger log.Logger) context.Context {
	c := correlationFrom(ctx).clone()
	c.Logger = logger

	return withCorrelation(ctx, c)
}

// ContextWithTracer binds a tracer to the context.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	c := correlationFrom(ctx).clone()
	c.Tracer = tracer

	return withCorrelation(ctx, c)
}

// ContextWithRecorder binds a metric recorder to the context.
func ContextWithRecorder(ctx context.Context, recorder *metrics.Recorder) context.Context {
	c := correlationFrom(ctx).clone()
	c.Recorder = recorder

	return withCorrelation(ctx, c)
}

// ContextWithCorrelationID binds a correlation id to the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	c := correlationFrom(ctx).clone()
	c.CorrelationID = id

	return withCorrelation(ctx, c)
}

// ContextWithSpanAttributes appends request-wide span attributes. Call once
// at the ingress; downstream layers read the accumulated bag.
func ContextWithSpanAttributes(ctx context.Context, kv ...attribute.KeyValue) context.Context {
	if len(kv) == 0 {
		return ctx
	}

	c := correlationFrom(ctx).clone()
	c.AttrBag = append(c.AttrBag, kv...)

	return withCorrelation(ctx, c)
}

// LoggerFromContext returns the bound logger, or a no-op logger.
//
//nolint:ireturn
func LoggerFromContext(ctx context.Context) log.Logger {
	if c := correlationFrom(ctx); c != nil && c.Logger != nil {
		return c.Logger
	}

	return log.NewNop()
}

// TracerFromContext returns the bound tracer, or the global default.
//
//nolint:ireturn
func TracerFromContext(ctx context.Context) trace.Tracer {
	if c := correlationFrom(ctx); c != nil && c.Tracer != nil {
		return c.Tracer
	}

	return otel.Tracer(defaultTracerName)
}

// RecorderFromContext returns the bound recorder, or a no-op-backed one.
func RecorderFromContext(ctx context.Context) *metrics.Recorder {
	if c := correlationFrom(ctx); c != nil && c.Recorder != nil {
		return c.Recorder
	}

	return metrics.NewRecorder(nil, nil)
}

// CorrelationIDFromContext returns the bound correlation id, generating a
// fresh UUID when none is bound so every flow stays addressable.
func CorrelationIDFromContext(ctx context.Context) string {
	if c := correlationFrom(ctx); c != nil {
		if id := strings.TrimSpace(c.CorrelationID); id != "" {
			return id
		}
	}

	return uuid.New().String()
}

// AttributesFromContext returns a copy of the accumulated attribute bag.
func AttributesFromContext(ctx context.Context) []attribute.KeyValue {
	c := correlationFrom(ctx)
	if c == nil || len(c.AttrBag) == 0 {
		return nil
	}

	out := make([]attribute.KeyValue, len(c.AttrBag))
	copy(out, c.AttrBag)

	return out
}

// TrackingFromContext resolves the full bundle with fail-safe defaults, so
// call sites never nil-check individual components.
//
//nolint:ireturn
func TrackingFromContext(ctx context.Context) (log.Logger, trace.Tracer, *metrics.Recorder, string) {
	return LoggerFromContext(ctx),
		TracerFromContext(ctx),
		RecorderFromContext(ctx),
		CorrelationIDFromContext(ctx)
}

package hooks

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/threadline-io/lib-threadline/threadline/carrier"
	"github.com/threadline-io/lib-threadline/threadline/metrics"
)

// OnEvent runs handler for one socket event under a server span. Identity is
// resolved from the handshake headers, the payload trace envelope, and the
// handshake query parameters, in that priority order. Handler errors and
// panics are annotated and re-surfaced.
func (h *Hooks) OnEvent(ctx context.Context, hs carrier.Handshake, event string, payload map[string]any, handler func(context.Context, map[string]any) error) error {
	ctx = carrier.Extract(ctx, carrier.FromHandshake(hs, payload))

	ctx, span := h.tracer.Start(ctx, "socket "+event,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("messaging.socket.event", event)),
	)

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			h.recorder.RecordSocket(ctx, event, time.Since(start), true)
			h.annotateFailure(ctx, span, metrics.OriginSocket, r)
			span.End()

			panic(r)
		}
	}()

	err := handler(ctx, payload)

	h.recorder.RecordSocket(ctx, event, time.Since(start), err != nil)

	if err != nil {
		h.annotateFailure(ctx, span, metrics.OriginSocket, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()

	return err
}

// InjectAck returns a copy of an ack payload augmented with the active trace
// identity under the payload trace envelope, so the remote peer can continue
// the trace.
func InjectAck(ctx context.Context, payload map[string]any) map[string]any {
	return carrier.InjectPayload(ctx, payload)
}

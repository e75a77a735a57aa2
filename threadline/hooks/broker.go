package hooks

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/threadline-io/lib-threadline/threadline/carrier"
	"github.com/threadline-io/lib-threadline/threadline/internal/nilcheck"
	"github.com/threadline-io/lib-threadline/threadline/metrics"
)

// Consume runs handler for one delivery under a consumer span. The trace
// identity travels in the delivery headers; absent or malformed headers start
// a fresh trace. Handler errors and panics are annotated and re-surfaced.
func (h *Hooks) Consume(ctx context.Context, d amqp.Delivery, handler func(context.Context, amqp.Delivery) error) error {
	ctx = carrier.ExtractAMQP(ctx, d.Headers)

	ctx, span := h.tracer.Start(ctx, "consume "+d.RoutingKey,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(brokerAttributes(d.Exchange, d.RoutingKey)...),
	)

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			h.recorder.RecordBroker(ctx, d.Exchange, d.RoutingKey, metrics.OperationConsume, time.Since(start), true)
			h.annotateFailure(ctx, span, metrics.OriginBroker, r)
			span.End()

			panic(r)
		}
	}()

	err := handler(ctx, d)

	h.recorder.RecordBroker(ctx, d.Exchange, d.RoutingKey, metrics.OperationConsume, time.Since(start), err != nil)

	if err != nil {
		h.annotateFailure(ctx, span, metrics.OriginBroker, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()

	return err
}

// Publisher is the amqp-channel-shaped publish contract instrumented by this
// package. *amqp.Channel and the confirmable publisher wrappers satisfy it.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// InstrumentedPublisher decorates a Publisher with producer spans, header
// injection, and broker metrics. Use it at DI-style call sites; call sites
// that cannot change go through the registered PublishFunc instead.
type InstrumentedPublisher struct {
	hooks *Hooks
	next  Publisher
}

// WrapPublisher instruments next. A nil next yields a nil wrapper.
func (h *Hooks) WrapPublisher(next Publisher) *InstrumentedPublisher {
	if nilcheck.Interface(next) {
		return nil
	}

	return &InstrumentedPublisher{hooks: h, next: next}
}

// PublishWithContext implements Publisher.
func (p *InstrumentedPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return p.hooks.publishSpan(ctx, exchange, key, msg.Headers, func(ctx context.Context, headers amqp.Table) error {
		msg.Headers = headers

		return p.next.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
	})
}

// PublishFunc is the process-global publish entry point shape. Hosts whose
// publish call sites cannot be changed register their raw function once and
// route every publish through Publish; binding hooks then makes all of those
// call sites emit trace headers with zero further changes.
type PublishFunc func(ctx context.Context, exchange, key string, msg amqp.Publishing) error

// ErrPublishUnregistered is returned by Publish before RegisterPublish ran.
var ErrPublishUnregistered = errors.New("no publish function registered")

var (
	publishMu         sync.Mutex
	registeredPublish PublishFunc
	activePublish     PublishFunc
	publishBound      bool
)

// RegisterPublish installs the raw publish function. Registering replaces
// any previous registration and clears an existing binding.
func RegisterPublish(fn PublishFunc) {
	publishMu.Lock()
	defer publishMu.Unlock()

	registeredPublish = fn
	activePublish = fn
	publishBound = false
}

// Publish routes one message through the registered publish function,
// instrumented when a binding is active.
func Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	publishMu.Lock()
	fn := activePublish
	publishMu.Unlock()

	if fn == nil {
		return ErrPublishUnregistered
	}

	return fn(ctx, exchange, key, msg)
}

// BindPublish wraps the registered publish function with instrumentation.
// The binding happens at most once; repeated calls and calls without a
// registration return false.
func (h *Hooks) BindPublish() bool {
	publishMu.Lock()
	defer publishMu.Unlock()

	if publishBound || registeredPublish == nil {
		return false
	}

	original := registeredPublish

	activePublish = func(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
		return h.publishSpan(ctx, exchange, key, msg.Headers, func(ctx context.Context, headers amqp.Table) error {
			msg.Headers = headers

			return original(ctx, exchange, key, msg)
		})
	}
	publishBound = true

	return true
}

// RestorePublish removes an active binding, restoring the registered
// original. Intended for test isolation.
func RestorePublish() {
	publishMu.Lock()
	defer publishMu.Unlock()

	activePublish = registeredPublish
	publishBound = false
}

// publishSpan runs one publish under a producer span with the active context
// injected into the outgoing headers. Caller-supplied headers are preserved
// unless they are propagation keys.
func (h *Hooks) publishSpan(ctx context.Context, exchange, key string, base amqp.Table, send func(context.Context, amqp.Table) error) error {
	ctx, span := h.tracer.Start(ctx, "publish "+key,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(brokerAttributes(exchange, key)...),
	)
	defer span.End()

	start := time.Now()
	err := send(ctx, carrier.InjectAMQPTable(ctx, base))

	h.recorder.RecordBroker(ctx, exchange, key, metrics.OperationPublish, time.Since(start), err != nil)

	if err != nil {
		h.annotateFailure(ctx, span, metrics.OriginBroker, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return err
}

func brokerAttributes(exchange, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination.name", exchange),
		attribute.String("messaging.rabbitmq.routing_key", key),
	}
}


// Package hooks binds trace identity, metrics, and error classification to
// the three transport boundaries: HTTP requests (fiber middleware), AMQP
// consume/publish, and socket events. Every hook observes a failure and
// re-surfaces it unchanged; instrumentation never alters propagation and
// never takes the host down.
package hooks

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/threadline-io/lib-threadline/threadline/errclass"
	"github.com/threadline-io/lib-threadline/threadline/internal/nilcheck"
	"github.com/threadline-io/lib-threadline/threadline/log"
	"github.com/threadline-io/lib-threadline/threadline/metrics"
)

// defaultTracerName names the tracer used when none is configured.
const defaultTracerName = "threadline/hooks"

// Hooks carries the shared instrumentation dependencies. Every dependency is
// optional; absent ones resolve to functional no-op defaults so partial
// wiring degrades gracefully instead of panicking.
type Hooks struct {
	tracer     trace.Tracer
	recorder   *metrics.Recorder
	logger     log.Logger
	classifier *errclass.Classifier
}

// Option configures Hooks.
type Option func(*Hooks)

// WithTracer sets the tracer used to start transport spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(h *Hooks) {
		if tracer != nil {
			h.tracer = tracer
		}
	}
}

// WithRecorder sets the metric recorder.
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(h *Hooks) {
		if recorder != nil {
			h.recorder = recorder
		}
	}
}

// WithLogger sets the logger used for failure records.
func WithLogger(logger log.Logger) Option {
	return func(h *Hooks) {
		if !nilcheck.Interface(logger) {
			h.logger = logger
		}
	}
}

// WithClassifier sets the error classifier.
func WithClassifier(classifier *errclass.Classifier) Option {
	return func(h *Hooks) {
		if classifier != nil {
			h.classifier = classifier
		}
	}
}

// New creates Hooks with no-op defaults for anything left unset.
func New(opts ...Option) *Hooks {
	h := &Hooks{}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	if h.tracer == nil {
		h.tracer = otel.Tracer(defaultTracerName)
	}

	if h.recorder == nil {
		h.recorder = metrics.NewRecorder(nil, nil)
	}

	if nilcheck.Interface(h.logger) {
		h.logger = log.NewNop()
	}

	if h.classifier == nil {
		h.classifier = errclass.NewClassifier()
	}

	return h
}

// annotateFailure applies the shared completion contract for a failed unit:
// classify the failure, mark the span, log the redacted record, and bump the
// error counter. The failure value itself is never modified.
func (h *Hooks) annotateFailure(ctx context.Context, span trace.Span, origin metrics.Origin, failure any) {
	record := h.classifier.Classify(failure)

	span.SetStatus(codes.Error, record.Message)
	span.SetAttributes(
		attribute.String("error.kind", string(record.Kind)),
		attribute.String("error.code", record.Code()),
	)

	if err, ok := failure.(error); ok {
		span.RecordError(err)
	}

	h.recorder.RecordError(ctx, string(record.Kind), origin, record.Code())

	h.logger.Log(ctx, log.LevelError, record.Message,
		log.String("error_kind", string(record.Kind)),
		log.String("error_code", record.Code()),
		log.Any("detail", record.Detail),
	)
}

package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/threadline-io/lib-threadline/threadline/log"
)

// Operation labels broker events by direction.
type Operation string

const (
	OperationPublish Operation = "publish"
	OperationConsume Operation = "consume"
)

// Origin labels error events by the transport that surfaced them.
type Origin string

const (
	OriginRequest Origin = "request"
	OriginBroker  Origin = "broker"
	OriginSocket  Origin = "socket"
	OriginOther   Origin = "other"
)

// Instrument names for the four domains.
const (
	metricRequests        = "requests_total"
	metricRequestErrors   = "requests_errors_total"
	metricRequestDuration = "request_duration_milliseconds"
	metricBroker          = "broker_events_total"
	metricBrokerErrors    = "broker_events_errors_total"
	metricBrokerDuration  = "broker_event_duration_milliseconds"
	metricSocket          = "socket_events_total"
	metricSocketErrors    = "socket_events_errors_total"
	metricSocketDuration  = "socket_event_duration_milliseconds"
	metricErrors          = "errors_total"
)

// Recorder aggregates the four fixed metric families over a Factory. All
// label values pass through normalization before reaching an instrument, and
// every recording is best-effort: instrument failures are logged and
// swallowed, never surfaced to the caller.
type Recorder struct {
	factory *Factory
	logger  log.Logger
}

// NewRecorder creates a Recorder. A nil factory yields a no-op-backed
// recorder so callers stay nil-safe.
func NewRecorder(factory *Factory, logger log.Logger) *Recorder {
	if factory == nil {
		factory = NewNopFactory()
	}

	if logger == nil {
		logger = log.NewNop()
	}

	return &Recorder{factory: factory, logger: logger}
}

// Factory exposes the underlying instrument factory for caller-defined
// metrics sharing the same registry.
func (r *Recorder) Factory() *Factory {
	return r.factory
}

// RecordRequest records one request/response cycle. Failed outcomes also
// increment the parallel errors counter with the identical label set.
func (r *Recorder) RecordRequest(ctx context.Context, method, path string, status int, elapsed time.Duration, failed bool) {
	labels := map[string]string{
		"method": CapLabel(method),
		"route":  NormalizeRoute(path),
		"status": strconv.Itoa(status),
	}

	r.count(ctx, metricRequests, "HTTP requests handled.", labels)
	r.observe(ctx, metricRequestDuration, "HTTP request duration.", labels, elapsed)

	if failed {
		r.count(ctx, metricRequestErrors, "HTTP requests that failed.", labels)
	}
}

// RecordBroker records one broker publish or consume.
func (r *Recorder) RecordBroker(ctx context.Context, exchange, routingKey string, op Operation, elapsed time.Duration, failed bool) {
	labels := map[string]string{
		"exchange":    CapLabel(exchange),
		"routing_key": NormalizeRoutingKey(routingKey),
		"operation":   string(op),
	}

	r.count(ctx, metricBroker, "Broker messages published and consumed.", labels)
	r.observe(ctx, metricBrokerDuration, "Broker operation duration.", labels, elapsed)

	if failed {
		r.count(ctx, metricBrokerErrors, "Broker operations that failed.", labels)
	}
}

// RecordSocket records one socket event dispatch.
func (r *Recorder) RecordSocket(ctx context.Context, event string, elapsed time.Duration, failed bool) {
	labels := map[string]string{"event": CapLabel(event)}

	r.count(ctx, metricSocket, "Socket events handled.", labels)
	r.observe(ctx, metricSocketDuration, "Socket event duration.", labels, elapsed)

	if failed {
		r.count(ctx, metricSocketErrors, "Socket events that failed.", labels)
	}
}

// RecordError records one classified error occurrence.
func (r *Recorder) RecordError(ctx context.Context, kind string, origin Origin, code string) {
	if code == "" {
		code = "unknown"
	}

	labels := map[string]string{
		"kind":   CapLabel(kind),
		"origin": string(origin),
		"code":   CapLabel(code),
	}

	r.count(ctx, metricErrors, "Classified errors observed.", labels)
}

func (r *Recorder) count(ctx context.Context, name, description string, labels map[string]string) {
	counter, err := r.factory.Counter(Metric{Name: name, Description: description, Unit: "1"})
	if err != nil {
		return
	}

	if err := counter.WithLabels(labels).AddOne(ctx); err != nil {
		r.logger.Log(ctx, log.LevelError, "metric increment failed",
			log.String("metric_name", name), log.Err(err))
	}
}

func (r *Recorder) observe(ctx context.Context, name, description string, labels map[string]string, elapsed time.Duration) {
	histogram, err := r.factory.Histogram(Metric{Name: name, Description: description, Unit: "ms"})
	if err != nil {
		return
	}

	if err := histogram.WithLabels(labels).Record(ctx, elapsed.Milliseconds()); err != nil {
		r.logger.Log(ctx, log.LevelError, "metric observation failed",
			log.String("metric_name", name), log.Err(err))
	}
}

package pipeline

import (
	"context"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RemoteSink bridges entries onto the OTel log API through the otelzap core.
// The core hands records to whatever log provider is configured (the
// telemetry package wires the OTLP gRPC exporter); Write surfaces the core's
// error so the pipeline's gate can degrade on export failure.
type RemoteSink struct {
	core zapcore.Core
}

// NewRemoteSink builds a remote sink for the named instrumentation scope.
// Pass otelzap.WithLoggerProvider to target a specific provider; the default
// is the global one.
func NewRemoteSink(name string, opts ...otelzap.Option) *RemoteSink {
	return &RemoteSink{core: otelzap.NewCore(name, opts...)}
}

// Write implements Sink.
func (s *RemoteSink) Write(_ context.Context, e Entry) error {
	entry := zapcore.Entry{
		Time:       e.Time,
		Level:      levelToZap(e.Level),
		Message:    e.Message,
		LoggerName: e.Scope,
	}

	return s.core.Write(entry, remoteZapFields(e))
}

// Sync flushes the bridged core.
func (s *RemoteSink) Sync(_ context.Context) error {
	return s.core.Sync()
}

// remoteZapFields mirrors the console JSON shape so both sinks carry the same
// attributes for one entry.
func remoteZapFields(e Entry) []zapcore.Field {
	fields := make([]zapcore.Field, 0, len(e.Fields)+4)

	if e.Service != "" {
		fields = append(fields, zap.String("service", e.Service))
	}

	if e.Environment != "" {
		fields = append(fields, zap.String("environment", e.Environment))
	}

	if e.TraceID != "" {
		fields = append(fields,
			zap.String("trace_id", e.TraceID),
			zap.String("span_id", e.SpanID),
		)
	}

	for _, key := range sortedFieldKeys(e.Fields) {
		fields = append(fields, zap.Any(key, e.Fields[key]))
	}

	return fields
}

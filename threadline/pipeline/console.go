package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/threadline-io/lib-threadline/threadline/log"
)

// humanEnvironments get the single-line developer format instead of JSON.
var humanEnvironments = map[string]bool{
	"development": true,
	"dev":         true,
	"local":       true,
}

// ConsoleSink writes entries to a local stream through zap. Development and
// local environments get a human single-line format with an abbreviated trace
// id and inline k=v fields; every other environment gets JSON. The field
// content is identical either way.
//
// Console writes never fail: zap write errors stay inside the core, so this
// sink is safe as the guaranteed fallback.
type ConsoleSink struct {
	logger *zap.Logger
	human  bool
}

// NewConsoleSink builds a console sink profiled for the given environment.
// A nil writer defaults to stdout.
func NewConsoleSink(environment string, w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}

	human := humanEnvironments[strings.ToLower(environment)]

	var encoder zapcore.Encoder
	if human {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	// The pipeline filters by level before writing; the core accepts all.
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), zapcore.DebugLevel)

	return &ConsoleSink{logger: zap.New(core), human: human}
}

// Write implements Sink. It always returns nil.
func (s *ConsoleSink) Write(_ context.Context, e Entry) error {
	level := levelToZap(e.Level)

	if s.human {
		ce := s.logger.Check(level, humanLine(e))
		if ce != nil {
			ce.Time = e.Time
			ce.LoggerName = e.Scope
			ce.Write()
		}

		return nil
	}

	ce := s.logger.Check(level, e.Message)
	if ce != nil {
		ce.Time = e.Time
		ce.LoggerName = e.Scope
		ce.Write(entryZapFields(e)...)
	}

	return nil
}

// Sync flushes the underlying zap logger.
func (s *ConsoleSink) Sync(_ context.Context) error {
	return s.logger.Sync()
}

// humanLine renders the developer format: abbreviated trace id in parens,
// message, then sorted inline k=v fields.
func humanLine(e Entry) string {
	var b strings.Builder

	if short := shortTraceID(e.TraceID); short != "" {
		b.WriteString("(")
		b.WriteString(short)
		b.WriteString(") ")
	}

	b.WriteString(e.Message)

	for _, key := range sortedFieldKeys(e.Fields) {
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(fmt.Sprintf("%v", e.Fields[key]))
	}

	return b.String()
}

// entryZapFields renders the JSON shape: identity fields first, then the
// masked field bag in sorted order.
func entryZapFields(e Entry) []zapcore.Field {
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

func sortedFieldKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// shortTraceID abbreviates a trace id to its first 8 characters.
func shortTraceID(traceID string) string {
	if len(traceID) <= 8 {
		return traceID
	}

	return traceID[:8]
}

func levelToZap(level log.Level) zapcore.Level {
	switch level {
	case log.LevelDebug:
		return zapcore.DebugLevel
	case log.LevelInfo:
		return zapcore.InfoLevel
	case log.LevelWarn:
		return zapcore.WarnLevel
	case log.LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

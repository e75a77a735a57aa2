// Package pipeline delivers structured log entries to a local console sink
// and an optional remote OTLP-bridged sink with per-sink failure isolation.
// A remote export failure degrades only the remote sink; the entry that
// triggered the failure, and every entry after it, still reaches the console.
package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/threadline-io/lib-threadline/threadline/log"
)

// Entry is one fully resolved log event. It is built fresh per call, its
// Fields already masked, so sinks can serialize it without touching shared
// state.
type Entry struct {
	Time        time.Time
	Level       log.Level
	Message     string
	Service     string
	Environment string
	TraceID     string
	SpanID      string
	Scope       string
	Fields      map[string]any
}

// Sink receives finished entries. Write returns an error when delivery
// failed; the pipeline owns what happens next (degrade, fallback). A Sink
// must be safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// syncer is the optional flush contract sinks may implement.
type syncer interface {
	Sync(ctx context.Context) error
}

// identityFromContext reads the active span identity, if any.
func identityFromContext(ctx context.Context) (traceID, spanID string) {
	if ctx == nil {
		return "", ""
	}

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}

	return sc.TraceID().String(), sc.SpanID().String()
}

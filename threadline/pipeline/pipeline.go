package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/threadline-io/lib-threadline/threadline/internal/nilcheck"
	"github.com/threadline-io/lib-threadline/threadline/log"
	"github.com/threadline-io/lib-threadline/threadline/redact"
	"github.com/threadline-io/lib-threadline/threadline/runtime"
)

// Pipeline implements log.Logger over a console sink and an optional remote
// sink. Entries below the minimum level are dropped; everything accepted is
// masked, stamped with the active trace identity, and delivered.
//
// Delivery contract: the remote sink is attempted only while its gate is
// available; a remote failure (error or panic) degrades the gate and the
// entry falls back to the console, so when a remote sink is configured an
// accepted entry always produces at least one local line even with the
// console disabled. With both sinks off the pipeline only level-filters.
type Pipeline struct {
	service     string
	environment string
	scope       string
	minLevel    log.Level
	masker      *redact.Matcher

	console        Sink
	consoleEnabled bool
	remote         Sink
	remoteGate     *gate

	base []log.Field
}

var _ log.Logger = (*Pipeline)(nil)

// Option configures a Pipeline at construction.
type Option func(*options)

type options struct {
	minLevel       log.Level
	masker         *redact.Matcher
	console        Sink
	consoleEnabled bool
	remote         Sink
	scope          string
	probeInterval  time.Duration
}

// WithMinLevel sets the minimum accepted level. Default is info.
func WithMinLevel(level log.Level) Option {
	return func(o *options) { o.minLevel = level }
}

// WithMasker replaces the default sensitive-key masker.
func WithMasker(masker *redact.Matcher) Option {
	return func(o *options) { o.masker = masker }
}

// WithConsoleSink replaces the default console sink.
func WithConsoleSink(sink Sink) Option {
	return func(o *options) { o.console = sink }
}

// WithConsoleDisabled stops routine console writes. The console still serves
// as the fallback when a remote write fails or is skipped.
func WithConsoleDisabled() Option {
	return func(o *options) { o.consoleEnabled = false }
}

// WithRemoteSink enables the remote sink.
func WithRemoteSink(sink Sink) Option {
	return func(o *options) { o.remote = sink }
}

// WithScope sets the instrumentation scope label stamped on every entry.
func WithScope(scope string) Option {
	return func(o *options) { o.scope = scope }
}

// WithRecoveryProbe allows a degraded remote sink to retry on its own: at
// most one trial write per interval, recovering on success. Without this
// option a degraded sink stays degraded until Reset.
func WithRecoveryProbe(interval time.Duration) Option {
	return func(o *options) { o.probeInterval = interval }
}

// New creates a Pipeline for the given service identity.
func New(service, environment string, opts ...Option) *Pipeline {
	o := options{
		minLevel:       log.LevelInfo,
		consoleEnabled: true,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.masker == nil {
		o.masker = redact.NewDefaultMatcher()
	}

	if nilcheck.Interface(o.console) {
		o.console = NewConsoleSink(environment, nil)
	}

	return &Pipeline{
		service:        service,
		environment:    environment,
		scope:          o.scope,
		minLevel:       o.minLevel,
		masker:         o.masker,
		console:        o.console,
		consoleEnabled: o.consoleEnabled,
		remote:         o.remote,
		remoteGate:     newGate("remote-log-sink", o.probeInterval),
	}
}

// Log implements log.Logger.
func (p *Pipeline) Log(ctx context.Context, level log.Level, msg string, fields ...log.Field) {
	if !p.Enabled(level) {
		return
	}

	entry := p.buildEntry(ctx, level, msg, fields)

	remoteConfigured := !nilcheck.Interface(p.remote)
	remoteHandled := false

	if remoteConfigured {
		attempted, err := p.remoteGate.do(func() error {
			return runtime.GuardErr(ctx, log.NewNop(), "remote-log-sink", func() error {
				return p.remote.Write(ctx, entry)
			})
		})

		remoteHandled = attempted && err == nil
	}

	// The console fallback covers remote failures, not remote absence: with
	// the console disabled and no remote sink the entry is dropped.
	if p.consoleEnabled || (remoteConfigured && !remoteHandled) {
		runtime.Guard(ctx, log.NewNop(), "console-log-sink", func() {
			_ = p.console.Write(ctx, entry)
		})
	}
}

// With implements log.Logger. The child shares the parent's sinks and
// degrade state.
func (p *Pipeline) With(fields ...log.Field) log.Logger {
	child := *p
	child.base = make([]log.Field, 0, len(p.base)+len(fields))
	child.base = append(child.base, p.base...)
	child.base = append(child.base, fields...)

	return &child
}

// Enabled implements log.Logger.
func (p *Pipeline) Enabled(level log.Level) bool {
	return level >= p.minLevel
}

// Sync flushes every sink that supports flushing.
func (p *Pipeline) Sync(ctx context.Context) error {
	var errs []error

	if s, ok := p.console.(syncer); ok {
		if err := s.Sync(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if s, ok := p.remote.(syncer); ok {
		if err := s.Sync(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Reset restores a degraded remote sink to available. This is the only
// recovery path unless WithRecoveryProbe was configured.
func (p *Pipeline) Reset() {
	p.remoteGate.reset()
}

// RemoteAvailable reports whether the next remote write would be attempted.
func (p *Pipeline) RemoteAvailable() bool {
	return p.remoteGate.available()
}

func (p *Pipeline) buildEntry(ctx context.Context, level log.Level, msg string, fields []log.Field) Entry {
	bag := make(map[string]any, len(p.base)+len(fields))

	for _, f := range p.base {
		bag[f.Key] = fieldValue(f.Value)
	}

	for _, f := range fields {
		bag[f.Key] = fieldValue(f.Value)
	}

	traceID, spanID := identityFromContext(ctx)

	return Entry{
		Time:        time.Now(),
		Level:       level,
		Message:     msg,
		Service:     p.service,
		Environment: p.environment,
		TraceID:     traceID,
		SpanID:      spanID,
		Scope:       p.scope,
		Fields:      p.masker.MaskMap(bag),
	}
}

// fieldValue flattens error values to their message so they serialize
// usefully in both sinks.
func fieldValue(v any) any {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}

	return v
}

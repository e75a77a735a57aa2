// Package telemetry bootstraps the OpenTelemetry providers behind the rest
// of the library: OTLP gRPC exporters per signal, the W3C propagator, and an
// ordered shutdown that flushes logs before traces before metrics. Disabled
// signals get provider instances with no exporter wired, so the rest of the
// library keeps working against the same interfaces at zero cost.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/threadline-io/lib-threadline/threadline/config"
	"github.com/threadline-io/lib-threadline/threadline/internal/nilcheck"
	"github.com/threadline-io/lib-threadline/threadline/log"
	"github.com/threadline-io/lib-threadline/threadline/metrics"
	"github.com/threadline-io/lib-threadline/threadline/pipeline"
	"github.com/threadline-io/lib-threadline/threadline/redact"
)

// Telemetry owns the provider set for one service process.
type Telemetry struct {
	cfg    config.Config
	logger log.Logger

	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider

	Tracer   trace.Tracer
	Factory  *metrics.Factory
	Recorder *metrics.Recorder
}

// Start initializes providers per the config, registers them globally, and
// installs the W3C TraceContext+Baggage propagator. logger receives the
// bootstrap and shutdown diagnostics; nil means silent.
func Start(ctx context.Context, cfg config.Config, logger log.Logger) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if nilcheck.Interface(logger) {
		logger = log.NewNop()
	}

	rsc := newResource(cfg)

	tp, err := newTracerProvider(ctx, cfg, rsc)
	if err != nil {
		return nil, fmt.Errorf("initialize tracer provider: %w", err)
	}

	mp, err := newMeterProvider(ctx, cfg, rsc)
	if err != nil {
		return nil, fmt.Errorf("initialize meter provider: %w", err)
	}

	lp, err := newLoggerProvider(ctx, cfg, rsc)
	if err != nil {
		return nil, fmt.Errorf("initialize logger provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	global.SetLoggerProvider(lp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	factory, err := metrics.NewFactory(mp.Meter(cfg.ServiceName), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize metric factory: %w", err)
	}

	logger.Log(ctx, log.LevelInfo, "telemetry initialized",
		log.String("service", cfg.ServiceName),
		log.Bool("tracing", cfg.EnableTracing),
		log.Bool("metrics", cfg.EnableMetrics),
		log.Bool("logging", cfg.EnableLogging),
	)

	return &Telemetry{
		cfg:            cfg,
		logger:         logger,
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Tracer:         tp.Tracer(cfg.ServiceName),
		Factory:        factory,
		Recorder:       metrics.NewRecorder(factory, logger),
	}, nil
}

func newResource(cfg config.Config) *sdkresource.Resource {
	return sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		semconv.TelemetrySDKLanguageGo,
	)
}

func newTracerProvider(ctx context.Context, cfg config.Config, rsc *sdkresource.Resource) (*sdktrace.TracerProvider, error) {
	if !cfg.EnableTracing {
		return sdktrace.NewTracerProvider(sdktrace.WithResource(rsc)), nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.TraceCollectorEndpoint()),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsc),
	), nil
}

func newMeterProvider(ctx context.Context, cfg config.Config, rsc *sdkresource.Resource) (*sdkmetric.MeterProvider, error) {
	if !cfg.EnableMetrics {
		return sdkmetric.NewMeterProvider(sdkmetric.WithResource(rsc)), nil
	}

	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.MetricCollectorEndpoint()),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(rsc),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp,
			sdkmetric.WithInterval(cfg.MetricExportInterval))),
	), nil
}

func newLoggerProvider(ctx context.Context, cfg config.Config, rsc *sdkresource.Resource) (*sdklog.LoggerProvider, error) {
	if !cfg.EnableLogging {
		return sdklog.NewLoggerProvider(sdklog.WithResource(rsc)), nil
	}

	exp, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpoint(cfg.LogCollectorEndpoint()),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	return sdklog.NewLoggerProvider(
		sdklog.WithResource(rsc),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
	), nil
}

// RemoteSink builds a pipeline remote sink bound to this process's logger
// provider.
func (t *Telemetry) RemoteSink() *pipeline.RemoteSink {
	return pipeline.NewRemoteSink(t.cfg.ServiceName,
		otelzap.WithLoggerProvider(t.LoggerProvider))
}

// NewPipeline builds the service logger: console profiled for the configured
// environment, remote sink when logging is enabled, minimum level and
// sensitive fields from config. Extra options append after the derived ones.
func (t *Telemetry) NewPipeline(opts ...pipeline.Option) *pipeline.Pipeline {
	level, err := log.ParseLevel(t.cfg.LogLevel)
	if err != nil {
		level = log.LevelInfo
	}

	derived := []pipeline.Option{
		pipeline.WithMinLevel(level),
		pipeline.WithMasker(redact.NewDefaultMatcher(t.cfg.SensitiveFields...)),
	}

	if t.cfg.EnableLogging {
		derived = append(derived, pipeline.WithRemoteSink(t.RemoteSink()))
	}

	derived = append(derived, opts...)

	return pipeline.New(t.cfg.ServiceName, t.cfg.Environment, derived...)
}

// Shutdown flushes and closes the providers in fixed order: logs first (so
// the final entries of the other shutdowns still export), then traces, then
// metrics. Each step logs and swallows its own error; the sequence never
// aborts early.
func (t *Telemetry) Shutdown(ctx context.Context) {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"logger provider", t.LoggerProvider.Shutdown},
		{"tracer provider", t.TracerProvider.Shutdown},
		{"meter provider", t.MeterProvider.Shutdown},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.logger.Log(ctx, log.LevelError, "telemetry shutdown step failed",
				log.String("step", step.name), log.Err(err))
		}
	}
}

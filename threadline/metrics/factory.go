// Package metrics maintains cardinality-safe counters and histograms for the
// four instrumented domains (request, broker, socket, error) and exposes the
// generic instrument factory backing them for caller-defined metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/threadline-io/lib-threadline/threadline/log"
)

// ErrNilMeter indicates that a nil OTel meter was provided.
var ErrNilMeter = errors.New("metric meter cannot be nil")

// Metric describes an instrument to create or retrieve.
type Metric struct {
	Name        string
	Description string
	Unit        string
	// Buckets sets explicit histogram boundaries; nil selects defaults.
	Buckets []float64
}

// DefaultLatencyBuckets are duration boundaries in milliseconds.
var DefaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Factory lazily creates and caches OTel instruments. Safe for concurrent
// use: instrument creation races resolve through LoadOrStore so increments
// are never lost to a duplicated instrument.
type Factory struct {
	meter      metric.Meter
	counters   sync.Map // string -> metric.Int64Counter
	gauges     sync.Map // string -> metric.Int64Gauge
	histograms sync.Map // string -> metric.Int64Histogram
	logger     log.Logger
}

// NewFactory creates a Factory over the given meter.
func NewFactory(meter metric.Meter, logger log.Logger) (*Factory, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	if logger == nil {
		logger = log.NewNop()
	}

	return &Factory{meter: meter, logger: logger}, nil
}

// NewNopFactory returns a Factory backed by the no-op meter, safe as a
// fallback when no real meter is wired.
func NewNopFactory() *Factory {
	return &Factory{
		meter:  noop.NewMeterProvider().Meter("nop"),
		logger: log.NewNop(),
	}
}

// Counter creates or retrieves a counter and returns its fluent builder.
func (f *Factory) Counter(m Metric) (*CounterBuilder, error) {
	counter, err := cached(&f.counters, m.Name, func() (metric.Int64Counter, error) {
		return f.meter.Int64Counter(m.Name, counterOptions(m)...)
	})
	if err != nil {
		f.logInstrumentError("counter", m.Name, err)

		return nil, fmt.Errorf("create counter %q: %w", m.Name, err)
	}

	return &CounterBuilder{counter: counter, name: m.Name}, nil
}

// Gauge creates or retrieves a gauge and returns its fluent builder.
func (f *Factory) Gauge(m Metric) (*GaugeBuilder, error) {
	gauge, err := cached(&f.gauges, m.Name, func() (metric.Int64Gauge, error) {
		return f.meter.Int64Gauge(m.Name, gaugeOptions(m)...)
	})
	if err != nil {
		f.logInstrumentError("gauge", m.Name, err)

		return nil, fmt.Errorf("create gauge %q: %w", m.Name, err)
	}

	return &GaugeBuilder{gauge: gauge, name: m.Name}, nil
}

// Histogram creates or retrieves a histogram and returns its fluent builder.
// Metrics without explicit buckets get DefaultLatencyBuckets.
func (f *Factory) Histogram(m Metric) (*HistogramBuilder, error) {
	if m.Buckets == nil {
		m.Buckets = DefaultLatencyBuckets
	}

	histogram, err := cached(&f.histograms, m.Name, func() (metric.Int64Histogram, error) {
		return f.meter.Int64Histogram(m.Name, histogramOptions(m)...)
	})
	if err != nil {
		f.logInstrumentError("histogram", m.Name, err)

		return nil, fmt.Errorf("create histogram %q: %w", m.Name, err)
	}

	return &HistogramBuilder{histogram: histogram, name: m.Name}, nil
}

func (f *Factory) logInstrumentError(kind, name string, err error) {
	f.logger.Log(context.Background(), log.LevelError, "failed to create "+kind+" instrument",
		log.String("metric_name", name), log.Err(err))
}

// cached resolves an instrument from the cache or creates it exactly once.
// On a creation race the instrument stored first wins.
func cached[T any](cache *sync.Map, key string, create func() (T, error)) (T, error) {
	var zero T

	if existing, ok := cache.Load(key); ok {
		if instrument, ok := existing.(T); ok {
			return instrument, nil
		}

		return zero, fmt.Errorf("instrument cache holds invalid type for %q", key)
	}

	instrument, err := create()
	if err != nil {
		return zero, err
	}

	if actual, loaded := cache.LoadOrStore(key, instrument); loaded {
		if winner, ok := actual.(T); ok {
			return winner, nil
		}

		return zero, fmt.Errorf("instrument cache holds invalid type for %q", key)
	}

	return instrument, nil
}

func counterOptions(m Metric) []metric.Int64CounterOption {
	var opts []metric.Int64CounterOption
	if m.Description != "" {
		opts = append(opts, metric.WithDescription(m.Description))
	}

	if m.Unit != "" {
		opts = append(opts, metric.WithUnit(m.Unit))
	}

	return opts
}

func gaugeOptions(m Metric) []metric.Int64GaugeOption {
	var opts []metric.Int64GaugeOption
	if m.Description != "" {
		opts = append(opts, metric.WithDescription(m.Description))
	}

	if m.Unit != "" {
		opts = append(opts, metric.WithUnit(m.Unit))
	}

	return opts
}

func histogramOptions(m Metric) []metric.Int64HistogramOption {
	var opts []metric.Int64HistogramOption
	if m.Description != "" {
		opts = append(opts, metric.WithDescription(m.Description))
	}

	if m.Unit != "" {
		opts = append(opts, metric.WithUnit(m.Unit))
	}

	if m.Buckets != nil {
		opts = append(opts, metric.WithExplicitBucketBoundaries(m.Buckets...))
	}

	return opts
}

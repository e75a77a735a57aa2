//go:build unit

package metrics

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewFactoryRequiresMeter(t *testing.T) {
	t.Parallel()

	_, err := NewFactory(nil, nil)
	assert.ErrorIs(t, err, ErrNilMeter)
}

func TestFactoryReusesInstruments(t *testing.T) {
	t.Parallel()

	factory, err := NewFactory(noop.NewMeterProvider().Meter("test"), nil)
	require.NoError(t, err)

	first, err := factory.Counter(Metric{Name: "hits_total", Unit: "1"})
	require.NoError(t, err)

	second, err := factory.Counter(Metric{Name: "hits_total", Unit: "1"})
	require.NoError(t, err)

	assert.Equal(t, first.counter, second.counter)
}

func TestFactoryConcurrentCreation(t *testing.T) {
	t.Parallel()

	factory, err := NewFactory(noop.NewMeterProvider().Meter("test"), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			histogram, err := factory.Histogram(Metric{Name: "latency_ms", Unit: "ms"})
			assert.NoError(t, err)
			assert.NoError(t, histogram.Record(context.Background(), 1))
		}()
	}

	wg.Wait()
}

func TestBuilderLabelsAreImmutable(t *testing.T) {
	t.Parallel()

	factory, err := NewFactory(noop.NewMeterProvider().Meter("test"), nil)
	require.NoError(t, err)

	base, err := factory.Counter(Metric{Name: "ops_total"})
	require.NoError(t, err)

	labeled := base.WithLabels(map[string]string{"op": "read"})

	assert.Empty(t, base.attrs)
	assert.Len(t, labeled.attrs, 1)
}

func TestNilInstrumentBuilders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	assert.ErrorIs(t, (&CounterBuilder{}).AddOne(ctx), ErrNilCounter)
	assert.ErrorIs(t, (&GaugeBuilder{}).Set(ctx, 1), ErrNilGauge)
	assert.ErrorIs(t, (&HistogramBuilder{}).Record(ctx, 1), ErrNilHistogram)
}

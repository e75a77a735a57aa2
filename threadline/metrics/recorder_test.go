//go:build unit

package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestRecorder(t *testing.T) (*Recorder, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	factory, err := NewFactory(provider.Meter("test"), nil)
	require.NoError(t, err)

	return NewRecorder(factory, nil), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}

	return metricdata.Metrics{}, false
}

func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string, want ...attribute.KeyValue) int64 {
	t.Helper()

	m, ok := findMetric(rm, name)
	if !ok {
		return 0
	}

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %q is not an int64 sum", name)

	wantSet := attribute.NewSet(want...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&wantSet) {
			return dp.Value
		}
	}

	return 0
}

func TestRecordRequestIncrementsNormalizedCounter(t *testing.T) {
	rec, reader := newTestRecorder(t)

	rec.RecordRequest(context.Background(),
		"GET", "/users/123e4567-e89b-12d3-a456-426614174000", 200, 12*time.Millisecond, false)

	rm := collect(t, reader)

	labels := []attribute.KeyValue{
		attribute.String("method", "GET"),
		attribute.String("route", "/users/:id"),
		attribute.String("status", "200"),
	}

	assert.Equal(t, int64(1), counterValue(t, rm, metricRequests, labels...))
	assert.Equal(t, int64(0), counterValue(t, rm, metricRequestErrors, labels...))

	hist, ok := findMetric(rm, metricRequestDuration)
	require.True(t, ok)

	data, ok := hist.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, uint64(1), data.DataPoints[0].Count)
}

func TestRecordRequestFailedAlsoCountsErrors(t *testing.T) {
	rec, reader := newTestRecorder(t)

	rec.RecordRequest(context.Background(), "POST", "/orders", 500, time.Millisecond, true)

	rm := collect(t, reader)

	labels := []attribute.KeyValue{
		attribute.String("method", "POST"),
		attribute.String("route", "/orders"),
		attribute.String("status", "500"),
	}

	assert.Equal(t, int64(1), counterValue(t, rm, metricRequests, labels...))
	assert.Equal(t, int64(1), counterValue(t, rm, metricRequestErrors, labels...))
}

func TestRecordBrokerNormalizesRoutingKey(t *testing.T) {
	rec, reader := newTestRecorder(t)

	rec.RecordBroker(context.Background(),
		"events", "orders.123e4567-e89b-12d3-a456-426614174000.created",
		OperationPublish, 3*time.Millisecond, false)

	rm := collect(t, reader)

	labels := []attribute.KeyValue{
		attribute.String("exchange", "events"),
		attribute.String("routing_key", "orders.*.created"),
		attribute.String("operation", "publish"),
	}

	assert.Equal(t, int64(1), counterValue(t, rm, metricBroker, labels...))
}

func TestRecordSocketFailure(t *testing.T) {
	rec, reader := newTestRecorder(t)

	rec.RecordSocket(context.Background(), "order:updated", 2*time.Millisecond, true)

	rm := collect(t, reader)

	labels := []attribute.KeyValue{attribute.String("event", "order:updated")}

	assert.Equal(t, int64(1), counterValue(t, rm, metricSocket, labels...))
	assert.Equal(t, int64(1), counterValue(t, rm, metricSocketErrors, labels...))
}

func TestRecordErrorDefaultsUnknownCode(t *testing.T) {
	rec, reader := newTestRecorder(t)

	rec.RecordError(context.Background(), "generic", OriginBroker, "")

	rm := collect(t, reader)

	labels := []attribute.KeyValue{
		attribute.String("kind", "generic"),
		attribute.String("origin", "broker"),
		attribute.String("code", "unknown"),
	}

	assert.Equal(t, int64(1), counterValue(t, rm, metricErrors, labels...))
}

func TestNilRecorderDependenciesAreSafe(t *testing.T) {
	t.Parallel()

	rec := NewRecorder(nil, nil)

	assert.NotPanics(t, func() {
		rec.RecordRequest(context.Background(), "GET", "/x", 200, time.Millisecond, false)
		rec.RecordError(context.Background(), "generic", OriginOther, "unknown")
	})
}

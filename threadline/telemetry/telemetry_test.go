//go:build unit

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/threadline-io/lib-threadline/threadline/config"
	"github.com/threadline-io/lib-threadline/threadline/log"
)

// offlineConfig disables every exporter so tests never dial a collector.
func offlineConfig() config.Config {
	cfg := config.New("telemetry-test")
	cfg.EnableTracing = false
	cfg.EnableMetrics = false
	cfg.EnableLogging = false

	return cfg
}

func TestStartWithAllSignalsDisabled(t *testing.T) {
	tel, err := Start(context.Background(), offlineConfig(), nil)
	require.NoError(t, err)

	assert.NotNil(t, tel.TracerProvider)
	assert.NotNil(t, tel.MeterProvider)
	assert.NotNil(t, tel.LoggerProvider)
	assert.NotNil(t, tel.Factory)
	assert.NotNil(t, tel.Recorder)

	// Spans still work against the exporterless provider.
	ctx, span := tel.Tracer.Start(context.Background(), "probe")
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	span.End()

	tel.Shutdown(context.Background())
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	_, err := Start(context.Background(), config.New(""), nil)

	assert.Error(t, err)
}

func TestShutdownIsIdempotentAndSwallowsErrors(t *testing.T) {
	tel, err := Start(context.Background(), offlineConfig(), nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		tel.Shutdown(context.Background())
		tel.Shutdown(context.Background())
	})
}

func TestNewPipelineHonorsConfiguredLevel(t *testing.T) {
	cfg := offlineConfig()
	cfg.LogLevel = "warn"

	tel, err := Start(context.Background(), cfg, nil)
	require.NoError(t, err)

	t.Cleanup(func() { tel.Shutdown(context.Background()) })

	p := tel.NewPipeline()

	assert.False(t, p.Enabled(log.LevelInfo))
	assert.True(t, p.Enabled(log.LevelWarn))
}

func TestRunUntilSignalReturnsOnContextDone(t *testing.T) {
	tel, err := Start(context.Background(), offlineConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})

	go func() {
		tel.RunUntilSignal(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunUntilSignal did not return after context cancellation")
	}
}

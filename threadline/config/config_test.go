//go:build unit

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	cfg := New("orders")

	assert.Equal(t, "orders", cfg.ServiceName)
	assert.Equal(t, DefaultEnvironment, cfg.Environment)
	assert.Equal(t, DefaultCollectorEndpoint, cfg.CollectorEndpoint)
	assert.True(t, cfg.EnableTracing)
	assert.True(t, cfg.EnableMetrics)
	assert.True(t, cfg.EnableLogging)
	assert.Equal(t, DefaultMaxBodyBytes, cfg.MaxBodyBytes)
	assert.Equal(t, DefaultMetricExportInterval, cfg.MetricExportInterval)

	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresServiceName(t *testing.T) {
	t.Parallel()

	cfg := New("")

	assert.Error(t, cfg.Validate())
}

func TestSignalEndpointsFallBackToCollector(t *testing.T) {
	t.Parallel()

	cfg := New("orders")
	cfg.CollectorEndpoint = "collector:4317"

	assert.Equal(t, "collector:4317", cfg.TraceCollectorEndpoint())
	assert.Equal(t, "collector:4317", cfg.MetricCollectorEndpoint())
	assert.Equal(t, "collector:4317", cfg.LogCollectorEndpoint())

	cfg.LogEndpoint = "logs:4317"
	assert.Equal(t, "logs:4317", cfg.LogCollectorEndpoint())
	assert.Equal(t, "collector:4317", cfg.TraceCollectorEndpoint())
}

func TestWithEnvOverrides(t *testing.T) {
	t.Setenv(EnvServiceName, "payments")
	t.Setenv(EnvEnvironment, "production")
	t.Setenv(EnvCollectorEndpoint, "otel:4317")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvSensitiveFields, "pin, document_number")
	t.Setenv(EnvMaxBodyBytes, "1024")
	t.Setenv(EnvMetricExportInterval, "15s")

	cfg := FromEnv()

	assert.Equal(t, "payments", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "otel:4317", cfg.CollectorEndpoint)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"pin", "document_number"}, cfg.SensitiveFields)
	assert.Equal(t, 1024, cfg.MaxBodyBytes)
	assert.Equal(t, 15*time.Second, cfg.MetricExportInterval)

	require.NoError(t, cfg.Validate())
}

func TestBooleanEnvConvention(t *testing.T) {
	t.Setenv(EnvEnableTracing, "false")
	t.Setenv(EnvEnableMetrics, "FALSE")
	t.Setenv(EnvEnableLogging, "yes")
	t.Setenv(EnvVerbose, "1")

	cfg := New("orders").WithEnvOverrides()

	assert.False(t, cfg.EnableTracing, "literal false disables")
	assert.False(t, cfg.EnableMetrics, "case-insensitive false disables")
	assert.True(t, cfg.EnableLogging, "any other value enables")
	assert.True(t, cfg.Verbose)
}

func TestUnsetEnvKeepsCurrentValues(t *testing.T) {
	t.Setenv(EnvMaxBodyBytes, "not-a-number")
	t.Setenv(EnvMetricExportInterval, "soon")

	cfg := New("orders").WithEnvOverrides()

	assert.Equal(t, "orders", cfg.ServiceName)
	assert.True(t, cfg.EnableTracing)
	assert.Equal(t, DefaultMaxBodyBytes, cfg.MaxBodyBytes, "invalid int ignored")
	assert.Equal(t, DefaultMetricExportInterval, cfg.MetricExportInterval, "invalid duration ignored")
}

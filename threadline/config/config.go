// Package config holds the library's configuration surface: service
// identity, collector endpoints, per-signal enable flags, and the knobs the
// redaction and metric layers consume. Every field except ServiceName has a
// usable default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by New and FromEnv.
const (
	DefaultCollectorEndpoint    = "localhost:4317"
	DefaultEnvironment          = "local"
	DefaultLogLevel             = "info"
	DefaultMaxBodyBytes         = 4096
	DefaultMetricExportInterval = 60 * time.Second
)

// Config configures the whole library. Collector endpoints are OTLP gRPC
// host:port pairs; the per-signal endpoints override CollectorEndpoint only
// when set.
type Config struct {
	ServiceName    string `validate:"required"`
	ServiceVersion string
	Environment    string

	CollectorEndpoint string
	TraceEndpoint     string
	MetricEndpoint    string
	LogEndpoint       string

	EnableTracing bool
	EnableMetrics bool
	EnableLogging bool

	LogLevel             string
	SensitiveFields      []string
	MaxBodyBytes         int
	MetricExportInterval time.Duration
	Verbose              bool
}

// New returns a Config with defaults for everything but the service name.
// All three signals start enabled.
func New(serviceName string) Config {
	return Config{
		ServiceName:          serviceName,
		Environment:          DefaultEnvironment,
		CollectorEndpoint:    DefaultCollectorEndpoint,
		EnableTracing:        true,
		EnableMetrics:        true,
		EnableLogging:        true,
		LogLevel:             DefaultLogLevel,
		MaxBodyBytes:         DefaultMaxBodyBytes,
		MetricExportInterval: DefaultMetricExportInterval,
	}
}

var validate = validator.New()

// Validate checks required fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// TraceCollectorEndpoint resolves the trace exporter endpoint.
func (c Config) TraceCollectorEndpoint() string {
	if c.TraceEndpoint != "" {
		return c.TraceEndpoint
	}

	return c.CollectorEndpoint
}

// MetricCollectorEndpoint resolves the metric exporter endpoint.
func (c Config) MetricCollectorEndpoint() string {
	if c.MetricEndpoint != "" {
		return c.MetricEndpoint
	}

	return c.CollectorEndpoint
}

// LogCollectorEndpoint resolves the log exporter endpoint.
func (c Config) LogCollectorEndpoint() string {
	if c.LogEndpoint != "" {
		return c.LogEndpoint
	}

	return c.CollectorEndpoint
}

// Environment variable names recognized by FromEnv and WithEnvOverrides.
const (
	EnvServiceName          = "THREADLINE_SERVICE_NAME"
	EnvServiceVersion       = "THREADLINE_SERVICE_VERSION"
	EnvEnvironment          = "THREADLINE_ENVIRONMENT"
	EnvCollectorEndpoint    = "THREADLINE_COLLECTOR_ENDPOINT"
	EnvTraceEndpoint        = "THREADLINE_TRACE_ENDPOINT"
	EnvMetricEndpoint       = "THREADLINE_METRIC_ENDPOINT"
	EnvLogEndpoint          = "THREADLINE_LOG_ENDPOINT"
	EnvEnableTracing        = "THREADLINE_ENABLE_TRACING"
	EnvEnableMetrics        = "THREADLINE_ENABLE_METRICS"
	EnvEnableLogging        = "THREADLINE_ENABLE_LOGGING"
	EnvLogLevel             = "THREADLINE_LOG_LEVEL"
	EnvSensitiveFields      = "THREADLINE_SENSITIVE_FIELDS"
	EnvMaxBodyBytes         = "THREADLINE_MAX_BODY_BYTES"
	EnvMetricExportInterval = "THREADLINE_METRIC_EXPORT_INTERVAL"
	EnvVerbose              = "THREADLINE_VERBOSE"
)

// FromEnv builds a Config from defaults plus environment overrides.
func FromEnv() Config {
	return New("").WithEnvOverrides()
}

// WithEnvOverrides returns a copy of c with every set THREADLINE_* variable
// applied. Boolean variables follow the loose convention: the literal string
// "false" disables, any other non-empty value enables, unset keeps the
// current value. Invalid numeric and duration values are ignored.
func (c Config) WithEnvOverrides() Config {
	setString(&c.ServiceName, EnvServiceName)
	setString(&c.ServiceVersion, EnvServiceVersion)
	setString(&c.Environment, EnvEnvironment)
	setString(&c.CollectorEndpoint, EnvCollectorEndpoint)
	setString(&c.TraceEndpoint, EnvTraceEndpoint)
	setString(&c.MetricEndpoint, EnvMetricEndpoint)
	setString(&c.LogEndpoint, EnvLogEndpoint)
	setString(&c.LogLevel, EnvLogLevel)

	setBool(&c.EnableTracing, EnvEnableTracing)
	setBool(&c.EnableMetrics, EnvEnableMetrics)
	setBool(&c.EnableLogging, EnvEnableLogging)
	setBool(&c.Verbose, EnvVerbose)

	if raw, ok := lookup(EnvSensitiveFields); ok {
		for _, field := range strings.Split(raw, ",") {
			if field = strings.TrimSpace(field); field != "" {
				c.SensitiveFields = append(c.SensitiveFields, field)
			}
		}
	}

	if raw, ok := lookup(EnvMaxBodyBytes); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			c.MaxBodyBytes = n
		}
	}

	if raw, ok := lookup(EnvMetricExportInterval); ok {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			c.MetricExportInterval = d
		}
	}

	return c
}

func lookup(key string) (string, bool) {
	raw, ok := os.LookupEnv(key)
	raw = strings.TrimSpace(raw)

	return raw, ok && raw != ""
}

func setString(dst *string, key string) {
	if raw, ok := lookup(key); ok {
		*dst = raw
	}
}

func setBool(dst *bool, key string) {
	if raw, ok := lookup(key); ok {
		*dst = !strings.EqualFold(raw, "false")
	}
}

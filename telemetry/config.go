package telemetry

import (
	"fmt"
	"time"
)

// Config for the telemetry component.
type Config struct {
	Enabled        bool                   `mapstructure:"enabled"`
	ServiceName    string                 `mapstructure:"service_name"`
	ServiceVersion string                 `mapstructure:"service_version"`
	Exporter       ExporterConfig         `mapstructure:"exporter"`
	Sampler        SamplerConfig          `mapstructure:"sampler"`
	ResourceAttrs  map[string]interface{} `mapstructure:"resource_attributes"` // supports nesting
	Span           SpanConfig             `mapstructure:"span"`
	Batch          BatchConfig            `mapstructure:"batch"`
	CircuitBreaker CircuitBreakerConfig   `mapstructure:"circuit_breaker"`
	Metrics        MetricsConfig          `mapstructure:"metrics"`
}

// ExporterConfig selects and configures the span/metrics exporter.
type ExporterConfig struct {
	Type     string            `mapstructure:"type"`     // otlp, stdout
	Endpoint string            `mapstructure:"endpoint"` // otlp gRPC endpoint
	Insecure bool              `mapstructure:"insecure"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	Headers  map[string]string `mapstructure:"headers"` // custom headers, e.g. auth
}

// SamplerConfig selects the trace sampling strategy.
type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Ratio float64 `mapstructure:"ratio"` // only for trace_id_ratio
}

// SpanConfig bounds per-span data.
type SpanConfig struct {
	MaxAttributes      int `mapstructure:"max_attributes"`
	MaxEvents          int `mapstructure:"max_events"`
	MaxLinks           int `mapstructure:"max_links"`
	MaxAttributeLength int `mapstructure:"max_attribute_length"`
}

// BatchConfig configures the batch span processor.
type BatchConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	MaxQueueSize       int           `mapstructure:"max_queue_size"`
	MaxExportBatchSize int           `mapstructure:"max_export_batch_size"`
	ScheduleDelay      time.Duration `mapstructure:"schedule_delay"`
	ExportTimeout      time.Duration `mapstructure:"export_timeout"`
}

// MetricsConfig enables metric export per component layer.
type MetricsConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	ExportInterval time.Duration     `mapstructure:"export_interval"`
	ExportTimeout  time.Duration     `mapstructure:"export_timeout"`
	Namespace      string            `mapstructure:"namespace"` // metric name prefix
	Labels         map[string]string `mapstructure:"labels"`    // global labels (env, region)
	HTTP           HTTPMetrics       `mapstructure:"http"`
	Database       DBMetrics         `mapstructure:"database"`
	Redis          RedisMetrics      `mapstructure:"redis"`
	Breaker        BreakerMetrics    `mapstructure:"breaker"`
	Event          EventMetrics      `mapstructure:"event"`
}

// HTTPMetrics configures inbound HTTP metrics.
type HTTPMetrics struct {
	Enabled            bool `mapstructure:"enabled"`
	RecordRequestSize  bool `mapstructure:"record_request_size"`
	RecordResponseSize bool `mapstructure:"record_response_size"`
}

// DBMetrics configures database metrics.
type DBMetrics struct {
	Enabled          bool    `mapstructure:"enabled"`
	RecordSQLText    bool    `mapstructure:"record_sql_text"` // costs allocation per query
	SlowQuerySeconds float64 `mapstructure:"slow_query_seconds"`
}

// RedisMetrics configures redis client metrics.
type RedisMetrics struct {
	Enabled         bool `mapstructure:"enabled"`
	RecordHitMiss   bool `mapstructure:"record_hit_miss"`
	RecordPoolStats bool `mapstructure:"record_pool_stats"`
}

// BreakerMetrics configures circuit breaker metrics.
type BreakerMetrics struct {
	Enabled           bool `mapstructure:"enabled"`
	RecordState       bool `mapstructure:"record_state"`
	RecordSuccessRate bool `mapstructure:"record_success_rate"`
}

// EventMetrics configures event pipeline metrics.
type EventMetrics struct {
	Enabled         bool `mapstructure:"enabled"`
	RecordQueueSize bool `mapstructure:"record_queue_size"`
}

// DefaultConfig returns the default configuration: everything off, otlp
// endpoint pointing at a local collector.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "unknown-service",
		ServiceVersion: "1.0.0",
		Exporter: ExporterConfig{
			Type:     "otlp",
			Endpoint: "localhost:4317",
			Insecure: true,
			Timeout:  10 * time.Second,
		},
		Sampler: SamplerConfig{
			Type:  "parent_based_always_on",
			Ratio: 1.0,
		},
		ResourceAttrs: make(map[string]interface{}),
		Span: SpanConfig{
			MaxAttributes:      128,
			MaxEvents:          128,
			MaxLinks:           128,
			MaxAttributeLength: 1024,
		},
		Batch: BatchConfig{
			Enabled:            true,
			MaxQueueSize:       2048,
			MaxExportBatchSize: 512,
			ScheduleDelay:      5 * time.Second,
			ExportTimeout:      30 * time.Second,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:              true,
			FailureThreshold:     5,
			SuccessThreshold:     2,
			Timeout:              60 * time.Second,
			HalfOpenMaxRequests:  3,
			FallbackExporterType: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:        false,
			ExportInterval: 10 * time.Second,
			ExportTimeout:  5 * time.Second,
			Namespace:      "aegis",
			Labels:         make(map[string]string),
			HTTP: HTTPMetrics{
				Enabled:            false,
				RecordRequestSize:  false,
				RecordResponseSize: false,
			},
			Database: DBMetrics{
				Enabled:          false,
				RecordSQLText:    false,
				SlowQuerySeconds: 1.0,
			},
			Redis: RedisMetrics{
				Enabled:         false,
				RecordHitMiss:   true,
				RecordPoolStats: true,
			},
			Breaker: BreakerMetrics{
				Enabled:           false,
				RecordState:       true,
				RecordSuccessRate: true,
			},
			Event: EventMetrics{
				Enabled:         false,
				RecordQueueSize: true,
			},
		},
	}
}

// Validate checks the configuration. A disabled config always passes.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when telemetry is enabled")
	}

	switch c.Exporter.Type {
	case "otlp", "stdout":
	default:
		return fmt.Errorf("unsupported exporter type: %s (supported: otlp, stdout)", c.Exporter.Type)
	}

	if c.Exporter.Type == "otlp" && c.Exporter.Endpoint == "" {
		return fmt.Errorf("exporter endpoint is required for otlp exporter")
	}

	switch c.Sampler.Type {
	case "always_on", "always_off", "trace_id_ratio", "parent_based_always_on":
	default:
		return fmt.Errorf("unsupported sampler type: %s", c.Sampler.Type)
	}

	if c.Sampler.Type == "trace_id_ratio" {
		if c.Sampler.Ratio < 0 || c.Sampler.Ratio > 1 {
			return fmt.Errorf("sampler ratio must be between 0 and 1, got: %f", c.Sampler.Ratio)
		}
	}

	if c.Batch.Enabled {
		if c.Batch.MaxQueueSize <= 0 {
			return fmt.Errorf("batch max_queue_size must be positive, got: %d", c.Batch.MaxQueueSize)
		}
		if c.Batch.MaxExportBatchSize <= 0 {
			return fmt.Errorf("batch max_export_batch_size must be positive, got: %d", c.Batch.MaxExportBatchSize)
		}
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureThreshold <= 0 {
			return fmt.Errorf("circuit_breaker failure_threshold must be positive, got: %d", c.CircuitBreaker.FailureThreshold)
		}
		if c.CircuitBreaker.SuccessThreshold <= 0 {
			return fmt.Errorf("circuit_breaker success_threshold must be positive, got: %d", c.CircuitBreaker.SuccessThreshold)
		}
		if c.CircuitBreaker.Timeout <= 0 {
			return fmt.Errorf("circuit_breaker timeout must be positive, got: %s", c.CircuitBreaker.Timeout)
		}
		switch c.CircuitBreaker.FallbackExporterType {
		case "stdout", "noop":
		default:
			return fmt.Errorf("unsupported fallback exporter type: %s (supported: stdout, noop)", c.CircuitBreaker.FallbackExporterType)
		}
	}

	return nil
}

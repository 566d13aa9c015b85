package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// MetricsManager owns the MeterProvider and its periodic exporter.
type MetricsManager struct {
	meterProvider *sdkmetric.MeterProvider
	config        MetricsConfig
	enabled       bool
}

// NewMetricsManager builds the meter provider and installs it globally.
// Returns a disabled manager when metrics are configured off.
func NewMetricsManager(cfg Config, res *resource.Resource) (*MetricsManager, error) {
	if !cfg.Enabled || !cfg.Metrics.Enabled {
		return &MetricsManager{enabled: false, config: cfg.Metrics}, nil
	}

	exporter, err := buildMetricsExporter(cfg)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(cfg.Metrics.ExportInterval),
		sdkmetric.WithTimeout(cfg.Metrics.ExportTimeout),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	return &MetricsManager{
		meterProvider: mp,
		config:        cfg.Metrics,
		enabled:       true,
	}, nil
}

// buildMetricsExporter maps the shared exporter config onto a metrics
// exporter. Metrics deliberately follow the trace exporter type so one
// config section drives both signals.
func buildMetricsExporter(cfg Config) (sdkmetric.Exporter, error) {
	switch cfg.Exporter.Type {
	case "otlp":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Exporter.Endpoint),
			otlpmetricgrpc.WithTimeout(cfg.Exporter.Timeout),
		}
		if cfg.Exporter.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		if len(cfg.Exporter.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Exporter.Headers))
		}
		exporter, err := otlpmetricgrpc.New(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		return exporter, nil

	case "stdout":
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		return exporter, nil

	default:
		return nil, fmt.Errorf("unsupported metrics exporter type: %s", cfg.Exporter.Type)
	}
}

// Shutdown flushes and stops the meter provider.
func (m *MetricsManager) Shutdown(ctx context.Context) error {
	if m.meterProvider != nil {
		return m.meterProvider.Shutdown(ctx)
	}
	return nil
}

// GetMeter returns a meter from the global provider.
func (m *MetricsManager) GetMeter(name string) metric.Meter {
	return otel.Meter(name)
}

func (m *MetricsManager) IsEnabled() bool {
	return m.enabled
}

func (m *MetricsManager) GetConfig() MetricsConfig {
	return m.config
}

// IsHTTPMetricsEnabled reports whether the HTTP layer exports metrics.
func (m *MetricsManager) IsHTTPMetricsEnabled() bool {
	return m.enabled && m.config.HTTP.Enabled
}

// IsDBMetricsEnabled reports whether the database layer exports metrics.
func (m *MetricsManager) IsDBMetricsEnabled() bool {
	return m.enabled && m.config.Database.Enabled
}

// IsRedisMetricsEnabled reports whether the redis clients export metrics.
func (m *MetricsManager) IsRedisMetricsEnabled() bool {
	return m.enabled && m.config.Redis.Enabled
}

// IsEventMetricsEnabled reports whether the event pipeline exports metrics.
func (m *MetricsManager) IsEventMetricsEnabled() bool {
	return m.enabled && m.config.Event.Enabled
}

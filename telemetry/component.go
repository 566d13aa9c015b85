package telemetry

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const ComponentName = component.ComponentTelemetry

// Component drives the telemetry manager through the component
// lifecycle and exposes the metrics registry to other components.
type Component struct {
	config          Config
	logger          *logger.CtxZapLogger
	manager         *Manager
	metricsRegistry *MetricsRegistry
}

// NewComponent creates the telemetry component. Telemetry stays off
// until the configuration enables it.
func NewComponent() *Component {
	return &Component{
		config: DefaultConfig(),
	}
}

func (c *Component) Name() string {
	return ComponentName
}

func (c *Component) DependsOn() []string {
	return []string{
		component.ComponentConfig,
		component.ComponentLogger,
	}
}

// Init loads and validates configuration, then starts the telemetry
// pipeline. Tracing must be live before dependent components start so
// their startup spans are captured.
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.logger = logger.GetLogger("aegis")

	c.config = DefaultConfig()
	if loader.IsSet("telemetry") {
		var loadedConfig Config
		if err := loader.Unmarshal("telemetry", &loadedConfig); err != nil {
			c.logger.ErrorCtx(ctx, "telemetry config exists but unmarshal failed", zap.Error(err))
			return fmt.Errorf("unmarshal telemetry config: %w", err)
		}
		c.config = loadedConfig
	}

	if err := c.config.Validate(); err != nil {
		return fmt.Errorf("validate telemetry config: %w", err)
	}

	if !c.config.Enabled {
		c.logger.InfoCtx(ctx, "OpenTelemetry is disabled")
		return nil
	}

	c.manager = NewManager(c.config, c.logger)
	if err := c.manager.Start(ctx); err != nil {
		return err
	}

	if c.config.Metrics.Enabled {
		c.metricsRegistry = c.createMetricsRegistry()
	}

	return nil
}

func (c *Component) Start(ctx context.Context) error {
	return nil
}

// Stop flushes and shuts the pipeline down.
func (c *Component) Stop(ctx context.Context) error {
	if !c.config.Enabled || c.manager == nil {
		return nil
	}

	c.logger.InfoCtx(ctx, "Shutting down OpenTelemetry...")
	if err := c.manager.Shutdown(ctx); err != nil {
		c.logger.ErrorCtx(ctx, "Failed to shutdown OpenTelemetry", zap.Error(err))
		return err
	}

	c.logger.InfoCtx(ctx, "✅ OpenTelemetry stopped")
	return nil
}

// GetTracerProvider returns the provider, or the global no-op one when
// telemetry is disabled.
func (c *Component) GetTracerProvider() otelTrace.TracerProvider {
	if c.manager == nil {
		return otel.GetTracerProvider()
	}
	return c.manager.GetTracerProvider()
}

// GetTracer returns a named tracer.
func (c *Component) GetTracer(name string) otelTrace.Tracer {
	return c.GetTracerProvider().Tracer(name)
}

func (c *Component) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Component) GetConfig() Config {
	return c.config
}

// GetManager returns the telemetry manager, nil when telemetry is off.
func (c *Component) GetManager() *Manager {
	return c.manager
}

// GetMetricsManager returns the metrics manager, nil when metrics are off.
func (c *Component) GetMetricsManager() *MetricsManager {
	if c.manager == nil {
		return nil
	}
	return c.manager.GetMetricsManager()
}

// GetMetricsRegistry returns the centralized registry other components
// register their metrics providers with.
func (c *Component) GetMetricsRegistry() *MetricsRegistry {
	return c.metricsRegistry
}

// GetCircuitBreakerStats reports the exporter circuit breaker state for
// diagnostics endpoints.
func (c *Component) GetCircuitBreakerStats() map[string]interface{} {
	if c.manager == nil || c.manager.GetCircuitBreaker() == nil {
		return map[string]interface{}{"enabled": false}
	}
	stats := c.manager.GetCircuitBreaker().GetStats()
	stats["enabled"] = true
	return stats
}

func (c *Component) createMetricsRegistry() *MetricsRegistry {
	return NewMetricsRegistry(
		otel.GetMeterProvider(),
		WithNamespace(c.config.Metrics.Namespace),
		WithBaseLabels(c.buildBaseLabels()),
		WithLogger(c.logger),
	)
}

// buildBaseLabels assembles the global labels every metric carries.
func (c *Component) buildBaseLabels() []attribute.KeyValue {
	labels := []attribute.KeyValue{
		attribute.String("service.name", c.config.ServiceName),
		attribute.String("service.version", c.config.ServiceVersion),
	}

	for k, v := range c.config.Metrics.Labels {
		labels = append(labels, attribute.String(k, v))
	}

	return labels
}

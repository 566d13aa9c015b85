package breaker

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"github.com/KOMKZ/go-aegis-framework/telemetry"
	"go.uber.org/zap"
)

// Component wires the circuit breaker manager into the application
// lifecycle. The manager always exists after Init; with no "breaker"
// config section it stays disabled and passes calls through.
//
// Depends on config and logger. Telemetry is optional: when present and
// enabled, the OTel exporter is bound to the manager during Start.
type Component struct {
	manager    *Manager
	registry   component.Registry
	logger     *logger.CtxZapLogger
	metrics    *OTelBreakerMetrics
	metricsCfg BreakerMetricsConfig
}

// NewComponent creates the breaker component.
func NewComponent() *Component {
	return &Component{}
}

// SetRegistry hands the component registry over, used to look up the
// optional telemetry component.
func (c *Component) SetRegistry(r component.Registry) {
	c.registry = r
}

// Name implements component.Component.
func (c *Component) Name() string {
	return component.ComponentBreaker
}

// DependsOn implements component.Component.
func (c *Component) DependsOn() []string {
	return []string{
		component.ComponentConfig,
		component.ComponentLogger,
		"optional:" + component.ComponentTelemetry,
	}
}

// Init builds the manager from the "breaker" config key.
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.logger = logger.GetLogger("aegis")

	cfg := DefaultConfig()
	if err := loader.Unmarshal("breaker", &cfg); err != nil {
		return fmt.Errorf("read breaker config: %w", err)
	}

	c.metricsCfg = BreakerMetricsConfig{Enabled: true, RecordState: true}
	if err := loader.Unmarshal("breaker.metrics", &c.metricsCfg); err != nil {
		c.logger.DebugCtx(ctx, "using default breaker metrics configuration")
	}

	manager, err := NewManagerWithLogger(cfg, c.logger)
	if err != nil {
		return fmt.Errorf("create breaker manager: %w", err)
	}

	c.manager = manager
	if cfg.Enabled {
		c.logger.DebugCtx(ctx, "✅ Circuit breaker manager created",
			zap.Int("resources", len(cfg.Resources)))
	}
	return nil
}

// Start binds the OTel metrics exporter when the telemetry component is
// registered and enabled.
func (c *Component) Start(ctx context.Context) error {
	if c.manager == nil || !c.manager.IsEnabled() || !c.metricsCfg.Enabled {
		return nil
	}

	tc := c.telemetryComponent()
	if tc == nil {
		return nil
	}
	mr := tc.GetMetricsRegistry()
	if mr == nil {
		return nil
	}

	metrics := NewOTelBreakerMetrics(c.metricsCfg)
	if err := mr.Register(metrics); err != nil {
		c.logger.ErrorCtx(ctx, "Failed to register breaker metrics", zap.Error(err))
		return nil
	}

	metrics.Bind(c.manager)
	c.metrics = metrics
	c.logger.DebugCtx(ctx, "✅ Breaker metrics bound to telemetry")
	return nil
}

func (c *Component) telemetryComponent() *telemetry.Component {
	if c.registry == nil {
		return nil
	}
	tc, ok := component.GetTyped[*telemetry.Component](c.registry, component.ComponentTelemetry)
	if !ok || !tc.IsEnabled() {
		return nil
	}
	return tc
}

// Stop closes the event bus and releases the breakers.
func (c *Component) Stop(ctx context.Context) error {
	if c.manager != nil {
		c.manager.Close()
	}
	return nil
}

// GetManager returns the breaker manager. Never nil after Init; a
// disabled manager executes calls directly.
func (c *Component) GetManager() *Manager {
	return c.manager
}

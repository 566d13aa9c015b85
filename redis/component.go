package redis

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"github.com/KOMKZ/go-aegis-framework/telemetry"
	"go.uber.org/zap"
)

// Component manages the redis clients of the service. The fallback
// resolver stores its cached answers through these clients.
//
// Depends on config and logger. Telemetry is optional: when present and
// enabled, the command metrics hook is attached during Start.
type Component struct {
	manager  *Manager
	registry component.Registry
	logger   *logger.CtxZapLogger
}

// NewComponent creates the redis component.
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
	return component.ComponentRedis
}

// DependsOn implements component.Component.
func (c *Component) DependsOn() []string {
	return []string{
		component.ComponentConfig,
		component.ComponentLogger,
		"optional:" + component.ComponentTelemetry,
	}
}

// Init reads redis.instances and connects the configured clients.
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.logger = logger.GetLogger("aegis")
	c.logger.DebugCtx(ctx, "🔧 Initializing redis component...")

	var redisConfigs map[string]Config
	if err := loader.Unmarshal("redis.instances", &redisConfigs); err != nil {
		return fmt.Errorf("failed to read redis config: %w", err)
	}

	c.logger.DebugCtx(ctx, "✅ Redis config loaded", zap.Int("configs_count", len(redisConfigs)))

	if len(redisConfigs) == 0 {
		c.logger.DebugCtx(ctx, "No redis instances configured, skipping")
		return nil
	}

	manager, err := NewManager(redisConfigs, c.logger)
	if err != nil {
		return fmt.Errorf("failed to create redis manager: %w", err)
	}

	c.manager = manager
	c.logger.DebugCtx(ctx, "✅ Redis initialized")
	return nil
}

// Start attaches the metrics hook when the telemetry component is
// registered and exports redis metrics.
func (c *Component) Start(ctx context.Context) error {
	if c.manager == nil {
		return nil
	}

	tc := c.telemetryComponent()
	if tc == nil {
		return nil
	}

	mm := tc.GetMetricsManager()
	if mm == nil || !mm.IsRedisMetricsEnabled() {
		return nil
	}
	mr := tc.GetMetricsRegistry()
	if mr == nil {
		return nil
	}

	redisCfg := mm.GetConfig().Redis
	metrics := NewRedisMetrics(RedisMetricsConfig{
		Enabled:         redisCfg.Enabled,
		RecordHitMiss:   redisCfg.RecordHitMiss,
		RecordPoolStats: redisCfg.RecordPoolStats,
	})

	if err := mr.Register(metrics); err != nil {
		c.logger.ErrorCtx(ctx, "Failed to register redis metrics", zap.Error(err))
		return nil
	}

	c.manager.SetMetrics(metrics)
	c.logger.DebugCtx(ctx, "✅ Redis metrics bound to telemetry")
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

// Stop closes all redis clients.
func (c *Component) Stop(ctx context.Context) error {
	if c.manager != nil {
		if err := c.manager.Close(); err != nil {
			return fmt.Errorf("failed to close redis connections: %w", err)
		}
	}
	return nil
}

// GetManager returns the redis manager, nil when no instance is
// configured.
func (c *Component) GetManager() *Manager {
	return c.manager
}

// GetHealthChecker implements component.HealthCheckProvider.
func (c *Component) GetHealthChecker() component.HealthChecker {
	if c.manager == nil {
		return nil
	}
	return NewHealthChecker(c.manager)
}

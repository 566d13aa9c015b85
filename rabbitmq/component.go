package rabbitmq

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"go.uber.org/zap"
)

// Component wires the broker manager into the application lifecycle.
//
// Implements component.Component. Depends on: config, logger.
type Component struct {
	manager *Manager
	logger  *logger.CtxZapLogger
}

// NewComponent creates the broker component.
func NewComponent() *Component {
	return &Component{}
}

// Name returns the component name.
func (c *Component) Name() string {
	return component.ComponentRabbitMQ
}

// DependsOn declares the config and logger dependencies.
func (c *Component) DependsOn() []string {
	return []string{component.ComponentConfig, component.ComponentLogger}
}

// Init builds the manager from the "rabbitmq" config key. Skips when no
// broker address is configured.
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.logger = logger.GetLogger("aegis")
	c.logger.DebugCtx(ctx, "🔧 RabbitMQ component initializing...")

	var cfg Config
	if err := loader.Unmarshal("rabbitmq", &cfg); err != nil {
		c.logger.DebugCtx(ctx, "RabbitMQ not configured, skipping")
		return nil
	}

	if cfg.URL == "" && cfg.Host == "" {
		c.logger.InfoCtx(ctx, "RabbitMQ broker address not configured, skipping")
		return nil
	}

	manager, err := NewManager(cfg, c.logger)
	if err != nil {
		return fmt.Errorf("create rabbitmq manager failed: %w", err)
	}

	c.manager = manager
	c.logger.DebugCtx(ctx, "✅ RabbitMQ manager created",
		zap.String("exchange", manager.GetConfig().Exchange.Name),
		zap.Int("supervisor_max_attempts", manager.GetConfig().Supervisor.MaxAttempts))

	return nil
}

// Start connects under supervisor policy and declares the topology. A
// BrokerUnreachable error here is fatal to the owning process.
func (c *Component) Start(ctx context.Context) error {
	if c.manager == nil {
		return nil // not configured
	}

	if err := c.manager.Connect(ctx); err != nil {
		return fmt.Errorf("connect to broker failed: %w", err)
	}
	if err := c.manager.DeclareTopology(ctx); err != nil {
		return fmt.Errorf("declare broker topology failed: %w", err)
	}

	c.logger.InfoCtx(ctx, "✅ RabbitMQ component started")
	return nil
}

// Stop closes consumers, publisher and connection.
func (c *Component) Stop(ctx context.Context) error {
	if c.manager != nil {
		if err := c.manager.Close(); err != nil {
			return fmt.Errorf("close broker connection failed: %w", err)
		}
	}
	c.logger.InfoCtx(ctx, "✅ RabbitMQ component stopped")
	return nil
}

// GetManager returns the broker manager, nil when not configured.
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

package health

import (
	"context"
	"time"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"go.uber.org/zap"
)

const ComponentName = component.ComponentHealth

// Component wires the aggregator into the component lifecycle. During
// Start it walks the registry and adopts every component that exposes a
// health checker.
type Component struct {
	aggregator *Aggregator
	config     Config
	logger     *logger.CtxZapLogger
	registry   component.Registry
}

// NewComponent creates the health component.
func NewComponent() *Component {
	return &Component{}
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

// Init loads configuration and builds the aggregator.
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.logger = logger.GetLogger("aegis")

	c.config = DefaultConfig()
	if loader.IsSet("health") {
		if err := loader.Unmarshal("health", &c.config); err != nil {
			c.logger.WarnCtx(ctx, "Failed to unmarshal health config, using default", zap.Error(err))
		}
	}

	if !c.config.Enabled {
		c.logger.InfoCtx(ctx, "Health check is disabled")
		return nil
	}

	c.aggregator = NewAggregator(c.config.Timeout)
	c.aggregator.SetMetadata("service", "aegis")

	c.logger.InfoCtx(ctx, "✅ Health check component initialized",
		zap.Duration("timeout", c.config.Timeout))

	return nil
}

// Start discovers health checkers from the registry.
func (c *Component) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	if c.registry != nil {
		c.discoverCheckers(ctx)
	}

	c.logger.InfoCtx(ctx, "✅ Health check component started")
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	c.logger.InfoCtx(ctx, "✅ Health check component stopped")
	return nil
}

// SetRegistry hands the component registry over for checker discovery.
// Must be called before Start.
func (c *Component) SetRegistry(r component.Registry) {
	c.registry = r
}

// SetMetadata attaches service metadata to the report.
func (c *Component) SetMetadata(key string, value interface{}) {
	if c.aggregator != nil {
		c.aggregator.SetMetadata(key, value)
	}
}

// GetAggregator exposes the aggregator, e.g. for manual registration.
func (c *Component) GetAggregator() *Aggregator {
	return c.aggregator
}

func (c *Component) IsEnabled() bool {
	return c.config.Enabled
}

// discoverCheckers adopts the health checkers of every registered
// component that provides one.
func (c *Component) discoverCheckers(ctx context.Context) {
	comps, err := c.registry.Resolve()
	if err != nil {
		c.logger.WarnCtx(ctx, "Health checker discovery skipped", zap.Error(err))
		return
	}

	for _, comp := range comps {
		provider, ok := comp.(component.HealthCheckProvider)
		if !ok {
			continue
		}
		checker := provider.GetHealthChecker()
		if checker == nil {
			continue
		}
		c.aggregator.Register(checker)
		c.logger.DebugCtx(ctx, "Registered health checker", zap.String("name", checker.Name()))
	}
}

// Check runs the aggregated health check. A disabled component reports
// healthy so probes never fail because checks are switched off.
func (c *Component) Check(ctx context.Context) *Response {
	if !c.config.Enabled || c.aggregator == nil {
		return &Response{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
			Checks:    make(map[string]CheckResult),
			Metadata:  map[string]interface{}{"enabled": false},
		}
	}
	return c.aggregator.Check(ctx)
}

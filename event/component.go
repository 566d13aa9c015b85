package event

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"github.com/KOMKZ/go-aegis-framework/telemetry"
	"go.uber.org/zap"
)

// Component wires the event dispatcher into the application lifecycle.
//
// Depends on config and logger. Telemetry is optional: when present and
// enabled, a metrics interceptor is installed on the dispatcher during
// Start.
type Component struct {
	dispatcher *dispatcher
	publisher  *Publisher
	registry   component.Registry
	logger     *logger.CtxZapLogger
	config     Config
	metrics    *EventMetrics
}

// NewComponent creates the event component.
func NewComponent() *Component {
	return &Component{}
}

// SetRegistry hands the component registry over, used to look up the
// optional telemetry component.
func (c *Component) SetRegistry(r component.Registry) {
	c.registry = r
}

// Name returns the component name.
func (c *Component) Name() string {
	return component.ComponentEvent
}

// DependsOn returns the components this one needs.
func (c *Component) DependsOn() []string {
	return []string{
		component.ComponentConfig,
		component.ComponentLogger,
		"optional:" + component.ComponentRabbitMQ,
		"optional:" + component.ComponentTelemetry,
	}
}

// Init loads the configuration and builds the dispatcher.
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.logger = logger.GetLogger("aegis")
	c.logger.DebugCtx(ctx, "🔧 Event component initializing...")

	c.config = DefaultConfig()
	if err := loader.Unmarshal("event", &c.config); err != nil {
		c.logger.DebugCtx(ctx, "using default event configuration")
	}

	if !c.config.Enabled {
		c.logger.InfoCtx(ctx, "⏭️ Event component disabled")
		return nil
	}

	opts := []DispatcherOption{WithPoolSize(c.config.PoolSize)}
	if c.config.SetAllSync {
		opts = append(opts, WithSetAllSync(true))
	}
	if len(c.config.Routes) > 0 {
		router := NewRouter()
		router.LoadRoutes(c.config.Routes)
		opts = append(opts, WithRouter(router))
	}

	c.dispatcher = NewDispatcher(opts...)

	c.logger.InfoCtx(ctx, fmt.Sprintf("✅ Event component initialized (pool_size=%d, routes=%d)",
		c.config.PoolSize, len(c.config.Routes)))
	return nil
}

// Start installs the metrics interceptor when the telemetry component
// is registered and exports event metrics.
func (c *Component) Start(ctx context.Context) error {
	if c.dispatcher == nil {
		return nil
	}

	tc := c.telemetryComponent()
	if tc == nil {
		return nil
	}

	mm := tc.GetMetricsManager()
	if mm == nil || !mm.IsEventMetricsEnabled() {
		return nil
	}
	mr := tc.GetMetricsRegistry()
	if mr == nil {
		return nil
	}

	eventCfg := mm.GetConfig().Event
	metrics := NewEventMetrics(EventMetricsConfig{
		Enabled:         eventCfg.Enabled,
		RecordQueueSize: eventCfg.RecordQueueSize,
	})

	if err := mr.Register(metrics); err != nil {
		c.logger.ErrorCtx(ctx, "Failed to register event metrics", zap.Error(err))
		return nil
	}

	metrics.SetQueueSizeCallback(func() int64 {
		return int64(c.dispatcher.QueueDepth())
	})
	c.dispatcher.Use(metrics.Interceptor())
	c.metrics = metrics
	c.logger.DebugCtx(ctx, "✅ Event metrics bound to telemetry")
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

// Stop releases the dispatcher worker pool.
func (c *Component) Stop(ctx context.Context) error {
	if c.dispatcher != nil {
		c.dispatcher.Close()
		c.logger.InfoCtx(ctx, "✅ Event component stopped")
	}
	return nil
}

// GetDispatcher returns the event dispatcher.
func (c *Component) GetDispatcher() Dispatcher {
	return c.dispatcher
}

// GetPublisher returns the best-effort after-commit publisher, or nil
// until a broker publisher has been attached.
func (c *Component) GetPublisher() *Publisher {
	return c.publisher
}

// IsEnabled reports whether the dispatcher is active.
func (c *Component) IsEnabled() bool {
	return c.config.Enabled && c.dispatcher != nil
}

// SetBrokerPublisher attaches the broker so WithBroker() dispatches and
// configured broker routes can deliver, and builds the after-commit
// publisher around it. The application calls this once the broker
// component is up.
func (c *Component) SetBrokerPublisher(publisher BrokerPublisher) {
	if c.dispatcher != nil {
		c.dispatcher.broker = publisher
	}
	c.publisher = NewPublisher(publisher)
}

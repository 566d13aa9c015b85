package component

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider is optionally implemented by components that export
// metrics through the centralized metrics registry.
//
//	func (c *Component) MetricsName() string { return "rabbitmq" }
//
//	func (c *Component) RegisterMetrics(meter metric.Meter) error {
//	    counter, err := meter.Int64Counter("rabbitmq_published_total")
//	    if err != nil {
//	        return err
//	    }
//	    c.publishedCounter = counter
//	    return nil
//	}
//
//	func (c *Component) IsMetricsEnabled() bool { return c.config.Metrics.Enabled }
type MetricsProvider interface {
	// MetricsName returns the metrics group name used for meter naming.
	// Short lowercase identifiers like "rabbitmq", "breaker".
	MetricsName() string

	// RegisterMetrics registers the component's instruments. Called once
	// after component Init with a meter scoped to the component.
	RegisterMetrics(meter metric.Meter) error

	// IsMetricsEnabled reports whether this component exports metrics.
	IsMetricsEnabled() bool
}

// MetricsCollector is the centralized metrics registry contract,
// implemented by telemetry.MetricsRegistry.
type MetricsCollector interface {
	// Register wires a provider's instruments into the registry.
	Register(provider MetricsProvider) error

	// GetMeter returns a meter for the given component name, carrying the
	// global base labels.
	GetMeter(name string) metric.Meter

	// GetBaseLabels returns the global base labels (service name, env).
	GetBaseLabels() []attribute.KeyValue

	// IsEnabled reports whether metrics collection is globally enabled.
	IsEnabled() bool
}

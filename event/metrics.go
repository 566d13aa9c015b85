package event

import (
	"context"
	"sync"
	"time"

	"github.com/KOMKZ/go-aegis-framework/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EventMetricsConfig tunes the exported instrument set.
type EventMetricsConfig struct {
	Enabled         bool
	RecordQueueSize bool
}

// EventMetrics exports dispatch activity through OpenTelemetry. It
// implements component.MetricsProvider and observes dispatches as an
// interceptor on the dispatcher.
type EventMetrics struct {
	config     EventMetricsConfig
	registered bool
	mu         sync.RWMutex

	dispatched     metric.Int64Counter
	dispatchErrors metric.Int64Counter
	duration       metric.Float64Histogram
	queueSize      metric.Int64ObservableGauge

	queueSizeCallback func() int64
}

// NewEventMetrics creates an unregistered provider.
func NewEventMetrics(cfg EventMetricsConfig) *EventMetrics {
	return &EventMetrics{
		config: cfg,
	}
}

// MetricsName returns the metrics group name.
func (m *EventMetrics) MetricsName() string {
	return "event"
}

// IsMetricsEnabled reports whether export is enabled.
func (m *EventMetrics) IsMetricsEnabled() bool {
	return m.config.Enabled
}

// RegisterMetrics creates the instruments on the given meter.
// Registration is idempotent and a no-op for a disabled provider.
func (m *EventMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered || !m.config.Enabled {
		return nil
	}

	builder := telemetry.NewMetricsBuilder(meter, "")
	var err error

	m.dispatched, err = builder.CounterWithUnit(
		"event_dispatched_total",
		"Total number of events dispatched",
		"{event}",
	)
	if err != nil {
		return err
	}

	m.dispatchErrors, err = builder.CounterWithUnit(
		"event_dispatch_errors_total",
		"Total number of dispatches where a listener returned an error",
		"{event}",
	)
	if err != nil {
		return err
	}

	m.duration, err = builder.DurationHistogram(
		"event_dispatch_duration_seconds",
		"Event dispatch duration distribution",
	)
	if err != nil {
		return err
	}

	if m.config.RecordQueueSize {
		m.queueSize, err = builder.Gauge(
			"event_queue_size",
			"Events running or waiting on the async worker pool",
			func(_ context.Context) (int64, error) {
				m.mu.RLock()
				callback := m.queueSizeCallback
				m.mu.RUnlock()

				if callback == nil {
					return 0, nil
				}
				return callback(), nil
			},
		)
		if err != nil {
			return err
		}
	}

	m.registered = true
	return nil
}

// SetQueueSizeCallback wires the queue size gauge to its source.
func (m *EventMetrics) SetQueueSizeCallback(callback func() int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueSizeCallback = callback
}

// RecordDispatched logs one dispatch outcome. No-op before
// registration.
func (m *EventMetrics) RecordDispatched(ctx context.Context, eventName string, duration time.Duration, err error) {
	if !m.IsRegistered() {
		return
	}

	attrs := metric.WithAttributes(attribute.String("event", eventName))

	m.dispatched.Add(ctx, 1, attrs)
	m.duration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.dispatchErrors.Add(ctx, 1, attrs)
	}
}

// Interceptor returns the dispatcher interceptor feeding the provider.
func (m *EventMetrics) Interceptor() Interceptor {
	return func(ctx context.Context, event Event, next Next) error {
		start := time.Now()
		err := next(ctx, event)
		m.RecordDispatched(ctx, event.Name(), time.Since(start), err)
		return err
	}
}

// IsRegistered reports whether RegisterMetrics ran.
func (m *EventMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

package breaker

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelBreakerMetrics exports breaker activity through OpenTelemetry. It
// implements component.MetricsProvider and feeds itself by subscribing to a
// Manager's event bus via Bind.
type OTelBreakerMetrics struct {
	config     BreakerMetricsConfig
	meter      metric.Meter
	registered bool
	mu         sync.RWMutex

	requestsTotal   metric.Int64Counter
	successesTotal  metric.Int64Counter
	failuresTotal   metric.Int64Counter
	rejectionsTotal metric.Int64Counter
	latency         metric.Float64Histogram
	stateGauge      metric.Int64ObservableGauge

	// source supplies per-resource states for the gauge, set by Bind.
	source   func() map[string]State
	sourceMu sync.RWMutex
}

// BreakerMetricsConfig tunes the exported instrument set.
type BreakerMetricsConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	RecordState bool `mapstructure:"record_state"`
}

// NewOTelBreakerMetrics creates an unbound, unregistered exporter.
func NewOTelBreakerMetrics(cfg BreakerMetricsConfig) *OTelBreakerMetrics {
	return &OTelBreakerMetrics{config: cfg}
}

// MetricsName returns the metrics group name.
func (m *OTelBreakerMetrics) MetricsName() string {
	return "breaker"
}

// IsMetricsEnabled reports whether export is enabled.
func (m *OTelBreakerMetrics) IsMetricsEnabled() bool {
	return m.config.Enabled
}

// RegisterMetrics creates the instruments on the given meter. Registration
// is idempotent.
func (m *OTelBreakerMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	m.meter = meter
	var err error

	m.requestsTotal, err = meter.Int64Counter(
		"breaker_requests_total",
		metric.WithDescription("Total number of circuit breaker requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	m.successesTotal, err = meter.Int64Counter(
		"breaker_successes_total",
		metric.WithDescription("Total number of successful requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	m.failuresTotal, err = meter.Int64Counter(
		"breaker_failures_total",
		metric.WithDescription("Total number of failed requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	m.rejectionsTotal, err = meter.Int64Counter(
		"breaker_rejections_total",
		metric.WithDescription("Total number of rejected requests (circuit open)"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	m.latency, err = meter.Float64Histogram(
		"breaker_latency_seconds",
		metric.WithDescription("Request latency distribution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	if m.config.RecordState {
		m.stateGauge, err = meter.Int64ObservableGauge(
			"breaker_state",
			metric.WithDescription("Current circuit breaker state (0=closed, 1=open, 2=half-open)"),
			metric.WithInt64Callback(m.collectState),
		)
		if err != nil {
			return err
		}
	}

	m.registered = true
	return nil
}

// Bind subscribes the exporter to a manager's event bus so call outcomes
// flow into the counters, and wires the state gauge to the manager. No-op
// for a disabled manager.
func (m *OTelBreakerMetrics) Bind(mgr *Manager) SubscriptionID {
	m.sourceMu.Lock()
	m.source = mgr.States
	m.sourceMu.Unlock()

	bus := mgr.GetEventBus()
	if bus == nil {
		return ""
	}

	return bus.Subscribe(EventListenerFunc(m.onEvent),
		EventCallSuccess, EventCallFailure, EventCallTimeout, EventCallRejected)
}

func (m *OTelBreakerMetrics) onEvent(event Event) {
	ctx := event.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch e := event.(type) {
	case *CallEvent:
		if e.Success {
			m.RecordSuccess(ctx, e.Resource(), e.Duration)
			return
		}
		errType := "error"
		if event.Type() == EventCallTimeout {
			errType = "timeout"
		}
		m.RecordFailure(ctx, e.Resource(), e.Duration, errType)

	case *RejectedEvent:
		m.RecordRejection(ctx, e.Resource())
	}
}

// collectState observes every known resource's state.
func (m *OTelBreakerMetrics) collectState(_ context.Context, observer metric.Int64Observer) error {
	m.sourceMu.RLock()
	source := m.source
	m.sourceMu.RUnlock()

	if source == nil {
		return nil
	}

	for resource, state := range source() {
		observer.Observe(int64(state),
			metric.WithAttributes(attribute.String("resource", resource)),
		)
	}
	return nil
}

// RecordSuccess counts a successful request.
func (m *OTelBreakerMetrics) RecordSuccess(ctx context.Context, resource string, duration time.Duration) {
	if !m.IsRegistered() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("resource", resource),
		attribute.String("result", "success"),
	}

	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.successesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("resource", resource)))
	m.latency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("resource", resource)))
}

// RecordFailure counts a failed request.
func (m *OTelBreakerMetrics) RecordFailure(ctx context.Context, resource string, duration time.Duration, errorType string) {
	if !m.IsRegistered() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("resource", resource),
		attribute.String("result", "failure"),
	}

	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.failuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("error_type", errorType),
	))
	m.latency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("resource", resource)))
}

// RecordRejection counts a short-circuited request.
func (m *OTelBreakerMetrics) RecordRejection(ctx context.Context, resource string) {
	if !m.IsRegistered() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("resource", resource),
		attribute.String("result", "rejected"),
	}

	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.rejectionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("resource", resource)))
}

// IsRegistered reports whether RegisterMetrics ran.
func (m *OTelBreakerMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

package redis

import (
	"context"
	"sync"
	"time"

	"github.com/KOMKZ/go-aegis-framework/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RedisMetricsConfig tunes the exported instrument set.
type RedisMetricsConfig struct {
	Enabled         bool
	RecordHitMiss   bool
	RecordPoolStats bool
}

// RedisMetrics exports client activity through OpenTelemetry. It
// implements component.MetricsProvider; the manager attaches it to every
// client as a command hook via SetMetrics.
type RedisMetrics struct {
	config     RedisMetricsConfig
	registered bool
	mu         sync.RWMutex

	// operations carries command totals, durations and errors; cache
	// carries hit/miss and is nil unless RecordHitMiss is on.
	operations *telemetry.OperationMetrics
	cache      *telemetry.CacheMetrics

	connectionsActive metric.Int64ObservableGauge
	connectionsIdle   metric.Int64ObservableGauge

	// poolCallbacks supplies per-instance pool snapshots to the gauges.
	poolCallbacks map[string]func() PoolStats
	poolMu        sync.RWMutex
}

// PoolStats is one client's connection pool snapshot.
type PoolStats struct {
	ActiveCount int64
	IdleCount   int64
}

// NewRedisMetrics creates an unregistered provider.
func NewRedisMetrics(cfg RedisMetricsConfig) *RedisMetrics {
	return &RedisMetrics{
		config:        cfg,
		poolCallbacks: make(map[string]func() PoolStats),
	}
}

// MetricsName returns the metrics group name.
func (m *RedisMetrics) MetricsName() string {
	return "redis"
}

// IsMetricsEnabled reports whether export is enabled.
func (m *RedisMetrics) IsMetricsEnabled() bool {
	return m.config.Enabled
}

// RegisterMetrics creates the instruments on the given meter.
// Registration is idempotent and a no-op for a disabled provider.
func (m *RedisMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered || !m.config.Enabled {
		return nil
	}

	builder := telemetry.NewMetricsBuilder(meter, "")

	operations, err := builder.NewOperationMetrics("redis")
	if err != nil {
		return err
	}
	m.operations = operations

	if m.config.RecordHitMiss {
		cache, err := builder.NewCacheMetrics("redis")
		if err != nil {
			return err
		}
		m.cache = cache
	}

	if m.config.RecordPoolStats {
		m.connectionsActive, err = meter.Int64ObservableGauge(
			"redis_connections_active",
			metric.WithDescription("Number of active connections"),
			metric.WithUnit("{connection}"),
			metric.WithInt64Callback(m.collectActiveConnections),
		)
		if err != nil {
			return err
		}

		m.connectionsIdle, err = meter.Int64ObservableGauge(
			"redis_connections_idle",
			metric.WithDescription("Number of idle connections"),
			metric.WithUnit("{connection}"),
			metric.WithInt64Callback(m.collectIdleConnections),
		)
		if err != nil {
			return err
		}
	}

	m.registered = true
	return nil
}

func (m *RedisMetrics) collectActiveConnections(_ context.Context, observer metric.Int64Observer) error {
	m.poolMu.RLock()
	defer m.poolMu.RUnlock()

	for instance, callback := range m.poolCallbacks {
		stats := callback()
		observer.Observe(stats.ActiveCount,
			metric.WithAttributes(attribute.String("instance", instance)),
		)
	}
	return nil
}

func (m *RedisMetrics) collectIdleConnections(_ context.Context, observer metric.Int64Observer) error {
	m.poolMu.RLock()
	defer m.poolMu.RUnlock()

	for instance, callback := range m.poolCallbacks {
		stats := callback()
		observer.Observe(stats.IdleCount,
			metric.WithAttributes(attribute.String("instance", instance)),
		)
	}
	return nil
}

// RegisterPoolCallback wires an instance's pool snapshot into the
// connection gauges.
func (m *RedisMetrics) RegisterPoolCallback(instance string, callback func() PoolStats) {
	m.poolMu.Lock()
	defer m.poolMu.Unlock()
	m.poolCallbacks[instance] = callback
}

// UnregisterPoolCallback removes an instance's pool snapshot source.
func (m *RedisMetrics) UnregisterPoolCallback(instance string) {
	m.poolMu.Lock()
	defer m.poolMu.Unlock()
	delete(m.poolCallbacks, instance)
}

// RecordCommand logs one command outcome. No-op before registration.
func (m *RedisMetrics) RecordCommand(ctx context.Context, instance, command string, duration time.Duration, err error) {
	if !m.IsRegistered() {
		return
	}

	m.operations.Record(ctx, duration.Seconds(), err,
		attribute.String("instance", instance),
		attribute.String("command", command))
}

// RecordCacheHit logs a GET that found its key.
func (m *RedisMetrics) RecordCacheHit(ctx context.Context, instance string) {
	if !m.IsRegistered() || m.cache == nil {
		return
	}
	m.cache.RecordHit(ctx, attribute.String("instance", instance))
}

// RecordCacheMiss logs a GET that came back empty.
func (m *RedisMetrics) RecordCacheMiss(ctx context.Context, instance string) {
	if !m.IsRegistered() || m.cache == nil {
		return
	}
	m.cache.RecordMiss(ctx, attribute.String("instance", instance))
}

// IsRegistered reports whether RegisterMetrics ran.
func (m *RedisMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

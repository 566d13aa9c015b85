package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsBuilder cuts the instrument-creation boilerplate: namespaced
// names, common units, and templates for the recurring metric shapes.
type MetricsBuilder struct {
	meter     metric.Meter
	namespace string
}

// NewMetricsBuilder creates a builder. All instrument names get the
// namespace prefix.
func NewMetricsBuilder(meter metric.Meter, namespace string) *MetricsBuilder {
	return &MetricsBuilder{
		meter:     meter,
		namespace: namespace,
	}
}

func (b *MetricsBuilder) fullName(name string) string {
	if b.namespace == "" {
		return name
	}
	return b.namespace + "_" + name
}

// Counter creates an Int64Counter counting occurrences.
func (b *MetricsBuilder) Counter(name, desc string) (metric.Int64Counter, error) {
	return b.meter.Int64Counter(
		b.fullName(name),
		metric.WithDescription(desc),
		metric.WithUnit("{count}"),
	)
}

// CounterWithUnit creates an Int64Counter with a custom unit.
func (b *MetricsBuilder) CounterWithUnit(name, desc, unit string) (metric.Int64Counter, error) {
	return b.meter.Int64Counter(
		b.fullName(name),
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	)
}

// Histogram creates a Float64Histogram.
func (b *MetricsBuilder) Histogram(name, desc, unit string) (metric.Float64Histogram, error) {
	return b.meter.Float64Histogram(
		b.fullName(name),
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	)
}

// DurationHistogram creates a duration distribution in seconds.
func (b *MetricsBuilder) DurationHistogram(name, desc string) (metric.Float64Histogram, error) {
	return b.Histogram(name, desc, "s")
}

// BytesHistogram creates a byte-size distribution.
func (b *MetricsBuilder) BytesHistogram(name, desc string) (metric.Int64Histogram, error) {
	return b.meter.Int64Histogram(
		b.fullName(name),
		metric.WithDescription(desc),
		metric.WithUnit("By"),
	)
}

// Gauge creates an observable gauge fed by callback.
func (b *MetricsBuilder) Gauge(name, desc string, callback func(context.Context) (int64, error)) (metric.Int64ObservableGauge, error) {
	return b.meter.Int64ObservableGauge(
		b.fullName(name),
		metric.WithDescription(desc),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			val, err := callback(ctx)
			if err != nil {
				return err
			}
			o.Observe(val)
			return nil
		}),
	)
}

// GaugeWithAttrs creates an observable gauge whose callback also
// supplies attributes.
func (b *MetricsBuilder) GaugeWithAttrs(name, desc string, callback func(context.Context) (int64, []attribute.KeyValue, error)) (metric.Int64ObservableGauge, error) {
	return b.meter.Int64ObservableGauge(
		b.fullName(name),
		metric.WithDescription(desc),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			val, attrs, err := callback(ctx)
			if err != nil {
				return err
			}
			o.Observe(val, metric.WithAttributes(attrs...))
			return nil
		}),
	)
}

// UpDownCounter creates an Int64UpDownCounter.
func (b *MetricsBuilder) UpDownCounter(name, desc string) (metric.Int64UpDownCounter, error) {
	return b.meter.Int64UpDownCounter(
		b.fullName(name),
		metric.WithDescription(desc),
		metric.WithUnit("{count}"),
	)
}

// RequestMetrics is the template for request-shaped traffic: total,
// duration and errors.
type RequestMetrics struct {
	Total    metric.Int64Counter
	Duration metric.Float64Histogram
	Errors   metric.Int64Counter
}

// NewRequestMetrics creates the three request instruments at once.
func (b *MetricsBuilder) NewRequestMetrics(prefix string) (*RequestMetrics, error) {
	total, err := b.Counter(prefix+"_requests_total", "Total number of "+prefix+" requests")
	if err != nil {
		return nil, err
	}

	duration, err := b.DurationHistogram(prefix+"_duration_seconds", prefix+" request duration distribution")
	if err != nil {
		return nil, err
	}

	errors, err := b.Counter(prefix+"_errors_total", "Total number of "+prefix+" errors")
	if err != nil {
		return nil, err
	}

	return &RequestMetrics{
		Total:    total,
		Duration: duration,
		Errors:   errors,
	}, nil
}

// Record logs one request outcome.
func (m *RequestMetrics) Record(ctx context.Context, durationSec float64, err error, attrs ...attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	m.Total.Add(ctx, 1, opt)
	m.Duration.Record(ctx, durationSec, opt)
	if err != nil {
		m.Errors.Add(ctx, 1, opt)
	}
}

// PoolMetrics is the template for connection pools.
type PoolMetrics struct {
	Active    metric.Int64ObservableGauge
	Idle      metric.Int64ObservableGauge
	InUse     metric.Int64ObservableGauge
	WaitTotal metric.Int64Counter
}

// PoolStatsFunc supplies the current pool numbers.
type PoolStatsFunc func() (active, idle, inUse int64)

// NewPoolMetrics creates the pool instruments backed by statsFunc.
func (b *MetricsBuilder) NewPoolMetrics(prefix string, statsFunc PoolStatsFunc) (*PoolMetrics, error) {
	active, err := b.Gauge(prefix+"_connections_active", "Number of active connections", func(ctx context.Context) (int64, error) {
		a, _, _ := statsFunc()
		return a, nil
	})
	if err != nil {
		return nil, err
	}

	idle, err := b.Gauge(prefix+"_connections_idle", "Number of idle connections", func(ctx context.Context) (int64, error) {
		_, i, _ := statsFunc()
		return i, nil
	})
	if err != nil {
		return nil, err
	}

	inUse, err := b.Gauge(prefix+"_connections_in_use", "Number of in-use connections", func(ctx context.Context) (int64, error) {
		_, _, u := statsFunc()
		return u, nil
	})
	if err != nil {
		return nil, err
	}

	waitTotal, err := b.Counter(prefix+"_connections_wait_total", "Total number of connection waits")
	if err != nil {
		return nil, err
	}

	return &PoolMetrics{
		Active:    active,
		Idle:      idle,
		InUse:     inUse,
		WaitTotal: waitTotal,
	}, nil
}

// RecordWait logs one wait for a pooled connection.
func (m *PoolMetrics) RecordWait(ctx context.Context, attrs ...attribute.KeyValue) {
	m.WaitTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// OperationMetrics is the template for named operations (resolver
// calls, publishes, repository writes).
type OperationMetrics struct {
	Total    metric.Int64Counter
	Duration metric.Float64Histogram
	Errors   metric.Int64Counter
	Success  metric.Int64Counter
}

// NewOperationMetrics creates the operation instruments.
func (b *MetricsBuilder) NewOperationMetrics(prefix string) (*OperationMetrics, error) {
	total, err := b.Counter(prefix+"_operations_total", "Total number of "+prefix+" operations")
	if err != nil {
		return nil, err
	}

	duration, err := b.DurationHistogram(prefix+"_operation_duration_seconds", prefix+" operation duration distribution")
	if err != nil {
		return nil, err
	}

	errors, err := b.Counter(prefix+"_operation_errors_total", "Total number of "+prefix+" operation errors")
	if err != nil {
		return nil, err
	}

	success, err := b.Counter(prefix+"_operation_success_total", "Total number of successful "+prefix+" operations")
	if err != nil {
		return nil, err
	}

	return &OperationMetrics{
		Total:    total,
		Duration: duration,
		Errors:   errors,
		Success:  success,
	}, nil
}

// Record logs one operation outcome.
func (m *OperationMetrics) Record(ctx context.Context, durationSec float64, err error, attrs ...attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	m.Total.Add(ctx, 1, opt)
	m.Duration.Record(ctx, durationSec, opt)
	if err != nil {
		m.Errors.Add(ctx, 1, opt)
	} else {
		m.Success.Add(ctx, 1, opt)
	}
}

// CacheMetrics is the template for caches, the fallback store included.
type CacheMetrics struct {
	Hits     metric.Int64Counter
	Misses   metric.Int64Counter
	Gets     metric.Int64Counter
	Sets     metric.Int64Counter
	Deletes  metric.Int64Counter
	Duration metric.Float64Histogram
}

// NewCacheMetrics creates the cache instruments.
func (b *MetricsBuilder) NewCacheMetrics(prefix string) (*CacheMetrics, error) {
	hits, err := b.Counter(prefix+"_cache_hits_total", "Total number of "+prefix+" cache hits")
	if err != nil {
		return nil, err
	}

	misses, err := b.Counter(prefix+"_cache_misses_total", "Total number of "+prefix+" cache misses")
	if err != nil {
		return nil, err
	}

	gets, err := b.Counter(prefix+"_cache_gets_total", "Total number of "+prefix+" cache get operations")
	if err != nil {
		return nil, err
	}

	sets, err := b.Counter(prefix+"_cache_sets_total", "Total number of "+prefix+" cache set operations")
	if err != nil {
		return nil, err
	}

	deletes, err := b.Counter(prefix+"_cache_deletes_total", "Total number of "+prefix+" cache delete operations")
	if err != nil {
		return nil, err
	}

	duration, err := b.DurationHistogram(prefix+"_cache_duration_seconds", prefix+" cache operation duration")
	if err != nil {
		return nil, err
	}

	return &CacheMetrics{
		Hits:     hits,
		Misses:   misses,
		Gets:     gets,
		Sets:     sets,
		Deletes:  deletes,
		Duration: duration,
	}, nil
}

// RecordHit logs a cache hit.
func (m *CacheMetrics) RecordHit(ctx context.Context, attrs ...attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	m.Gets.Add(ctx, 1, opt)
	m.Hits.Add(ctx, 1, opt)
}

// RecordMiss logs a cache miss.
func (m *CacheMetrics) RecordMiss(ctx context.Context, attrs ...attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	m.Gets.Add(ctx, 1, opt)
	m.Misses.Add(ctx, 1, opt)
}

// RecordSet logs a cache write.
func (m *CacheMetrics) RecordSet(ctx context.Context, attrs ...attribute.KeyValue) {
	m.Sets.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDelete logs a cache delete.
func (m *CacheMetrics) RecordDelete(ctx context.Context, attrs ...attribute.KeyValue) {
	m.Deletes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

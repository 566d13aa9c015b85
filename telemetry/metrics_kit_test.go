package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualMeter(t testing.TB) (metric.Meter, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp.Meter("test"), reader
}

// collectByName drains the reader and indexes the metrics by full name.
func collectByName(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func gaugeOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	g, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok, "metric %s is not an int64 gauge", m.Name)
	require.NotEmpty(t, g.DataPoints)
	return g.DataPoints[0].Value
}

func TestMetricsBuilderCounter(t *testing.T) {
	meter, reader := newManualMeter(t)
	builder := NewMetricsBuilder(meter, "breaker")

	counter, err := builder.Counter("trips_total", "Breaker open transitions")
	require.NoError(t, err)

	ctx := context.Background()
	counter.Add(ctx, 1)
	counter.Add(ctx, 5)

	byName := collectByName(t, reader)
	m, ok := byName["breaker_trips_total"]
	require.True(t, ok, "breaker_trips_total not exported")
	assert.Equal(t, int64(6), sumOf(t, m))
}

func TestMetricsBuilderCounterWithoutNamespace(t *testing.T) {
	meter, reader := newManualMeter(t)
	builder := NewMetricsBuilder(meter, "")

	counter, err := builder.Counter("trips_total", "Breaker open transitions")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	byName := collectByName(t, reader)
	_, ok := byName["trips_total"]
	assert.True(t, ok, "metric name must stay unprefixed with an empty namespace")
}

func TestMetricsBuilderDurationHistogram(t *testing.T) {
	meter, reader := newManualMeter(t)
	builder := NewMetricsBuilder(meter, "resolver")

	hist, err := builder.DurationHistogram("fetch_duration_seconds", "Upstream fetch latency")
	require.NoError(t, err)

	ctx := context.Background()
	hist.Record(ctx, 0.1)
	hist.Record(ctx, 0.5)
	hist.Record(ctx, 1.2)

	byName := collectByName(t, reader)
	m, ok := byName["resolver_fetch_duration_seconds"]
	require.True(t, ok)
	h, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Equal(t, uint64(3), h.DataPoints[0].Count)
}

func TestRequestMetricsRecord(t *testing.T) {
	meter, reader := newManualMeter(t)
	builder := NewMetricsBuilder(meter, "resolver")

	rm, err := builder.NewRequestMetrics("upstream")
	require.NoError(t, err)

	ctx := context.Background()
	rm.Record(ctx, 0.1, nil, attribute.String("resource", "userservice"))
	rm.Record(ctx, 0.5, errors.New("timeout"), attribute.String("resource", "userservice"))

	byName := collectByName(t, reader)
	assert.Equal(t, int64(2), sumOf(t, byName["resolver_upstream_requests_total"]))
	assert.Equal(t, int64(1), sumOf(t, byName["resolver_upstream_errors_total"]))
	_, hasDuration := byName["resolver_upstream_duration_seconds"]
	assert.True(t, hasDuration, "duration histogram not exported")
}

func TestOperationMetricsRecord(t *testing.T) {
	meter, reader := newManualMeter(t)
	builder := NewMetricsBuilder(meter, "fallback")

	om, err := builder.NewOperationMetrics("store")
	require.NoError(t, err)

	ctx := context.Background()
	om.Record(ctx, 0.001, nil, attribute.String("op", "get"))
	om.Record(ctx, 0.002, errors.New("connection refused"), attribute.String("op", "put"))

	byName := collectByName(t, reader)
	assert.Equal(t, int64(2), sumOf(t, byName["fallback_store_operations_total"]))
	assert.Equal(t, int64(1), sumOf(t, byName["fallback_store_operation_success_total"]))
	assert.Equal(t, int64(1), sumOf(t, byName["fallback_store_operation_errors_total"]))
}

func TestPoolMetricsGauges(t *testing.T) {
	meter, reader := newManualMeter(t)
	builder := NewMetricsBuilder(meter, "db")

	pm, err := builder.NewPoolMetrics("sqlite", func() (active, idle, inUse int64) {
		return 10, 3, 7
	})
	require.NoError(t, err)

	pm.RecordWait(context.Background(), attribute.String("pool", "main"))

	byName := collectByName(t, reader)
	assert.Equal(t, int64(10), gaugeOf(t, byName["db_sqlite_connections_active"]))
	assert.Equal(t, int64(3), gaugeOf(t, byName["db_sqlite_connections_idle"]))
	assert.Equal(t, int64(7), gaugeOf(t, byName["db_sqlite_connections_in_use"]))
}

func TestCacheMetricsRecord(t *testing.T) {
	meter, reader := newManualMeter(t)
	builder := NewMetricsBuilder(meter, "fallback")

	cm, err := builder.NewCacheMetrics("entity")
	require.NoError(t, err)

	ctx := context.Background()
	cm.RecordHit(ctx, attribute.String("resource", "userservice"))
	cm.RecordMiss(ctx, attribute.String("resource", "userservice"))
	cm.RecordSet(ctx)
	cm.RecordDelete(ctx)

	byName := collectByName(t, reader)
	assert.Equal(t, int64(1), sumOf(t, byName["fallback_entity_cache_hits_total"]))
	assert.Equal(t, int64(1), sumOf(t, byName["fallback_entity_cache_misses_total"]))
	// a hit and a miss are both gets
	assert.Equal(t, int64(2), sumOf(t, byName["fallback_entity_cache_gets_total"]))
	assert.Equal(t, int64(1), sumOf(t, byName["fallback_entity_cache_sets_total"]))
	assert.Equal(t, int64(1), sumOf(t, byName["fallback_entity_cache_deletes_total"]))
}

func BenchmarkRequestMetricsRecord(b *testing.B) {
	meter, _ := newManualMeter(b)
	builder := NewMetricsBuilder(meter, "resolver")
	rm, _ := builder.NewRequestMetrics("upstream")

	ctx := context.Background()
	attrs := []attribute.KeyValue{attribute.String("resource", "userservice")}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rm.Record(ctx, 0.001*float64(i%100), nil, attrs...)
	}
}

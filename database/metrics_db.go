package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/KOMKZ/go-aegis-framework/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// DBMetricsConfig tunes the exported instrument set.
type DBMetricsConfig struct {
	Enabled          bool
	RecordSQLText    bool
	SlowQuerySeconds float64
}

// DBMetrics exports query and pool activity through OpenTelemetry. It
// implements component.MetricsProvider; the manager attaches it to every
// instance as a gorm plugin via SetMetrics.
type DBMetrics struct {
	config     DBMetricsConfig
	registered bool
	mu         sync.RWMutex

	queries     metric.Int64Counter
	queryErrors metric.Int64Counter
	slowQueries metric.Int64Counter
	duration    metric.Float64Histogram

	connectionsOpen  metric.Int64ObservableGauge
	connectionsIdle  metric.Int64ObservableGauge
	connectionsInUse metric.Int64ObservableGauge

	// poolCallbacks supplies per-instance pool snapshots to the gauges.
	poolCallbacks map[string]func() sql.DBStats
	poolMu        sync.RWMutex
}

// NewDBMetrics creates an unregistered provider. A zero slow-query
// threshold falls back to one second.
func NewDBMetrics(cfg DBMetricsConfig) *DBMetrics {
	if cfg.SlowQuerySeconds <= 0 {
		cfg.SlowQuerySeconds = 1.0
	}
	return &DBMetrics{
		config:        cfg,
		poolCallbacks: make(map[string]func() sql.DBStats),
	}
}

// MetricsName returns the metrics group name.
func (m *DBMetrics) MetricsName() string {
	return "database"
}

// IsMetricsEnabled reports whether export is enabled.
func (m *DBMetrics) IsMetricsEnabled() bool {
	return m.config.Enabled
}

// RegisterMetrics creates the instruments on the given meter.
// Registration is idempotent and a no-op for a disabled provider.
func (m *DBMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered || !m.config.Enabled {
		return nil
	}

	builder := telemetry.NewMetricsBuilder(meter, "")

	var err error
	if m.queries, err = builder.CounterWithUnit("db_queries_total",
		"Total number of database queries", "{query}"); err != nil {
		return err
	}
	if m.queryErrors, err = builder.CounterWithUnit("db_query_errors_total",
		"Total number of failed database queries", "{query}"); err != nil {
		return err
	}
	if m.slowQueries, err = builder.CounterWithUnit("db_slow_queries_total",
		"Total number of queries slower than the configured threshold", "{query}"); err != nil {
		return err
	}
	if m.duration, err = builder.DurationHistogram("db_query_duration_seconds",
		"Database query duration distribution"); err != nil {
		return err
	}

	if m.connectionsOpen, err = meter.Int64ObservableGauge(
		"db_connections_open",
		metric.WithDescription("Currently open database connections"),
		metric.WithUnit("{connection}"),
		metric.WithInt64Callback(m.collectPool(func(s sql.DBStats) int64 { return int64(s.OpenConnections) })),
	); err != nil {
		return err
	}
	if m.connectionsIdle, err = meter.Int64ObservableGauge(
		"db_connections_idle",
		metric.WithDescription("Currently idle connections"),
		metric.WithUnit("{connection}"),
		metric.WithInt64Callback(m.collectPool(func(s sql.DBStats) int64 { return int64(s.Idle) })),
	); err != nil {
		return err
	}
	if m.connectionsInUse, err = meter.Int64ObservableGauge(
		"db_connections_in_use",
		metric.WithDescription("Currently in-use connections"),
		metric.WithUnit("{connection}"),
		metric.WithInt64Callback(m.collectPool(func(s sql.DBStats) int64 { return int64(s.InUse) })),
	); err != nil {
		return err
	}

	m.registered = true
	return nil
}

func (m *DBMetrics) collectPool(pick func(sql.DBStats) int64) metric.Int64Callback {
	return func(_ context.Context, observer metric.Int64Observer) error {
		m.poolMu.RLock()
		defer m.poolMu.RUnlock()

		for instance, callback := range m.poolCallbacks {
			observer.Observe(pick(callback()),
				metric.WithAttributes(attribute.String("instance", instance)))
		}
		return nil
	}
}

// RegisterPoolCallback wires an instance's pool snapshot into the
// connection gauges.
func (m *DBMetrics) RegisterPoolCallback(instance string, callback func() sql.DBStats) {
	m.poolMu.Lock()
	defer m.poolMu.Unlock()
	m.poolCallbacks[instance] = callback
}

// RecordQuery logs one query outcome. Record-not-found does not count
// as a failure. No-op before registration.
func (m *DBMetrics) RecordQuery(ctx context.Context, instance, operation, table string, duration time.Duration, err error, sqlText string) {
	if !m.IsRegistered() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := []attribute.KeyValue{
		attribute.String("instance", instance),
		attribute.String("operation", operation),
		attribute.String("table", table),
	}

	// sql_text is high-cardinality, off by default
	if m.config.RecordSQLText && sqlText != "" {
		if len(sqlText) > 100 {
			sqlText = sqlText[:100] + "..."
		}
		attrs = append(attrs, attribute.String("sql_text", sqlText))
	}

	opt := metric.WithAttributes(attrs...)
	seconds := duration.Seconds()

	m.queries.Add(ctx, 1, opt)
	m.duration.Record(ctx, seconds, opt)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		m.queryErrors.Add(ctx, 1, opt)
	}
	if seconds >= m.config.SlowQuerySeconds {
		m.slowQueries.Add(ctx, 1, opt)
	}
}

// IsRegistered reports whether RegisterMetrics ran.
func (m *DBMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

// GORMPlugin returns the gorm plugin that feeds this collector for one
// named instance.
func (m *DBMetrics) GORMPlugin(instance string) gorm.Plugin {
	return &metricsPlugin{metrics: m, instance: instance}
}

type metricsPlugin struct {
	metrics  *DBMetrics
	instance string
}

const metricsStartKey = "aegis:metrics:start"

func (p *metricsPlugin) Name() string {
	return "aegis:db-metrics"
}

// Initialize registers a before/after pair around every gorm operation.
// The after callback carries its operation label statically, so no SQL
// sniffing is needed.
func (p *metricsPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	registrations := []struct {
		target interface {
			Register(string, func(*gorm.DB)) error
		}
		name string
		fn   func(*gorm.DB)
	}{
		{cb.Create().Before("gorm:create"), "aegis:metrics_before_create", p.start},
		{cb.Create().After("gorm:create"), "aegis:metrics_after_create", p.finish("insert")},
		{cb.Query().Before("gorm:query"), "aegis:metrics_before_query", p.start},
		{cb.Query().After("gorm:query"), "aegis:metrics_after_query", p.finish("select")},
		{cb.Update().Before("gorm:update"), "aegis:metrics_before_update", p.start},
		{cb.Update().After("gorm:update"), "aegis:metrics_after_update", p.finish("update")},
		{cb.Delete().Before("gorm:delete"), "aegis:metrics_before_delete", p.start},
		{cb.Delete().After("gorm:delete"), "aegis:metrics_after_delete", p.finish("delete")},
		{cb.Row().Before("gorm:row"), "aegis:metrics_before_row", p.start},
		{cb.Row().After("gorm:row"), "aegis:metrics_after_row", p.finish("row")},
		{cb.Raw().Before("gorm:raw"), "aegis:metrics_before_raw", p.start},
		{cb.Raw().After("gorm:raw"), "aegis:metrics_after_raw", p.finish("raw")},
	}

	for _, r := range registrations {
		if err := r.target.Register(r.name, r.fn); err != nil {
			return err
		}
	}
	return nil
}

func (p *metricsPlugin) start(db *gorm.DB) {
	db.InstanceSet(metricsStartKey, time.Now())
}

func (p *metricsPlugin) finish(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(metricsStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}

		p.metrics.RecordQuery(db.Statement.Context, p.instance, operation, table,
			time.Since(start), db.Error, db.Statement.SQL.String())
	}
}

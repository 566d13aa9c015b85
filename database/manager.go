package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/KOMKZ/go-aegis-framework/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerFactory builds the gorm logger for one instance config.
type GormLoggerFactory func(cfg Config) gormlogger.Interface

// Manager holds the named GORM instances of the service.
type Manager struct {
	instances     map[string]*gorm.DB
	configs       map[string]Config
	loggerFactory GormLoggerFactory
	logger        *logger.CtxZapLogger
	otelPlugin    *OtelPlugin
	metrics       *DBMetrics
	mu            sync.RWMutex
}

// NewManager opens every configured instance and sizes its pool.
// loggerFactory may be nil, in which case gorm logs are silenced.
func NewManager(configs map[string]Config, loggerFactory GormLoggerFactory, log *logger.CtxZapLogger) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	m := &Manager{
		instances:     make(map[string]*gorm.DB, len(configs)),
		configs:       make(map[string]Config, len(configs)),
		loggerFactory: loggerFactory,
		logger:        log,
	}

	for name, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config for %s: %w", name, err)
		}
		if err := m.openInstance(name, cfg); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// openInstance opens one connection, sizes its pool and stores it under
// name. cfg must already be validated.
func (m *Manager) openInstance(name string, cfg Config) error {
	db, err := m.open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB for %s: %w", name, err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	m.instances[name] = db
	m.configs[name] = cfg

	m.logger.Debug("Database connection successful",
		zap.String("name", name),
		zap.String("driver", cfg.Driver))
	return nil
}

func (m *Manager) open(cfg Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: m.gormLogger(cfg),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, err
	}

	if m.otelPlugin != nil {
		if err := db.Use(m.otelPlugin); err != nil {
			return nil, fmt.Errorf("failed to use otel plugin: %w", err)
		}
	}

	return db, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}

func (m *Manager) gormLogger(cfg Config) gormlogger.Interface {
	if m.loggerFactory != nil {
		return m.loggerFactory(cfg)
	}
	return gormlogger.Default.LogMode(gormlogger.Silent)
}

// DB returns the named instance, nil if it does not exist.
func (m *Manager) DB(name string) *gorm.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[name]
}

// Ping checks every instance.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, db := range m.instances {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB for %s: %w", name, err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("ping failed for %s: %w", name, err)
		}
	}

	return nil
}

// Stats returns the pool statistics of the named instance.
func (m *Manager) Stats(name string) (sql.DBStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	db, ok := m.instances[name]
	if !ok {
		return sql.DBStats{}, fmt.Errorf("database %s not found", name)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, err
	}

	return sqlDB.Stats(), nil
}

// GetDBNames returns the configured instance names.
func (m *Manager) GetDBNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.instances))
	for name := range m.instances {
		names = append(names, name)
	}
	return names
}

// SetOtelPlugin registers the tracing plugin on every instance already
// open. Trace settings come from the first instance config.
func (m *Manager) SetOtelPlugin(plugin *OtelPlugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.otelPlugin = plugin
	m.applyTraceSettings(plugin)

	for name, db := range m.instances {
		if err := db.Use(plugin); err != nil {
			return fmt.Errorf("failed to register otel plugin for %s: %w", name, err)
		}
		m.logger.Debug("OTel plugin registered",
			zap.String("instance", name))
	}

	return nil
}

func (m *Manager) applyTraceSettings(plugin *OtelPlugin) {
	for _, cfg := range m.configs {
		if cfg.TraceSQL {
			plugin.WithTraceSQL(true)
		}
		if cfg.TraceSQLMaxLen > 0 {
			plugin.WithSQLMaxLen(cfg.TraceSQLMaxLen)
		}
		return
	}
}

// SetMetrics attaches the metrics provider to every instance: a gorm
// plugin records query outcomes and a pool callback feeds the
// connection gauges. Call after RegisterMetrics; repeated calls are
// no-ops.
func (m *Manager) SetMetrics(metrics *DBMetrics) error {
	if metrics == nil || !metrics.IsRegistered() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metrics != nil {
		return nil
	}
	m.metrics = metrics

	for name, db := range m.instances {
		if err := db.Use(metrics.GORMPlugin(name)); err != nil {
			return fmt.Errorf("failed to register metrics plugin for %s: %w", name, err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB for %s: %w", name, err)
		}
		metrics.RegisterPoolCallback(name, sqlDB.Stats)

		m.logger.Debug("✅ Metrics plugin registered",
			zap.String("instance", name))
	}

	return nil
}

// Close closes every instance. Per-instance close failures are logged,
// not returned.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, db := range m.instances {
		sqlDB, err := db.DB()
		if err != nil {
			m.logger.Error("Failed to get sql.DB",
				zap.String("name", name),
				zap.Error(err))
			continue
		}

		if err := sqlDB.Close(); err != nil {
			m.logger.Error("Failed to close database connection",
				zap.String("name", name),
				zap.Error(err))
		} else {
			m.logger.Debug("Database connection closed",
				zap.String("name", name))
		}
	}

	return nil
}

// Shutdown is Close under the method name shutdown-aware DI containers
// look for.
func (m *Manager) Shutdown() error {
	return m.Close()
}

package database

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"github.com/KOMKZ/go-aegis-framework/telemetry"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// Component manages the GORM connections of the service.
//
// Depends on config and logger. Telemetry is optional: when present,
// the tracing and metrics plugins are attached during Start.
type Component struct {
	manager  *Manager
	registry component.Registry
	logger   *logger.CtxZapLogger
}

// NewComponent creates the database component.
func NewComponent() *Component {
	return &Component{}
}

// SetRegistry hands the component registry over, used to look up the
// optional telemetry component.
func (c *Component) SetRegistry(r component.Registry) {
	c.registry = r
}

// Name implements component.Component.
func (c *Component) Name() string {
	return component.ComponentDatabase
}

// DependsOn implements component.Component.
func (c *Component) DependsOn() []string {
	return []string{
		component.ComponentConfig,
		component.ComponentLogger,
		"optional:" + component.ComponentTelemetry,
	}
}

// Init reads database.connections and opens the configured instances.
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.logger = logger.GetLogger("aegis")
	c.logger.DebugCtx(ctx, "🔧 Initializing database component...")

	var dbConfigs map[string]Config
	if err := loader.Unmarshal("database.connections", &dbConfigs); err != nil {
		return fmt.Errorf("failed to read database config: %w", err)
	}

	if len(dbConfigs) == 0 {
		c.logger.DebugCtx(ctx, "No databases configured, skipping")
		return nil
	}

	gormLoggerFactory := func(dbCfg Config) gormlogger.Interface {
		if dbCfg.EnableLog {
			loggerCfg := logger.DefaultGormLoggerConfig()
			loggerCfg.SlowThreshold = dbCfg.SlowThreshold
			loggerCfg.LogLevel = gormlogger.Info
			loggerCfg.EnableAudit = dbCfg.EnableAudit
			return logger.NewGormLogger(loggerCfg)
		}
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}

	manager, err := NewManager(dbConfigs, gormLoggerFactory, c.logger)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	c.manager = manager
	c.logger.DebugCtx(ctx, "✅ Database initialized")
	return nil
}

// Start attaches the telemetry plugins when the telemetry component is
// registered and enabled.
func (c *Component) Start(ctx context.Context) error {
	if c.manager == nil {
		return nil
	}

	tc := c.telemetryComponent()
	if tc == nil {
		return nil
	}

	c.injectTracerProvider(ctx, tc)
	c.injectDBMetrics(ctx, tc)
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

func (c *Component) injectTracerProvider(ctx context.Context, tc *telemetry.Component) {
	tp := tc.GetTracerProvider()
	if tp == nil {
		c.logger.WarnCtx(ctx, "TracerProvider is nil")
		return
	}

	otelPlugin := NewOtelPlugin(tp)
	if err := c.manager.SetOtelPlugin(otelPlugin); err != nil {
		c.logger.ErrorCtx(ctx, "Failed to inject TracerProvider into GORM", zap.Error(err))
		return
	}

	c.logger.DebugCtx(ctx, "✅ TracerProvider injected into GORM")
}

func (c *Component) injectDBMetrics(ctx context.Context, tc *telemetry.Component) {
	mm := tc.GetMetricsManager()
	if mm == nil || !mm.IsDBMetricsEnabled() {
		return
	}
	mr := tc.GetMetricsRegistry()
	if mr == nil {
		return
	}

	dbCfg := mm.GetConfig().Database
	metrics := NewDBMetrics(DBMetricsConfig{
		Enabled:          dbCfg.Enabled,
		RecordSQLText:    dbCfg.RecordSQLText,
		SlowQuerySeconds: dbCfg.SlowQuerySeconds,
	})

	if err := mr.Register(metrics); err != nil {
		c.logger.ErrorCtx(ctx, "Failed to register database metrics", zap.Error(err))
		return
	}

	if err := c.manager.SetMetrics(metrics); err != nil {
		c.logger.ErrorCtx(ctx, "Failed to attach metrics plugin", zap.Error(err))
		return
	}

	c.logger.DebugCtx(ctx, "✅ Database metrics bound to telemetry")
}

// Stop closes all database connections.
func (c *Component) Stop(ctx context.Context) error {
	if c.manager != nil {
		if err := c.manager.Close(); err != nil {
			return fmt.Errorf("failed to close database connections: %w", err)
		}
	}
	return nil
}

// GetManager returns the database manager, nil when no database is
// configured.
func (c *Component) GetManager() *Manager {
	return c.manager
}

// GetHealthChecker implements component.HealthCheckProvider.
func (c *Component) GetHealthChecker() component.HealthChecker {
	if c.manager == nil {
		return nil
	}
	return NewHealthChecker(c.manager)
}

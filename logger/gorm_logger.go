package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger adapts the framework logger to gorm's logger.Interface.
// All database logs go through the aegis_sql module so they can be
// routed and filtered independently of application logs.
type GormLogger struct {
	log           *CtxZapLogger
	slowThreshold time.Duration
	logLevel      gormlogger.LogLevel
	enableAudit   bool
}

// GormLoggerConfig configures the GORM logger adapter.
type GormLoggerConfig struct {
	// SlowThreshold flags queries slower than this, default 200ms.
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
	// EnableAudit logs every executed statement at debug level.
	EnableAudit bool
}

// DefaultGormLoggerConfig returns the default adapter configuration.
func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      gormlogger.Info,
		EnableAudit:   true,
	}
}

// NewGormLogger creates the adapter.
func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{
		log:           GetLogger("aegis_sql"),
		slowThreshold: cfg.SlowThreshold,
		logLevel:      cfg.LogLevel,
		enableAudit:   cfg.EnableAudit,
	}
}

// LogMode returns a copy with the given level.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Info {
		l.log.DebugCtx(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Warn {
		l.log.WarnCtx(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Error {
		l.log.ErrorCtx(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace logs one executed statement. Slow queries escalate to warn, and
// to error above twice the threshold. RecordNotFound is normal business
// flow and never logged as an error.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.String("sql", sanitizeSQL(sql)),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	}

	switch {
	case err != nil && l.logLevel >= gormlogger.Error:
		if !errors.Is(err, gormlogger.ErrRecordNotFound) {
			fields = append(fields, zap.Error(err))
			l.log.ErrorCtx(ctx, "SQL failed", fields...)
		} else if l.enableAudit {
			l.log.DebugCtx(ctx, "SQL executed", fields...)
		}

	case elapsed > l.slowThreshold && l.slowThreshold != 0 && l.logLevel >= gormlogger.Warn:
		fields = append(fields, zap.Duration("threshold", l.slowThreshold))

		if elapsed > l.slowThreshold*2 {
			l.log.ErrorCtx(ctx, "Severe slow query", fields...)
		} else {
			l.log.WarnCtx(ctx, "Slow query detected", fields...)
		}

	case l.logLevel >= gormlogger.Info:
		if l.enableAudit {
			l.log.DebugCtx(ctx, "SQL executed", fields...)
		}
	}
}

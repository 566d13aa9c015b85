package application

import (
	"context"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/logger"
)

// LoggerComponent initializes the global logger manager from the
// "logger" configuration section.
type LoggerComponent struct {
	coreLogger *logger.CtxZapLogger
}

// NewLoggerComponent creates the logger component.
func NewLoggerComponent() *LoggerComponent {
	return &LoggerComponent{}
}

// Name returns the component name.
func (l *LoggerComponent) Name() string {
	return component.ComponentLogger
}

// DependsOn declares the config dependency.
func (l *LoggerComponent) DependsOn() []string {
	return []string{component.ComponentConfig}
}

// Init reads the logger configuration and initializes the manager.
// Missing configuration falls back to defaults.
func (l *LoggerComponent) Init(ctx context.Context, loader component.ConfigLoader) error {
	if loader.IsSet("logger") {
		cfg := logger.DefaultConfig()
		if err := loader.Unmarshal("logger", &cfg); err != nil {
			return err
		}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger.ResetManager(cfg)
	} else {
		logger.InitManager(logger.DefaultConfig())
	}

	l.coreLogger = logger.GetLogger("aegis")
	return nil
}

// Start is a no-op.
func (l *LoggerComponent) Start(ctx context.Context) error {
	return nil
}

// Stop flushes and closes all loggers. Runs last since components stop
// in reverse dependency order.
func (l *LoggerComponent) Stop(ctx context.Context) error {
	if l.coreLogger != nil {
		l.coreLogger.DebugCtx(ctx, "✅ Application shut down")
		logger.CloseAll()
	}
	return nil
}

// GetLogger returns the core framework logger.
func (l *LoggerComponent) GetLogger() *logger.CtxZapLogger {
	return l.coreLogger
}

// Package logger provides zap-based logging with per-module loggers,
// file rotation and context-aware trace extraction.
package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager owns one logger per module name, created on demand.
type Manager struct {
	config  Config
	loggers map[string]*CtxZapLogger
	writers map[string][]*lumberjack.Logger
	mu      sync.RWMutex
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// NewManager creates an independent manager instance.
// Zero-valued config fields are filled with defaults.
func NewManager(cfg Config) *Manager {
	cfg.ApplyDefaults()
	return &Manager{
		config:  cfg,
		loggers: make(map[string]*CtxZapLogger),
		writers: make(map[string][]*lumberjack.Logger),
	}
}

// InitManager initializes the global manager once. Later calls are no-ops.
func InitManager(cfg Config) {
	managerOnce.Do(func() {
		globalManager = NewManager(cfg)
	})
}

// ResetManager replaces the global manager with one built from cfg,
// closing the previous manager's writers. Loggers obtained before the
// reset keep writing with their old configuration; call sites should
// re-fetch via GetLogger. Used at startup when the configured logging
// section must override the bootstrap defaults, and by tests.
func ResetManager(cfg Config) {
	if globalManager != nil {
		globalManager.CloseAll()
	}
	globalManager = NewManager(cfg)
}

// GetLogger returns the module logger, creating it on first use.
// The returned logger already carries the module field.
func (m *Manager) GetLogger(module string) *CtxZapLogger {
	m.mu.RLock()
	if l, exists := m.loggers[module]; exists {
		m.mu.RUnlock()
		return l
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// double check, another goroutine may have created it
	if l, exists := m.loggers[module]; exists {
		return l
	}

	zapLogger := m.buildZapLogger(module)
	zapLogger = zapLogger.With(zap.String("module", module))

	// skip the CtxZapLogger wrapper frame so caller points at user code
	ctxLogger := &CtxZapLogger{
		base:   zapLogger.WithOptions(zap.AddCallerSkip(1)),
		module: module,
		config: &m.config,
	}

	m.loggers[module] = ctxLogger
	return ctxLogger
}

// buildZapLogger assembles the cores for one module.
func (m *Manager) buildZapLogger(module string) *zap.Logger {
	encoder := buildEncoder(m.config.Encoding)
	level := ParseLevel(m.config.Level)

	var cores []zapcore.Core
	var writers []*lumberjack.Logger

	if m.config.EnableConsole {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}

	if m.config.EnableFile {
		// info file gets everything from the configured level up to warn,
		// error file gets error and above
		infoPath := filepath.Join(m.config.BaseLogDir, module, module+"-info.log")
		infoWriter, infoLumber := m.buildFileWriter(infoPath)
		writers = append(writers, infoLumber)
		cores = append(cores, zapcore.NewCore(encoder, infoWriter,
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= level && lvl < zapcore.ErrorLevel
			})))

		errorPath := filepath.Join(m.config.BaseLogDir, module, module+"-error.log")
		errorWriter, errorLumber := m.buildFileWriter(errorPath)
		writers = append(writers, errorLumber)
		cores = append(cores, zapcore.NewCore(encoder, errorWriter,
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel
			})))
	}

	if len(writers) > 0 {
		m.writers[module] = writers
	}

	var opts []zap.Option
	if m.config.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))

	return zap.New(zapcore.NewTee(cores...), opts...)
}

func (m *Manager) buildFileWriter(filename string) (zapcore.WriteSyncer, *lumberjack.Logger) {
	_ = os.MkdirAll(filepath.Dir(filename), 0755)

	lumber := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    m.config.MaxSize,
		MaxBackups: m.config.MaxBackups,
		MaxAge:     m.config.MaxAge,
		Compress:   m.config.Compress,
		LocalTime:  true,
	}
	return zapcore.AddSync(lumber), lumber
}

// GetConfig returns the manager configuration.
func (m *Manager) GetConfig() Config {
	return m.config
}

// CloseAll flushes buffers and closes all file handles.
// Call on application exit.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.loggers {
		_ = l.base.Sync()
	}

	for _, ws := range m.writers {
		for _, w := range ws {
			_ = w.Close()
		}
	}

	m.loggers = make(map[string]*CtxZapLogger)
	m.writers = make(map[string][]*lumberjack.Logger)
}

// ============================================================
// package-level helpers backed by the global manager
// ============================================================

// GetLogger returns the module logger from the global manager,
// initializing it with defaults when InitManager was never called.
func GetLogger(module string) *CtxZapLogger {
	if globalManager == nil {
		InitManager(DefaultConfig())
	}
	return globalManager.GetLogger(module)
}

// MustGetLogger is GetLogger with a panic on an empty module name.
func MustGetLogger(module string) *CtxZapLogger {
	if module == "" {
		panic("logger module name cannot be empty")
	}
	return GetLogger(module)
}

// CloseAll closes the global manager's loggers.
func CloseAll() {
	if globalManager == nil {
		return
	}
	globalManager.CloseAll()
}

func buildEncoder(encoding string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if encoding == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

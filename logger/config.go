package logger

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Config manager configuration shared by all module loggers.
type Config struct {
	// AppName is injected into every log line (empty value included).
	AppName string `mapstructure:"app_name"`

	// Level is the minimum level: debug, info, warn, error, fatal.
	Level string `mapstructure:"level"`

	// Encoding is json or console.
	Encoding string `mapstructure:"encoding"`

	// BaseLogDir is the root directory for file output (default logs/).
	BaseLogDir string `mapstructure:"base_log_dir"`

	// EnableConsole mirrors output to stdout.
	EnableConsole bool `mapstructure:"enable_console"`

	// EnableFile writes per-module info/error files under BaseLogDir.
	EnableFile bool `mapstructure:"enable_file"`

	// Rotation settings, passed to lumberjack.
	MaxSize    int  `mapstructure:"max_size"` // MB per file
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"` // days
	Compress   bool `mapstructure:"compress"`

	EnableCaller bool `mapstructure:"enable_caller"`

	// Trace extraction: OpenTelemetry span context wins, then this context key.
	EnableTraceID    bool   `mapstructure:"enable_trace_id"`
	TraceIDKey       string `mapstructure:"trace_id_key"`
	TraceIDFieldName string `mapstructure:"trace_id_field_name"`
}

// DefaultConfig returns the baseline manager configuration.
func DefaultConfig() Config {
	return Config{
		Level:            "info",
		Encoding:         "json",
		BaseLogDir:       "logs",
		EnableConsole:    true,
		EnableFile:       false,
		MaxSize:          100,
		MaxBackups:       3,
		MaxAge:           28,
		Compress:         true,
		EnableCaller:     true,
		EnableTraceID:    true,
		TraceIDKey:       "trace_id",
		TraceIDFieldName: "trace_id",
	}
}

// ApplyDefaults fills zero-valued fields in place.
// Boolean fields keep whatever the caller set; a config file that wants
// console output off must say so explicitly.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.Level == "" {
		c.Level = defaults.Level
	}
	if c.Encoding == "" {
		c.Encoding = defaults.Encoding
	}
	if c.BaseLogDir == "" {
		c.BaseLogDir = defaults.BaseLogDir
	}
	if c.MaxSize == 0 {
		c.MaxSize = defaults.MaxSize
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = defaults.MaxBackups
	}
	if c.MaxAge == 0 {
		c.MaxAge = defaults.MaxAge
	}
	if c.TraceIDKey == "" {
		c.TraceIDKey = defaults.TraceIDKey
	}
	if c.TraceIDFieldName == "" {
		c.TraceIDFieldName = defaults.TraceIDFieldName
	}
}

// Validate checks enum and range fields.
func (c Config) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, c.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Level, validLevels)
	}

	validEncodings := []string{"json", "console"}
	if !contains(validEncodings, c.Encoding) {
		return fmt.Errorf("invalid log encoding: %s (valid: %v)", c.Encoding, validEncodings)
	}

	if c.MaxSize < 1 || c.MaxSize > 10000 {
		return fmt.Errorf("max_size must be between 1-10000 MB, got: %d", c.MaxSize)
	}

	if c.MaxBackups < 0 || c.MaxBackups > 1000 {
		return fmt.Errorf("max_backups must be between 0-1000, got: %d", c.MaxBackups)
	}

	if c.MaxAge < 0 || c.MaxAge > 3650 {
		return fmt.Errorf("max_age must be between 0-3650 days, got: %d", c.MaxAge)
	}

	return nil
}

// ParseLevel parses a level string, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, "logs", cfg.BaseLogDir)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.Equal(t, 28, cfg.MaxAge)
	assert.Equal(t, "trace_id", cfg.TraceIDKey)
}

func TestConfig_ApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Level:      "debug",
		Encoding:   "console",
		BaseLogDir: "/var/log/app",
		MaxSize:    10,
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, "/var/log/app", cfg.BaseLogDir)
	assert.Equal(t, 10, cfg.MaxSize)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			modify: func(c *Config) {},
		},
		{
			name:    "invalid level",
			modify:  func(c *Config) { c.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "invalid encoding",
			modify:  func(c *Config) { c.Encoding = "xml" },
			wantErr: "invalid log encoding",
		},
		{
			name:    "max size out of range",
			modify:  func(c *Config) { c.MaxSize = 20000 },
			wantErr: "max_size",
		},
		{
			name:    "negative backups",
			modify:  func(c *Config) { c.MaxBackups = -1 },
			wantErr: "max_backups",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.FatalLevel, ParseLevel("fatal"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("unknown"))
}

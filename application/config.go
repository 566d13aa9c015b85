package application

import (
	"fmt"

	"github.com/KOMKZ/go-aegis-framework/httpx"
	"github.com/KOMKZ/go-aegis-framework/logger"
)

// AppConfig holds framework-level configuration only. Business sections
// (database, redis, rabbitmq, resolver targets) are read by their own
// components through the ConfigLoader.
type AppConfig struct {
	// ApiServer must be set for HTTP applications.
	ApiServer ApiServerConfig `mapstructure:"api_server"`

	// Optional sections; nil means defaults.
	Logger     *logger.Config            `mapstructure:"logger,omitempty"`
	Middleware *MiddlewareConfig         `mapstructure:"middleware,omitempty"`
	Httpx      *httpx.ErrorLoggingConfig `mapstructure:"httpx,omitempty"`
}

// ApiServerConfig configures the HTTP listener.
type ApiServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`

	// Read/write timeouts in seconds, zero means unbounded.
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// ApplyDefaults fills unset listener fields.
func (c *ApiServerConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
}

// MiddlewareConfig selects and tunes the built-in HTTP middlewares.
type MiddlewareConfig struct {
	TraceID    *TraceIDConfig    `mapstructure:"trace_id,omitempty"`
	RequestLog *RequestLogConfig `mapstructure:"request_log,omitempty"`
}

// TraceIDConfig configures the trace id middleware.
type TraceIDConfig struct {
	// Enable turns the middleware on.
	Enable bool `mapstructure:"enable"`

	// TraceIDKey is the gin context key (default "trace_id").
	TraceIDKey string `mapstructure:"trace_id_key"`

	// TraceIDHeader is the HTTP header carrying the id (default "X-Trace-ID").
	TraceIDHeader string `mapstructure:"trace_id_header"`

	// EnableResponseHeader echoes the id on the response (default true
	// when the middleware is enabled).
	EnableResponseHeader *bool `mapstructure:"enable_response_header"`
}

// RequestLogConfig configures the access log middleware.
type RequestLogConfig struct {
	// Enable turns the middleware on.
	Enable bool `mapstructure:"enable"`

	// SkipPaths are not logged, e.g. health probes.
	SkipPaths []string `mapstructure:"skip_paths"`
}

// ApplyDefaults fills unset middleware fields.
func (c *MiddlewareConfig) ApplyDefaults() {
	if c == nil {
		return
	}

	if c.TraceID != nil {
		if c.TraceID.TraceIDKey == "" {
			c.TraceID.TraceIDKey = "trace_id"
		}
		if c.TraceID.TraceIDHeader == "" {
			c.TraceID.TraceIDHeader = "X-Trace-ID"
		}
		if c.TraceID.EnableResponseHeader == nil {
			enabled := true
			c.TraceID.EnableResponseHeader = &enabled
		}
	}
}

// LoadAppConfig reads the framework section of the merged configuration.
func (b *BaseApplication) LoadAppConfig() (*AppConfig, error) {
	if b.appConfig == nil {
		return nil, fmt.Errorf("app config not loaded, call Setup() first")
	}
	return b.appConfig, nil
}

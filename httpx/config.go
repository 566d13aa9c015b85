package httpx

// ErrorLoggingConfig controls whether and how handler errors are logged.
type ErrorLoggingConfig struct {
	// Enable error log recording (default false)
	Enable bool `mapstructure:"enable" json:"enable"`

	// IgnoreHTTPStatus lists HTTP status codes that are never logged,
	// for example []int{400, 404}.
	IgnoreHTTPStatus []int `mapstructure:"ignore_http_status" json:"ignore_http_status"`

	// FullErrorChain records the full error chain (default true).
	// When false only error_code and error_msg are recorded.
	FullErrorChain bool `mapstructure:"full_error_chain" json:"full_error_chain"`

	// LogLevel log level: error, warn, info (default error)
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// DefaultErrorLoggingConfig returns the default configuration (logging disabled).
func DefaultErrorLoggingConfig() ErrorLoggingConfig {
	return ErrorLoggingConfig{
		Enable:           false,
		IgnoreHTTPStatus: []int{},
		FullErrorChain:   true,
		LogLevel:         "error",
	}
}


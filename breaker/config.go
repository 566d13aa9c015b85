package breaker

import (
	"time"
)

// Config is the manager-level configuration.
type Config struct {
	// Enabled turns circuit breaking on. Disabled managers execute calls
	// directly without recording anything.
	Enabled bool `mapstructure:"enabled"`

	// EventBusBuffer sizes the event bus channel.
	EventBusBuffer int `mapstructure:"event_bus_buffer"`

	// Default applies to every resource without its own entry.
	Default ResourceConfig `mapstructure:"default"`

	// Resources overrides Default per resource name. Unset fields fall
	// back to Default via Merge.
	Resources map[string]ResourceConfig `mapstructure:"resources"`
}

// ResourceConfig tunes one resource's breaker.
type ResourceConfig struct {
	// Strategy selects the trip decision: error_rate, slow_call_rate,
	// consecutive_failures.
	Strategy string `mapstructure:"strategy"`

	// MinRequests is the window floor below which the breaker never trips.
	MinRequests int `mapstructure:"min_requests"`

	// FailureRateThreshold trips error_rate at this failure ratio (0.0-1.0).
	// Timeouts count as failures.
	FailureRateThreshold float64 `mapstructure:"failure_rate_threshold"`

	// SlowCallThreshold marks calls at or above this duration as slow.
	SlowCallThreshold time.Duration `mapstructure:"slow_call_threshold"`

	// SlowRateThreshold trips slow_call_rate at this slow ratio (0.0-1.0).
	SlowRateThreshold float64 `mapstructure:"slow_rate_threshold"`

	// ConsecutiveFailures trips consecutive_failures at this run length.
	ConsecutiveFailures int `mapstructure:"consecutive_failures"`

	// OpenTimeout is how long the breaker stays Open before admitting a
	// half-open trial.
	OpenTimeout time.Duration `mapstructure:"open_timeout"`

	// HalfOpenMaxCalls bounds the half-open trial allowance. One trial
	// decides recovery by default.
	HalfOpenMaxCalls int `mapstructure:"half_open_max_calls"`

	// CallTimeout bounds Execute when the request sets no timeout of its
	// own. Zero leaves the call unbounded.
	CallTimeout time.Duration `mapstructure:"call_timeout"`

	// WindowSize is the rolling observation window.
	WindowSize time.Duration `mapstructure:"window_size"`

	// BucketSize is the window's bucket granularity.
	BucketSize time.Duration `mapstructure:"bucket_size"`
}

// DefaultConfig returns a disabled manager config with default resource
// settings.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		EventBusBuffer: 500,
		Default:        DefaultResourceConfig(),
		Resources:      make(map[string]ResourceConfig),
	}
}

// DefaultResourceConfig returns the per-resource defaults: trip at a 50%
// failure ratio over a 10s window, stay open 10s, recover on one trial.
func DefaultResourceConfig() ResourceConfig {
	return ResourceConfig{
		Strategy:             "error_rate",
		MinRequests:          5,
		FailureRateThreshold: 0.5,
		SlowCallThreshold:    time.Second,
		SlowRateThreshold:    0.5,
		ConsecutiveFailures:  5,
		OpenTimeout:          10 * time.Second,
		HalfOpenMaxCalls:     1,
		WindowSize:           10 * time.Second,
		BucketSize:           time.Second,
	}
}

// ApplyDefaults fills unset fields from the package defaults and merges
// every resource entry over the resulting Default.
func (c *Config) ApplyDefaults() {
	if c.EventBusBuffer <= 0 {
		c.EventBusBuffer = 500
	}

	c.Default = DefaultResourceConfig().Merge(c.Default)

	if c.Resources == nil {
		c.Resources = make(map[string]ResourceConfig)
	}
	for name, cfg := range c.Resources {
		c.Resources[name] = c.Default.Merge(cfg)
	}
}

// Merge overlays the non-zero fields of override onto rc.
func (rc ResourceConfig) Merge(override ResourceConfig) ResourceConfig {
	result := rc

	if override.Strategy != "" {
		result.Strategy = override.Strategy
	}
	if override.MinRequests > 0 {
		result.MinRequests = override.MinRequests
	}
	if override.FailureRateThreshold > 0 {
		result.FailureRateThreshold = override.FailureRateThreshold
	}
	if override.SlowCallThreshold > 0 {
		result.SlowCallThreshold = override.SlowCallThreshold
	}
	if override.SlowRateThreshold > 0 {
		result.SlowRateThreshold = override.SlowRateThreshold
	}
	if override.ConsecutiveFailures > 0 {
		result.ConsecutiveFailures = override.ConsecutiveFailures
	}
	if override.OpenTimeout > 0 {
		result.OpenTimeout = override.OpenTimeout
	}
	if override.HalfOpenMaxCalls > 0 {
		result.HalfOpenMaxCalls = override.HalfOpenMaxCalls
	}
	if override.CallTimeout > 0 {
		result.CallTimeout = override.CallTimeout
	}
	if override.WindowSize > 0 {
		result.WindowSize = override.WindowSize
	}
	if override.BucketSize > 0 {
		result.BucketSize = override.BucketSize
	}

	return result
}

// Validate checks the manager config. Disabled configs always pass.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if err := c.Default.Validate(); err != nil {
		return err
	}

	for name, cfg := range c.Resources {
		if err := cfg.Validate(); err != nil {
			return &ValidationError{Resource: name, Err: err}
		}
	}

	return nil
}

// Validate checks one resource's settings.
func (rc *ResourceConfig) Validate() error {
	if rc.MinRequests < 0 {
		return &ValidationError{Field: "MinRequests", Message: "must be >= 0"}
	}

	if rc.FailureRateThreshold < 0 || rc.FailureRateThreshold > 1 {
		return &ValidationError{Field: "FailureRateThreshold", Message: "must be between 0.0 and 1.0"}
	}

	if rc.SlowRateThreshold < 0 || rc.SlowRateThreshold > 1 {
		return &ValidationError{Field: "SlowRateThreshold", Message: "must be between 0.0 and 1.0"}
	}

	if rc.ConsecutiveFailures < 0 {
		return &ValidationError{Field: "ConsecutiveFailures", Message: "must be >= 0"}
	}

	if rc.OpenTimeout <= 0 {
		return &ValidationError{Field: "OpenTimeout", Message: "must be > 0"}
	}

	if rc.HalfOpenMaxCalls <= 0 {
		return &ValidationError{Field: "HalfOpenMaxCalls", Message: "must be > 0"}
	}

	if rc.CallTimeout < 0 {
		return &ValidationError{Field: "CallTimeout", Message: "must be >= 0"}
	}

	if rc.WindowSize <= 0 {
		return &ValidationError{Field: "WindowSize", Message: "must be > 0"}
	}

	if rc.BucketSize <= 0 {
		return &ValidationError{Field: "BucketSize", Message: "must be > 0"}
	}

	if rc.WindowSize < rc.BucketSize {
		return &ValidationError{Field: "WindowSize", Message: "must be >= BucketSize"}
	}

	return nil
}

// GetResourceConfig returns the merged config for a resource, falling back
// to Default.
func (c *Config) GetResourceConfig(resource string) ResourceConfig {
	if cfg, ok := c.Resources[resource]; ok {
		return cfg
	}
	return c.Default
}

// ValidationError reports an invalid breaker config value.
type ValidationError struct {
	Resource string
	Field    string
	Message  string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Resource != "" {
		if e.Err != nil {
			return "breaker config validation failed for resource '" + e.Resource + "': " + e.Err.Error()
		}
		return "breaker config validation failed for resource '" + e.Resource + "." + e.Field + "': " + e.Message
	}

	if e.Field != "" {
		return "breaker config validation failed for field '" + e.Field + "': " + e.Message
	}

	if e.Err != nil {
		return "breaker config validation failed: " + e.Err.Error()
	}

	return "breaker config validation failed"
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

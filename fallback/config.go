package fallback

import "fmt"

// Config configures the fallback store component.
type Config struct {
	// Enabled whether the fallback store is active (default true).
	Enabled bool `mapstructure:"enabled"`

	// Store backend: memory, redis, chain (default memory).
	Store string `mapstructure:"store"`

	// Instance names the Redis instance to use for the redis and chain
	// backends (default "default").
	Instance string `mapstructure:"instance"`

	// KeyPrefix prefixes every Redis key (default "fallback:").
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Store:    "memory",
		Instance: "default",
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Store == "" {
		c.Store = "memory"
	}
	if c.Instance == "" {
		c.Instance = "default"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "fallback:"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Store {
	case "memory", "redis", "chain":
		return nil
	default:
		return fmt.Errorf("unknown fallback store type: %s", c.Store)
	}
}

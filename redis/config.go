// Package redis provides multi-instance client management for the
// redis-backed stores, the fallback cache included.
package redis

import (
	"fmt"
	"time"
)

// Config is the per-instance client configuration.
type Config struct {
	// Mode selects the client kind: "standalone" or "cluster".
	Mode string `mapstructure:"mode"`

	// Addrs lists the server addresses. Standalone mode connects to the
	// first entry, cluster mode seeds from all of them.
	Addrs []string `mapstructure:"addrs"`

	Password string `mapstructure:"password"`

	// DB is the database number, standalone mode only.
	DB int `mapstructure:"db"`

	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Validate rejects configs the client constructors cannot work with.
func (c *Config) Validate() error {
	if c.Mode != "standalone" && c.Mode != "cluster" {
		return fmt.Errorf("invalid mode: %s (must be standalone or cluster)", c.Mode)
	}

	if len(c.Addrs) == 0 {
		return fmt.Errorf("addrs cannot be empty")
	}

	if c.Mode == "standalone" {
		if c.DB < 0 || c.DB > 15 {
			return fmt.Errorf("db must be between 0 and 15, got: %d", c.DB)
		}
	}

	if c.PoolSize < 0 {
		return fmt.Errorf("pool_size must be >= 0, got: %d", c.PoolSize)
	}

	if c.MinIdleConns < 0 {
		return fmt.Errorf("min_idle_conns must be >= 0, got: %d", c.MinIdleConns)
	}

	return nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = "standalone"
	}

	if c.PoolSize == 0 {
		c.PoolSize = 10
	}

	if c.MinIdleConns == 0 {
		c.MinIdleConns = 5
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}

	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}

	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}

	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

package retry

import (
	"time"
)

// Config holds the retry loop settings.
type Config struct {
	maxAttempts    int
	backoff        BackoffStrategy
	condition      RetryCondition
	onRetry        func(attempt int, err error)
	attemptTimeout time.Duration
	timeout        time.Duration
	budget         *BudgetManager
}

func defaultConfig() *Config {
	return &Config{
		maxAttempts: 3,
		backoff:     ExponentialBackoff(time.Second),
		condition:   AlwaysRetry(),
	}
}

// Option configures the retry loop.
type Option func(*Config)

// MaxAttempts bounds the total number of attempts, first call included.
func MaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// Backoff sets the delay strategy between attempts.
func Backoff(b BackoffStrategy) Option {
	return func(c *Config) {
		if b != nil {
			c.backoff = b
		}
	}
}

// Condition decides which errors are worth retrying.
func Condition(cond RetryCondition) Option {
	return func(c *Config) {
		if cond != nil {
			c.condition = cond
		}
	}
}

// OnRetry registers a callback invoked before each retry wait.
func OnRetry(f func(attempt int, err error)) Option {
	return func(c *Config) {
		c.onRetry = f
	}
}

// AttemptTimeout bounds each individual attempt.
func AttemptTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// Timeout bounds the whole retry loop, attempts and backoff waits
// included, in addition to any deadline on the caller's context.
func Timeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Budget attaches a retry budget shared across call sites.
func Budget(b *BudgetManager) Option {
	return func(c *Config) {
		c.budget = b
	}
}

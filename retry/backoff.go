package retry

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay before the next attempt.
type BackoffStrategy interface {
	// Next returns the delay after attempt N failed (attempt starts at 1).
	Next(attempt int) time.Duration
}

// BoundedBackoff is implemented by strategies whose delay has a known
// upper bound per attempt. Callers sizing outer timeouts (e.g. a circuit
// breaker wrapping a retried call) use MaxNext to compute the worst case.
type BoundedBackoff interface {
	BackoffStrategy

	// MaxNext returns the largest delay Next can produce for attempt N.
	MaxNext(attempt int) time.Duration
}

// BackoffOption tunes a backoff strategy.
type BackoffOption func(*backoffConfig)

type backoffConfig struct {
	multiplier float64       // exponential growth factor (default 2.0)
	maxDelay   time.Duration // cap on the deterministic part (default 30s)
	jitterMax  time.Duration // upper bound of the additive random jitter
}

func defaultBackoffConfig() *backoffConfig {
	return &backoffConfig{
		multiplier: 2.0,
		maxDelay:   30 * time.Second,
		jitterMax:  0,
	}
}

// WithMultiplier sets the exponential growth factor.
func WithMultiplier(m float64) BackoffOption {
	return func(c *backoffConfig) {
		if m > 0 {
			c.multiplier = m
		}
	}
}

// WithMaxDelay caps the deterministic part of the delay. Jitter is added
// after the cap.
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(c *backoffConfig) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithJitter adds a uniformly random amount in [0, max) on top of the
// computed delay. Additive jitter keeps the deterministic delay as a
// floor, so the delay after attempt N stays in
// [delay(N), delay(N)+max).
func WithJitter(max time.Duration) BackoffOption {
	return func(c *backoffConfig) {
		if max > 0 {
			c.jitterMax = max
		}
	}
}

// ============================================================
// Exponential backoff
// ============================================================

type exponentialBackoff struct {
	base   time.Duration
	config *backoffConfig
}

// ExponentialBackoff doubles the delay on every failed attempt:
// delay = base * multiplier^(attempt-1), capped at maxDelay, plus jitter.
// With base=1s, multiplier=2.0:
//
//	attempt 1: 1s
//	attempt 2: 2s
//	attempt 3: 4s
//	attempt 4: 8s
func ExponentialBackoff(base time.Duration, opts ...BackoffOption) BackoffStrategy {
	config := defaultBackoffConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &exponentialBackoff{base: base, config: config}
}

func (b *exponentialBackoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(b.base) * math.Pow(b.config.multiplier, float64(attempt-1))
	if delay > float64(b.config.maxDelay) {
		delay = float64(b.config.maxDelay)
	}
	return time.Duration(delay) + randomJitter(b.config.jitterMax)
}

func (b *exponentialBackoff) MaxNext(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(b.base) * math.Pow(b.config.multiplier, float64(attempt-1))
	if delay > float64(b.config.maxDelay) {
		delay = float64(b.config.maxDelay)
	}
	return time.Duration(delay) + b.config.jitterMax
}

// ============================================================
// Linear backoff
// ============================================================

type linearBackoff struct {
	base   time.Duration
	config *backoffConfig
}

// LinearBackoff grows the delay linearly: delay = base * attempt,
// capped at maxDelay, plus jitter.
func LinearBackoff(base time.Duration, opts ...BackoffOption) BackoffStrategy {
	config := defaultBackoffConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &linearBackoff{base: base, config: config}
}

func (b *linearBackoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(b.base) * float64(attempt)
	if delay > float64(b.config.maxDelay) {
		delay = float64(b.config.maxDelay)
	}
	return time.Duration(delay) + randomJitter(b.config.jitterMax)
}

func (b *linearBackoff) MaxNext(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(b.base) * float64(attempt)
	if delay > float64(b.config.maxDelay) {
		delay = float64(b.config.maxDelay)
	}
	return time.Duration(delay) + b.config.jitterMax
}

// ============================================================
// Constant backoff
// ============================================================

type constantBackoff struct {
	delay  time.Duration
	config *backoffConfig
}

// ConstantBackoff waits the same delay after every failed attempt,
// plus jitter.
func ConstantBackoff(delay time.Duration, opts ...BackoffOption) BackoffStrategy {
	config := defaultBackoffConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &constantBackoff{delay: delay, config: config}
}

func (b *constantBackoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return b.delay + randomJitter(b.config.jitterMax)
}

func (b *constantBackoff) MaxNext(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return b.delay + b.config.jitterMax
}

// ============================================================
// No backoff
// ============================================================

type noBackoff struct{}

// NoBackoff retries immediately. Useful in tests and for callers that
// implement their own pacing.
func NoBackoff() BackoffStrategy {
	return &noBackoff{}
}

func (b *noBackoff) Next(attempt int) time.Duration    { return 0 }
func (b *noBackoff) MaxNext(attempt int) time.Duration { return 0 }

// randomJitter returns a uniform random duration in [0, max).
func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

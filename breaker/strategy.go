package breaker

import (
	"sync/atomic"
)

// Strategy decides when a Closed breaker should trip.
type Strategy interface {
	// ShouldOpen inspects the current window snapshot.
	ShouldOpen(snapshot *MetricsSnapshot, config ResourceConfig) bool

	// Name returns the strategy name.
	Name() string
}

// errorRateStrategy trips on the window failure ratio. Timeouts count as
// failures in FailureRate.
type errorRateStrategy struct{}

func (s *errorRateStrategy) Name() string {
	return "error_rate"
}

func (s *errorRateStrategy) ShouldOpen(snapshot *MetricsSnapshot, config ResourceConfig) bool {
	if snapshot.TotalRequests < int64(config.MinRequests) {
		return false
	}

	return snapshot.FailureRate >= config.FailureRateThreshold
}

// slowCallRateStrategy trips on the ratio of calls slower than the
// configured threshold.
type slowCallRateStrategy struct{}

func (s *slowCallRateStrategy) Name() string {
	return "slow_call_rate"
}

func (s *slowCallRateStrategy) ShouldOpen(snapshot *MetricsSnapshot, config ResourceConfig) bool {
	if snapshot.TotalRequests < int64(config.MinRequests) {
		return false
	}

	return snapshot.SlowCallRate >= config.SlowRateThreshold
}

// consecutiveFailuresStrategy trips after an unbroken run of failures. The
// counter is fed by the breaker on every outcome.
type consecutiveFailuresStrategy struct {
	failureCount int64
}

func (s *consecutiveFailuresStrategy) Name() string {
	return "consecutive_failures"
}

func (s *consecutiveFailuresStrategy) ShouldOpen(snapshot *MetricsSnapshot, config ResourceConfig) bool {
	return atomic.LoadInt64(&s.failureCount) >= int64(config.ConsecutiveFailures)
}

// RecordSuccess resets the run.
func (s *consecutiveFailuresStrategy) RecordSuccess() {
	atomic.StoreInt64(&s.failureCount, 0)
}

// RecordFailure extends the run.
func (s *consecutiveFailuresStrategy) RecordFailure() {
	atomic.AddInt64(&s.failureCount, 1)
}

// GetStrategyByName resolves a strategy by config name, defaulting to
// error_rate for unknown names.
func GetStrategyByName(name string) Strategy {
	switch name {
	case "error_rate":
		return &errorRateStrategy{}
	case "slow_call_rate":
		return &slowCallRateStrategy{}
	case "consecutive_failures":
		return &consecutiveFailuresStrategy{}
	default:
		return &errorRateStrategy{}
	}
}

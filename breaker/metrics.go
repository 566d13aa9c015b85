package breaker

import (
	"time"
)

// MetricsCollector records call outcomes into the rolling window.
type MetricsCollector interface {
	// RecordSuccess records a successful call.
	RecordSuccess(duration time.Duration)

	// RecordFailure records a failed call.
	RecordFailure(duration time.Duration, err error)

	// RecordTimeout records a call that hit its deadline.
	RecordTimeout(duration time.Duration)

	// RecordRejection records a short-circuited call. Rejections stay out
	// of the failure ratio; an Open breaker must not feed its own trip
	// condition.
	RecordRejection()

	// GetSnapshot aggregates the current window.
	GetSnapshot() *MetricsSnapshot

	// Subscribe registers an observer notified after every recording.
	Subscribe(observer MetricsObserver) ObserverID

	// Unsubscribe removes an observer.
	Unsubscribe(id ObserverID)

	// Reset clears the window.
	Reset()
}

// MetricsSnapshot is an aggregated view of the rolling window.
type MetricsSnapshot struct {
	Resource    string
	State       State
	WindowStart time.Time
	WindowEnd   time.Time

	// Counts. TotalRequests = Successes + Failures + Timeouts; rejections
	// are tracked separately.
	TotalRequests int64
	Successes     int64
	Failures      int64
	Timeouts      int64
	Rejections    int64

	// Ratios over TotalRequests. FailureRate counts timeouts as failures.
	SuccessRate float64
	FailureRate float64
	TimeoutRate float64

	// Latency distribution.
	AvgLatency time.Duration
	P50Latency time.Duration
	P95Latency time.Duration
	P99Latency time.Duration
	MaxLatency time.Duration

	// Slow calls at or above the configured threshold.
	SlowCalls    int64
	SlowCallRate float64

	// ErrorTypes counts failures by error text.
	ErrorTypes map[string]int64
}

// MetricsObserver receives window snapshots as outcomes are recorded.
// Implemented at the application layer.
type MetricsObserver interface {
	OnMetricsUpdated(snapshot *MetricsSnapshot)
}

// ObserverID identifies a metrics subscription.
type ObserverID string

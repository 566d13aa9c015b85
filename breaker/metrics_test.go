package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(mutate func(*ResourceConfig)) *slidingWindowMetrics {
	config := DefaultResourceConfig()
	if mutate != nil {
		mutate(&config)
	}
	return newSlidingWindowMetrics("test-resource", config, newStateManager())
}

func TestSlidingWindowMetrics_Counts(t *testing.T) {
	m := newTestMetrics(nil)

	for i := 0; i < 3; i++ {
		m.RecordSuccess(10 * time.Millisecond)
	}
	m.RecordFailure(10*time.Millisecond, errors.New("boom"))
	m.RecordFailure(10*time.Millisecond, errors.New("boom"))
	m.RecordTimeout(20 * time.Millisecond)

	snapshot := m.GetSnapshot()

	assert.Equal(t, int64(6), snapshot.TotalRequests)
	assert.Equal(t, int64(3), snapshot.Successes)
	assert.Equal(t, int64(2), snapshot.Failures)
	assert.Equal(t, int64(1), snapshot.Timeouts)
	assert.InDelta(t, 0.5, snapshot.SuccessRate, 0.001)
	assert.InDelta(t, 0.5, snapshot.FailureRate, 0.001)
	assert.InDelta(t, 1.0/6.0, snapshot.TimeoutRate, 0.001)
	assert.Equal(t, "test-resource", snapshot.Resource)
}

func TestSlidingWindowMetrics_FailureRateCountsTimeouts(t *testing.T) {
	m := newTestMetrics(nil)

	m.RecordSuccess(5 * time.Millisecond)
	m.RecordTimeout(50 * time.Millisecond)

	snapshot := m.GetSnapshot()

	assert.Equal(t, int64(2), snapshot.TotalRequests)
	assert.Equal(t, int64(0), snapshot.Failures)
	assert.InDelta(t, 0.5, snapshot.FailureRate, 0.001)
}

func TestSlidingWindowMetrics_RejectionsStayOutOfTheRatio(t *testing.T) {
	m := newTestMetrics(nil)

	m.RecordRejection()
	m.RecordRejection()

	snapshot := m.GetSnapshot()

	assert.Equal(t, int64(2), snapshot.Rejections)
	assert.Equal(t, int64(0), snapshot.TotalRequests)
	assert.Equal(t, 0.0, snapshot.FailureRate)
}

func TestSlidingWindowMetrics_ErrorTypes(t *testing.T) {
	m := newTestMetrics(nil)

	m.RecordFailure(time.Millisecond, errors.New("connection refused"))
	m.RecordFailure(time.Millisecond, errors.New("connection refused"))
	m.RecordFailure(time.Millisecond, errors.New("bad gateway"))

	snapshot := m.GetSnapshot()

	assert.Equal(t, int64(2), snapshot.ErrorTypes["connection refused"])
	assert.Equal(t, int64(1), snapshot.ErrorTypes["bad gateway"])
}

func TestSlidingWindowMetrics_SlowCalls(t *testing.T) {
	m := newTestMetrics(func(c *ResourceConfig) {
		c.SlowCallThreshold = 50 * time.Millisecond
	})

	m.RecordSuccess(10 * time.Millisecond)
	m.RecordSuccess(60 * time.Millisecond)
	m.RecordSuccess(70 * time.Millisecond)

	snapshot := m.GetSnapshot()

	assert.Equal(t, int64(2), snapshot.SlowCalls)
	assert.InDelta(t, 2.0/3.0, snapshot.SlowCallRate, 0.001)
}

func TestSlidingWindowMetrics_Latencies(t *testing.T) {
	m := newTestMetrics(nil)

	for i := 1; i <= 10; i++ {
		m.RecordSuccess(time.Duration(i) * 10 * time.Millisecond)
	}

	snapshot := m.GetSnapshot()

	assert.Equal(t, 55*time.Millisecond, snapshot.AvgLatency)
	assert.Equal(t, 60*time.Millisecond, snapshot.P50Latency)
	assert.Equal(t, 100*time.Millisecond, snapshot.MaxLatency)
}

func TestSlidingWindowMetrics_WindowExpiry(t *testing.T) {
	m := newTestMetrics(func(c *ResourceConfig) {
		c.WindowSize = 200 * time.Millisecond
		c.BucketSize = 50 * time.Millisecond
	})

	m.RecordFailure(time.Millisecond, errors.New("boom"))
	require.Equal(t, int64(1), m.GetSnapshot().TotalRequests)

	time.Sleep(300 * time.Millisecond)

	snapshot := m.GetSnapshot()
	assert.Equal(t, int64(0), snapshot.TotalRequests)
	assert.Equal(t, 0.0, snapshot.FailureRate)
}

func TestSlidingWindowMetrics_Reset(t *testing.T) {
	m := newTestMetrics(nil)

	m.RecordSuccess(time.Millisecond)
	m.RecordFailure(time.Millisecond, errors.New("boom"))
	m.RecordRejection()

	m.Reset()

	snapshot := m.GetSnapshot()
	assert.Equal(t, int64(0), snapshot.TotalRequests)
	assert.Equal(t, int64(0), snapshot.Rejections)
	assert.Empty(t, snapshot.ErrorTypes)
}

type chanObserver struct {
	ch chan *MetricsSnapshot
}

func (o *chanObserver) OnMetricsUpdated(snapshot *MetricsSnapshot) {
	select {
	case o.ch <- snapshot:
	default:
	}
}

func TestSlidingWindowMetrics_Observer(t *testing.T) {
	m := newTestMetrics(nil)

	obs := &chanObserver{ch: make(chan *MetricsSnapshot, 8)}
	id := m.Subscribe(obs)
	require.NotEmpty(t, id)

	m.RecordSuccess(time.Millisecond)

	select {
	case snapshot := <-obs.ch:
		assert.Equal(t, int64(1), snapshot.TotalRequests)
	case <-time.After(2 * time.Second):
		t.Fatal("observer was never notified")
	}

	m.Unsubscribe(id)
}

package breaker

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// slidingWindowMetrics aggregates call outcomes over a ring of time buckets.
type slidingWindowMetrics struct {
	resource string
	config   ResourceConfig
	stateMgr *stateManager

	buckets     []*bucket
	bucketCount int
	bucketSize  time.Duration
	currentIdx  int
	lastRotate  time.Time

	observers  map[ObserverID]MetricsObserver
	observerMu sync.RWMutex
	nextObsID  uint64

	mu sync.RWMutex
}

// bucket holds one slice of the window.
type bucket struct {
	startTime  time.Time
	successes  int64
	failures   int64
	timeouts   int64
	rejections int64
	latencies  []time.Duration
	errorTypes map[string]int64
	mu         sync.RWMutex
}

func newBucket(startTime time.Time) *bucket {
	return &bucket{
		startTime:  startTime,
		latencies:  make([]time.Duration, 0, 100),
		errorTypes: make(map[string]int64),
	}
}

func newSlidingWindowMetrics(resource string, config ResourceConfig, stateMgr *stateManager) *slidingWindowMetrics {
	bucketCount := int(config.WindowSize / config.BucketSize)
	if bucketCount < 1 {
		bucketCount = 1
	}
	buckets := make([]*bucket, bucketCount)
	now := time.Now()

	for i := 0; i < bucketCount; i++ {
		buckets[i] = newBucket(now.Add(-time.Duration(bucketCount-i) * config.BucketSize))
	}

	return &slidingWindowMetrics{
		resource:    resource,
		config:      config,
		stateMgr:    stateMgr,
		buckets:     buckets,
		bucketCount: bucketCount,
		bucketSize:  config.BucketSize,
		lastRotate:  now,
		observers:   make(map[ObserverID]MetricsObserver),
	}
}

// RecordSuccess records a successful call.
func (m *slidingWindowMetrics) RecordSuccess(duration time.Duration) {
	m.rotate()

	b := m.getCurrentBucket()
	b.mu.Lock()
	b.successes++
	b.latencies = append(b.latencies, duration)
	b.mu.Unlock()

	m.notifyObservers()
}

// RecordFailure records a failed call.
func (m *slidingWindowMetrics) RecordFailure(duration time.Duration, err error) {
	m.rotate()

	b := m.getCurrentBucket()
	b.mu.Lock()
	b.failures++
	b.latencies = append(b.latencies, duration)
	if err != nil {
		b.errorTypes[err.Error()]++
	}
	b.mu.Unlock()

	m.notifyObservers()
}

// RecordTimeout records a call that hit its deadline.
func (m *slidingWindowMetrics) RecordTimeout(duration time.Duration) {
	m.rotate()

	b := m.getCurrentBucket()
	b.mu.Lock()
	b.timeouts++
	b.latencies = append(b.latencies, duration)
	b.mu.Unlock()

	m.notifyObservers()
}

// RecordRejection records a short-circuited call.
func (m *slidingWindowMetrics) RecordRejection() {
	m.rotate()

	b := m.getCurrentBucket()
	b.mu.Lock()
	b.rejections++
	b.mu.Unlock()

	m.notifyObservers()
}

// GetSnapshot aggregates every bucket in the window.
func (m *slidingWindowMetrics) GetSnapshot() *MetricsSnapshot {
	m.rotate()
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		successes    int64
		failures     int64
		timeouts     int64
		rejections   int64
		allLatencies []time.Duration
		errorTypes   = make(map[string]int64)
	)

	now := time.Now()
	windowStart := now.Add(-m.config.WindowSize)

	for _, b := range m.buckets {
		b.mu.RLock()
		successes += b.successes
		failures += b.failures
		timeouts += b.timeouts
		rejections += b.rejections
		allLatencies = append(allLatencies, b.latencies...)
		for errType, count := range b.errorTypes {
			errorTypes[errType] += count
		}
		b.mu.RUnlock()
	}

	totalRequests := successes + failures + timeouts

	var successRate, failureRate, timeoutRate float64
	if totalRequests > 0 {
		successRate = float64(successes) / float64(totalRequests)
		// Timed-out calls failed from the caller's point of view.
		failureRate = float64(failures+timeouts) / float64(totalRequests)
		timeoutRate = float64(timeouts) / float64(totalRequests)
	}

	var avgLatency, p50, p95, p99, maxLatency time.Duration
	var slowCalls int64
	var slowCallRate float64

	if len(allLatencies) > 0 {
		sort.Slice(allLatencies, func(i, j int) bool {
			return allLatencies[i] < allLatencies[j]
		})

		var total time.Duration
		for _, lat := range allLatencies {
			total += lat
			if lat >= m.config.SlowCallThreshold {
				slowCalls++
			}
		}
		avgLatency = total / time.Duration(len(allLatencies))

		p50 = allLatencies[len(allLatencies)*50/100]
		p95 = allLatencies[len(allLatencies)*95/100]
		p99 = allLatencies[len(allLatencies)*99/100]
		maxLatency = allLatencies[len(allLatencies)-1]

		if totalRequests > 0 {
			slowCallRate = float64(slowCalls) / float64(totalRequests)
		}
	}

	return &MetricsSnapshot{
		Resource:      m.resource,
		State:         m.stateMgr.GetState(),
		WindowStart:   windowStart,
		WindowEnd:     now,
		TotalRequests: totalRequests,
		Successes:     successes,
		Failures:      failures,
		Timeouts:      timeouts,
		Rejections:    rejections,
		SuccessRate:   successRate,
		FailureRate:   failureRate,
		TimeoutRate:   timeoutRate,
		AvgLatency:    avgLatency,
		P50Latency:    p50,
		P95Latency:    p95,
		P99Latency:    p99,
		MaxLatency:    maxLatency,
		SlowCalls:     slowCalls,
		SlowCallRate:  slowCallRate,
		ErrorTypes:    errorTypes,
	}
}

// Subscribe registers an observer for live snapshots.
func (m *slidingWindowMetrics) Subscribe(observer MetricsObserver) ObserverID {
	m.observerMu.Lock()
	defer m.observerMu.Unlock()

	m.nextObsID++
	id := ObserverID("obs-" + strconv.FormatUint(m.nextObsID, 10))
	m.observers[id] = observer
	return id
}

// Unsubscribe removes an observer.
func (m *slidingWindowMetrics) Unsubscribe(id ObserverID) {
	m.observerMu.Lock()
	defer m.observerMu.Unlock()

	delete(m.observers, id)
}

// Reset clears the window.
func (m *slidingWindowMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for i := 0; i < m.bucketCount; i++ {
		m.buckets[i] = newBucket(now.Add(-time.Duration(m.bucketCount-i) * m.bucketSize))
	}
	m.lastRotate = now
	m.currentIdx = 0
}

// rotate advances the ring past elapsed bucket boundaries.
func (m *slidingWindowMetrics) rotate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(m.lastRotate)

	rotations := int(elapsed / m.bucketSize)
	if rotations == 0 {
		return
	}

	if rotations > m.bucketCount {
		rotations = m.bucketCount
	}

	for i := 0; i < rotations; i++ {
		m.currentIdx = (m.currentIdx + 1) % m.bucketCount
		m.buckets[m.currentIdx] = newBucket(now)
	}

	m.lastRotate = now
}

func (m *slidingWindowMetrics) getCurrentBucket() *bucket {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buckets[m.currentIdx]
}

// notifyObservers fans the current snapshot out to subscribers.
func (m *slidingWindowMetrics) notifyObservers() {
	m.observerMu.RLock()
	observers := make([]MetricsObserver, 0, len(m.observers))
	for _, obs := range m.observers {
		observers = append(observers, obs)
	}
	m.observerMu.RUnlock()

	if len(observers) == 0 {
		return
	}

	snapshot := m.GetSnapshot()
	for _, obs := range observers {
		go obs.OnMetricsUpdated(snapshot)
	}
}

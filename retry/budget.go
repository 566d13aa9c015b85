package retry

import (
	"sync"
	"time"
)

// BudgetManager caps retry traffic relative to first-attempt traffic so
// retries cannot amplify an outage. A ratio of 0.1 allows at most 10%
// extra load from retries within each window.
type BudgetManager struct {
	ratio  float64
	window time.Duration

	mu       sync.Mutex
	requests int64
	retries  int64

	windowStart time.Time
}

// NewBudgetManager creates a retry budget.
// ratio: allowed retries as a fraction of requests, clamped to [0, 1].
// window: statistics window, defaults to one minute.
func NewBudgetManager(ratio float64, window time.Duration) *BudgetManager {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1.0 {
		ratio = 1.0
	}
	if window <= 0 {
		window = time.Minute
	}

	return &BudgetManager{
		ratio:       ratio,
		window:      window,
		windowStart: time.Now(),
	}
}

// Allow reports whether the budget permits another retry.
func (b *BudgetManager) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeResetWindow()

	maxRetries := int64(float64(b.requests) * b.ratio)
	return b.retries < maxRetries
}

// Record updates the statistics with an attempt outcome.
func (b *BudgetManager) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeResetWindow()

	b.requests++
	if !success {
		b.retries++
	}
}

// GetStats returns a snapshot of the current window.
func (b *BudgetManager) GetStats() BudgetStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeResetWindow()

	maxRetries := int64(float64(b.requests) * b.ratio)
	remaining := maxRetries - b.retries
	if remaining < 0 {
		remaining = 0
	}

	return BudgetStats{
		Requests:    b.requests,
		Retries:     b.retries,
		MaxRetries:  maxRetries,
		Remaining:   remaining,
		Ratio:       b.ratio,
		UsageRatio:  b.usageRatio(),
		WindowStart: b.windowStart,
		WindowEnd:   b.windowStart.Add(b.window),
	}
}

// Reset clears the statistics and starts a fresh window.
func (b *BudgetManager) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests = 0
	b.retries = 0
	b.windowStart = time.Now()
}

// caller must hold b.mu
func (b *BudgetManager) maybeResetWindow() {
	now := time.Now()
	if now.Sub(b.windowStart) >= b.window {
		b.requests = 0
		b.retries = 0
		b.windowStart = now
	}
}

// caller must hold b.mu
func (b *BudgetManager) usageRatio() float64 {
	if b.requests == 0 {
		return 0
	}

	maxRetries := float64(b.requests) * b.ratio
	if maxRetries == 0 {
		return 0
	}
	return float64(b.retries) / maxRetries
}

// BudgetStats is a snapshot of a budget window.
type BudgetStats struct {
	Requests    int64
	Retries     int64
	MaxRetries  int64
	Remaining   int64
	Ratio       float64
	UsageRatio  float64
	WindowStart time.Time
	WindowEnd   time.Time
}

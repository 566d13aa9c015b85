package health

import (
	"context"
	"sync"
	"time"
)

// Aggregator fans a probe out to every registered checker and folds the
// individual results into one overall status.
type Aggregator struct {
	mu       sync.RWMutex
	checkers []Checker
	metadata map[string]interface{}
	timeout  time.Duration
}

func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Aggregator{
		metadata: make(map[string]interface{}),
		timeout:  timeout,
	}
}

// Register adds a checker. Checkers run on every probe after this point.
func (a *Aggregator) Register(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, checker)
}

// SetMetadata attaches a static key to every health response, e.g. the
// service version.
func (a *Aggregator) SetMetadata(key string, value interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metadata[key] = value
}

// Check runs all checkers concurrently under the aggregator timeout.
func (a *Aggregator) Check(ctx context.Context) *Response {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	checkers, metadata := a.snapshot()

	checks := make(map[string]CheckResult, len(checkers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, checker := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			result := runCheck(checkCtx, c)
			mu.Lock()
			checks[result.Name] = result
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	return &Response{
		Status:    overallStatus(checks),
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		Checks:    checks,
		Metadata:  metadata,
	}
}

// snapshot copies the registered state so a slow probe never holds the
// lock against Register.
func (a *Aggregator) snapshot() ([]Checker, map[string]interface{}) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	checkers := make([]Checker, len(a.checkers))
	copy(checkers, a.checkers)
	metadata := make(map[string]interface{}, len(a.metadata))
	for k, v := range a.metadata {
		metadata[k] = v
	}
	return checkers, metadata
}

func runCheck(ctx context.Context, checker Checker) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      checker.Name(),
		Timestamp: start,
	}

	err := checker.Check(ctx)
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		result.Message = "Health check failed"
		return result
	}

	result.Status = StatusHealthy
	result.Message = "OK"
	return result
}

// overallStatus is the worst status across all checks. No checks means
// healthy.
func overallStatus(checks map[string]CheckResult) Status {
	status := StatusHealthy
	for _, result := range checks {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

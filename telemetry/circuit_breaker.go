package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// CircuitState is the exporter breaker state.
type CircuitState int32

const (
	// StateClosed means the primary exporter is in use.
	StateClosed CircuitState = 0
	// StateOpen means exports go to the fallback exporter.
	StateOpen CircuitState = 1
	// StateHalfOpen means recovery probes are in flight.
	StateHalfOpen CircuitState = 2
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls the span exporter breaker.
//
// This breaker is deliberately simpler than the breaker package: it
// counts consecutive failures instead of keeping a rolling window, and
// it lives here because the breaker package itself reports through
// telemetry, so importing it would cycle.
type CircuitBreakerConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	FailureThreshold     int           `mapstructure:"failure_threshold"`      // consecutive failures before opening
	SuccessThreshold     int           `mapstructure:"success_threshold"`      // consecutive successes in half-open before closing
	Timeout              time.Duration `mapstructure:"timeout"`                // how long to stay open before probing
	HalfOpenMaxRequests  int           `mapstructure:"half_open_max_requests"` // probe budget in half-open
	FallbackExporterType string        `mapstructure:"fallback_exporter_type"` // stdout or noop
}

// CircuitBreaker wraps a SpanExporter so a broken collector endpoint
// cannot stall span processing. While open, spans route to the fallback
// exporter instead of being dropped.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	logger *zap.Logger

	primary  trace.SpanExporter
	fallback trace.SpanExporter

	mu         sync.Mutex
	state      CircuitState
	failures   int // consecutive failures
	successes  int // consecutive half-open successes
	probes     int // half-open probes admitted
	lastChange time.Time
}

// NewCircuitBreaker creates a breaker around the two exporters. The
// breaker starts closed.
func NewCircuitBreaker(
	config CircuitBreakerConfig,
	logger *zap.Logger,
	primary trace.SpanExporter,
	fallback trace.SpanExporter,
) *CircuitBreaker {
	return &CircuitBreaker{
		config:     config,
		logger:     logger,
		primary:    primary,
		fallback:   fallback,
		state:      StateClosed,
		lastChange: time.Now(),
	}
}

// ExportSpans implements trace.SpanExporter. The admission decision is
// taken under the lock; the export itself runs outside it so a slow
// collector cannot serialize every exporting goroutine.
func (cb *CircuitBreaker) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	if !cb.config.Enabled {
		return cb.primary.ExportSpans(ctx, spans)
	}

	if !cb.admit() {
		return cb.fallback.ExportSpans(ctx, spans)
	}

	if err := cb.primary.ExportSpans(ctx, spans); err != nil {
		cb.recordFailure()
		return cb.fallback.ExportSpans(ctx, spans)
	}
	cb.recordSuccess()
	return nil
}

// admit decides whether this export may try the primary exporter, and
// performs the open -> half-open transition when the open timeout has
// elapsed.
func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(cb.lastChange) < cb.config.Timeout {
			return false
		}
		cb.transition(StateHalfOpen, "attempting_recovery")
		fallthrough

	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxRequests {
			return false
		}
		cb.probes++
		return true

	default:
		return true
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transition(StateClosed, "recovery_successful")
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	switch cb.state {
	case StateHalfOpen:
		// any failed probe reopens immediately
		cb.transition(StateOpen, "probe_failed")
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.transition(StateOpen, "failure_threshold_reached")
		}
	}
}

// transition moves to next and resets the per-state counters. Caller
// holds mu.
func (cb *CircuitBreaker) transition(next CircuitState, reason string) {
	if cb.state == next {
		return
	}
	prev := cb.state

	cb.state = next
	cb.lastChange = time.Now()
	cb.successes = 0
	cb.probes = 0
	if next != StateOpen {
		cb.failures = 0
	}

	log := cb.logger.Info
	icon := "🟢"
	switch next {
	case StateOpen:
		log = cb.logger.Warn
		icon = "🔴"
	case StateHalfOpen:
		icon = "🟡"
	}
	log(icon+" Exporter breaker state changed",
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
		zap.String("reason", reason),
		zap.String("fallback_exporter", cb.config.FallbackExporterType))
}

// Shutdown implements trace.SpanExporter, closing both exporters.
func (cb *CircuitBreaker) Shutdown(ctx context.Context) error {
	var primaryErr, fallbackErr error
	if cb.primary != nil {
		primaryErr = cb.primary.Shutdown(ctx)
	}
	if cb.fallback != nil {
		fallbackErr = cb.fallback.Shutdown(ctx)
	}
	if primaryErr != nil {
		return primaryErr
	}
	return fallbackErr
}

// GetState returns the current breaker state.
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStats returns a snapshot for diagnostics endpoints.
func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]interface{}{
		"state":              cb.state.String(),
		"failure_count":      cb.failures,
		"success_count":      cb.successes,
		"half_open_requests": cb.probes,
		"last_state_change":  cb.lastChange.Format(time.RFC3339),
		"time_since_change":  time.Since(cb.lastChange).String(),
		"failure_threshold":  cb.config.FailureThreshold,
		"success_threshold":  cb.config.SuccessThreshold,
		"timeout":            cb.config.Timeout.String(),
		"fallback_exporter":  cb.config.FallbackExporterType,
	}
}

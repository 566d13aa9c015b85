package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KOMKZ/go-aegis-framework/logger"
	"go.uber.org/zap"
)

// circuitBreaker guards one resource.
type circuitBreaker struct {
	resource string
	config   ResourceConfig
	stateMgr *stateManager
	metrics  MetricsCollector
	strategy Strategy
	eventBus EventBus
	logger   *logger.CtxZapLogger
}

var _ Breaker = (*circuitBreaker)(nil)

func newCircuitBreaker(resource string, config ResourceConfig, eventBus EventBus, log *logger.CtxZapLogger) *circuitBreaker {
	stateMgr := newStateManager()

	return &circuitBreaker{
		resource: resource,
		config:   config,
		stateMgr: stateMgr,
		metrics:  newSlidingWindowMetrics(resource, config, stateMgr),
		strategy: GetStrategyByName(config.Strategy),
		eventBus: eventBus,
		logger:   log,
	}
}

// Fire runs the protected call through the state machine.
func (cb *circuitBreaker) Fire(ctx context.Context, req *Request) *Response {
	movedHalfOpen, acqErr := cb.stateMgr.Acquire(cb.config)
	if movedHalfOpen {
		if cb.logger != nil {
			cb.logger.InfoCtx(ctx, "🔍 [CircuitBreaker] open timeout expired, probing recovery",
				zap.String("resource", cb.resource))
		}
		cb.publishStateChanged(ctx, StateOpen, StateHalfOpen, "open timeout expired", cb.metrics.GetSnapshot())
	}

	if acqErr != nil {
		if cb.logger != nil {
			cb.logger.WarnCtx(ctx, "⛔ [CircuitBreaker] request rejected",
				zap.String("resource", cb.resource),
				zap.String("state", cb.stateMgr.GetState().String()),
				zap.Error(acqErr))
		}
		cb.metrics.RecordRejection()

		if cb.eventBus != nil {
			cb.eventBus.Publish(&RejectedEvent{
				BaseEvent:    NewBaseEvent(EventCallRejected, cb.resource, ctx),
				CurrentState: cb.stateMgr.GetState(),
			})
		}

		if req.Fallback != nil {
			return cb.runFallback(ctx, req, acqErr)
		}
		return &Response{Error: acqErr}
	}

	execCtx := ctx
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = cb.config.CallTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	value, err := req.Execute(execCtx)
	duration := time.Since(start)

	if err != nil {
		// A cancellation coming from the caller's own context says nothing
		// about upstream health; keep it out of the failure window.
		if errors.Is(ctx.Err(), context.Canceled) && errors.Is(err, context.Canceled) {
			cb.stateMgr.ReleaseTrial()
			return &Response{Duration: duration, Error: err}
		}
		cb.handleFailure(ctx, duration, err)
		if req.Fallback != nil {
			return cb.runFallback(ctx, req, err)
		}
		return &Response{Duration: duration, Error: err}
	}

	cb.handleSuccess(ctx, duration)
	return &Response{Value: value, Duration: duration}
}

func (cb *circuitBreaker) handleSuccess(ctx context.Context, duration time.Duration) {
	cb.metrics.RecordSuccess(duration)

	if cb.eventBus != nil {
		cb.eventBus.Publish(&CallEvent{
			BaseEvent: NewBaseEvent(EventCallSuccess, cb.resource, ctx),
			Success:   true,
			Duration:  duration,
		})
	}

	if s, ok := cb.strategy.(*consecutiveFailuresStrategy); ok {
		s.RecordSuccess()
	}

	changed, from, to := cb.stateMgr.RecordSuccess(cb.config)
	if changed {
		// Snapshot before the reset so the event shows what recovery saw.
		snapshot := cb.metrics.GetSnapshot()
		cb.metrics.Reset()
		if cb.logger != nil {
			cb.logger.InfoCtx(ctx, "✅ [CircuitBreaker] recovered, closing",
				zap.String("resource", cb.resource))
		}
		cb.publishStateChanged(ctx, from, to, "trial call succeeded", snapshot)
	}
}

func (cb *circuitBreaker) handleFailure(ctx context.Context, duration time.Duration, err error) {
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)

	if isTimeout {
		cb.metrics.RecordTimeout(duration)
	} else {
		cb.metrics.RecordFailure(duration, err)
	}

	if cb.eventBus != nil {
		eventType := EventCallFailure
		if isTimeout {
			eventType = EventCallTimeout
		}
		cb.eventBus.Publish(&CallEvent{
			BaseEvent: NewBaseEvent(eventType, cb.resource, ctx),
			Success:   false,
			Duration:  duration,
			Error:     err,
		})
	}

	if s, ok := cb.strategy.(*consecutiveFailuresStrategy); ok {
		s.RecordFailure()
	}

	// A failed half-open trial reopens immediately and restarts the timer.
	changed, from, to := cb.stateMgr.RecordFailure()
	if changed {
		if cb.logger != nil {
			cb.logger.WarnCtx(ctx, "⛔ [CircuitBreaker] trial call failed, reopening",
				zap.String("resource", cb.resource),
				zap.Error(err))
		}
		cb.publishStateChanged(ctx, from, to, "trial call failed", cb.metrics.GetSnapshot())
		return
	}

	snapshot := cb.metrics.GetSnapshot()
	if cb.strategy.ShouldOpen(snapshot, cb.config) {
		changed, from, to := cb.stateMgr.ShouldOpen(true)
		if changed {
			if cb.logger != nil {
				cb.logger.WarnCtx(ctx, "⛔ [CircuitBreaker] failure threshold exceeded, tripping open",
					zap.String("resource", cb.resource),
					zap.Float64("failure_rate", snapshot.FailureRate),
					zap.Int64("requests", snapshot.TotalRequests))
			}
			cb.publishStateChanged(ctx, from, to, "failure threshold exceeded", snapshot)
		}
	}
}

// runFallback consults the request fallback with the original error.
func (cb *circuitBreaker) runFallback(ctx context.Context, req *Request, cause error) *Response {
	start := time.Now()
	value, err := req.Fallback(ctx, cause)
	duration := time.Since(start)

	if cb.eventBus != nil {
		eventType := EventFallbackSuccess
		if err != nil {
			eventType = EventFallbackFailure
		}
		cb.eventBus.Publish(&FallbackEvent{
			BaseEvent: NewBaseEvent(eventType, cb.resource, ctx),
			Success:   err == nil,
			Duration:  duration,
			Error:     err,
		})
	}

	if err != nil {
		return &Response{Duration: duration, Error: err}
	}
	return &Response{Value: value, FromFallback: true, Duration: duration}
}

func (cb *circuitBreaker) publishStateChanged(ctx context.Context, from, to State, reason string, snapshot *MetricsSnapshot) {
	if cb.eventBus == nil {
		return
	}
	cb.eventBus.Publish(&StateChangedEvent{
		BaseEvent: NewBaseEvent(EventStateChanged, cb.resource, ctx),
		From:      from,
		To:        to,
		Reason:    reason,
		Metrics:   snapshot,
	})
}

// GetState returns the current state.
func (cb *circuitBreaker) GetState() State {
	return cb.stateMgr.GetState()
}

// GetMetrics returns a rolling window snapshot.
func (cb *circuitBreaker) GetMetrics() *MetricsSnapshot {
	return cb.metrics.GetSnapshot()
}

// Reset forces the breaker back to Closed and clears the window.
func (cb *circuitBreaker) Reset() {
	changed, from, to := cb.stateMgr.Reset()
	cb.metrics.Reset()
	if changed {
		cb.publishStateChanged(context.Background(), from, to, "manual reset", cb.metrics.GetSnapshot())
	}
}

// Manager owns one breaker per resource plus the shared event bus.
type Manager struct {
	config   Config
	breakers map[string]*circuitBreaker
	eventBus EventBus
	hooks    *callbacks
	logger   *logger.CtxZapLogger
	mu       sync.RWMutex
}

// NewManager builds a manager logging through the framework default logger.
func NewManager(config Config, opts ...Option) (*Manager, error) {
	return NewManagerWithLogger(config, nil, opts...)
}

// NewManagerWithLogger builds a manager with an explicit logger. The config
// gets defaults applied and validated; a disabled config yields a manager
// that executes calls directly.
func NewManagerWithLogger(config Config, ctxLogger *logger.CtxZapLogger, opts ...Option) (*Manager, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid breaker config: %w", err)
	}

	if ctxLogger == nil {
		ctxLogger = logger.GetLogger("aegis")
	}

	hooks := &callbacks{}
	for _, opt := range opts {
		opt(hooks)
	}

	m := &Manager{
		config:   config,
		breakers: make(map[string]*circuitBreaker),
		hooks:    hooks,
		logger:   ctxLogger,
	}

	if !config.Enabled {
		ctxLogger.Debug("circuit breaker disabled, all calls pass through")
		return m, nil
	}

	m.eventBus = NewEventBus(config.EventBusBuffer)
	if !hooks.empty() {
		m.eventBus.Subscribe(hooks, EventStateChanged, EventFallbackSuccess, EventFallbackFailure)
	}

	ctxLogger.Debug("🎯 circuit breaker manager initialized",
		zap.Int("event_bus_buffer", config.EventBusBuffer))

	return m, nil
}

// Fire routes the request to its resource breaker. A disabled manager
// executes the call directly without accounting or fallback.
func (m *Manager) Fire(ctx context.Context, req *Request) *Response {
	if !m.config.Enabled {
		start := time.Now()
		value, err := req.Execute(ctx)
		return &Response{Value: value, Duration: time.Since(start), Error: err}
	}

	return m.getOrCreateBreaker(req.Resource).Fire(ctx, req)
}

// Breaker returns the per-resource breaker, creating it on first use.
func (m *Manager) Breaker(resource string) Breaker {
	return m.getOrCreateBreaker(resource)
}

// GetState returns a resource's current state.
func (m *Manager) GetState(resource string) State {
	return m.getOrCreateBreaker(resource).GetState()
}

// GetMetrics returns a resource's window snapshot.
func (m *Manager) GetMetrics(resource string) *MetricsSnapshot {
	return m.getOrCreateBreaker(resource).GetMetrics()
}

// States snapshots the state of every resource seen so far.
func (m *Manager) States() map[string]State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]State, len(m.breakers))
	for name, cb := range m.breakers {
		out[name] = cb.GetState()
	}
	return out
}

// GetEventBus exposes the bus for subscriptions. Nil when disabled.
func (m *Manager) GetEventBus() EventBus {
	return m.eventBus
}

// SubscribeMetrics attaches an observer to one resource's window.
func (m *Manager) SubscribeMetrics(resource string, observer MetricsObserver) ObserverID {
	return m.getOrCreateBreaker(resource).metrics.Subscribe(observer)
}

// Reset forces one resource back to Closed if it exists.
func (m *Manager) Reset(resource string) {
	m.mu.RLock()
	cb, ok := m.breakers[resource]
	m.mu.RUnlock()

	if ok {
		cb.Reset()
	}
}

// IsEnabled reports whether circuit breaking is active.
func (m *Manager) IsEnabled() bool {
	return m.config.Enabled
}

// Close stops the event bus.
func (m *Manager) Close() {
	if m.eventBus != nil {
		m.eventBus.Close()
	}
}

func (m *Manager) getOrCreateBreaker(resource string) *circuitBreaker {
	m.mu.RLock()
	if cb, exists := m.breakers[resource]; exists {
		m.mu.RUnlock()
		return cb
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, exists := m.breakers[resource]; exists {
		return cb
	}

	resourceConfig := m.config.GetResourceConfig(resource)
	cb := newCircuitBreaker(resource, resourceConfig, m.eventBus, m.logger)
	m.breakers[resource] = cb

	if m.logger != nil {
		m.logger.Debug("🎯 circuit breaker created",
			zap.String("resource", resource),
			zap.String("strategy", resourceConfig.Strategy),
			zap.Duration("open_timeout", resourceConfig.OpenTimeout))
	}

	return cb
}

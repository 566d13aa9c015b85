package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/KOMKZ/go-aegis-framework/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// UnsubscribeFunc removes a previously registered listener.
type UnsubscribeFunc func()

// Dispatcher distributes events to in-process listeners and, when asked,
// out through the broker publisher.
type Dispatcher interface {
	// Subscribe registers a listener and returns its unsubscribe func.
	Subscribe(eventName string, listener Listener, opts ...SubscribeOption) UnsubscribeFunc

	// Dispatch distributes one event. Dispatch options control the path:
	// - default: synchronous in-memory delivery
	// - WithDispatchAsync(): in-memory delivery on the worker pool
	// - WithBroker(): publish through the broker
	// - WithBroker() + WithDispatchAsync(): fire-and-forget broker publish
	// Configured routes apply when the code picks no driver.
	Dispatch(ctx context.Context, event Event, opts ...DispatchOption) error

	// DispatchAsync is shorthand for Dispatch(ctx, event, WithDispatchAsync()).
	DispatchAsync(ctx context.Context, event Event)

	// Use registers a global interceptor.
	Use(interceptor Interceptor)
}

type dispatcher struct {
	mu           sync.RWMutex
	listeners    map[string][]listenerEntry
	interceptors []Interceptor
	nextID       uint64
	pool         *ants.Pool
	poolSize     int
	logger       *logger.CtxZapLogger
	closed       int32
	broker       BrokerPublisher // broker driver (optional)
	router       *Router         // configured routing (optional)
	setAllSync   bool
}

// NewDispatcher creates a dispatcher and its worker pool.
func NewDispatcher(opts ...DispatcherOption) *dispatcher {
	d := &dispatcher{
		listeners: make(map[string][]listenerEntry),
		poolSize:  100,
		logger:    logger.GetLogger("aegis"),
	}

	for _, opt := range opts {
		opt(d)
	}

	var err error
	d.pool, err = ants.NewPool(d.poolSize)
	if err != nil {
		d.logger.Error("create worker pool failed, using default size", zap.Error(err))
		d.pool, _ = ants.NewPool(100)
	}

	return d
}

// Subscribe registers a listener for eventName.
func (d *dispatcher) Subscribe(eventName string, listener Listener, opts ...SubscribeOption) UnsubscribeFunc {
	if eventName == "" || listener == nil {
		return func() {}
	}

	entry := listenerEntry{
		id:       atomic.AddUint64(&d.nextID, 1),
		listener: listener,
	}

	for _, opt := range opts {
		opt(&entry)
		if d.setAllSync {
			entry.async = false
		}
	}

	d.mu.Lock()
	d.listeners[eventName] = append(d.listeners[eventName], entry)
	sort.SliceStable(d.listeners[eventName], func(i, j int) bool {
		return d.listeners[eventName][i].priority < d.listeners[eventName][j].priority
	})
	d.mu.Unlock()

	return func() {
		d.unsubscribe(eventName, entry.id)
	}
}

func (d *dispatcher) unsubscribe(eventName string, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := d.listeners[eventName]
	for i, e := range entries {
		if e.id == id {
			d.listeners[eventName] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Use registers a global interceptor.
func (d *dispatcher) Use(interceptor Interceptor) {
	d.mu.Lock()
	d.interceptors = append(d.interceptors, interceptor)
	d.mu.Unlock()
}

// Dispatch distributes one event.
// Driver precedence: code option > configured route > memory default.
func (d *dispatcher) Dispatch(ctx context.Context, event Event, opts ...DispatchOption) error {
	if event == nil {
		return nil
	}

	options := &dispatchOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// when the code names no driver, consult the configured routes
	if !options.driverExplicit && d.router != nil {
		if route := d.router.Match(event.Name()); route != nil {
			d.logger.DebugCtx(ctx, "🎯 Event route matched",
				zap.String("event", event.Name()),
				zap.String("driver", route.Driver),
				zap.String("routing_key", route.RoutingKey))
			options.driver = route.Driver
			if route.Driver == DriverBroker && options.routingKey == "" {
				options.routingKey = route.RoutingKey
			}
		}
	}

	options.applyDefaults()

	switch options.driver {
	case DriverBroker:
		return d.dispatchToBroker(ctx, event, options)
	default:
		// setAllSync forces synchronous delivery regardless of options.async
		if options.async && !d.setAllSync {
			d.dispatchAsyncMemory(ctx, event)
			return nil
		}
		return d.dispatchMemory(ctx, event)
	}
}

// dispatchMemory runs interceptors and listeners synchronously.
func (d *dispatcher) dispatchMemory(ctx context.Context, event Event) error {
	d.mu.RLock()
	interceptors := make([]Interceptor, len(d.interceptors))
	copy(interceptors, d.interceptors)
	entries := make([]listenerEntry, len(d.listeners[event.Name()]))
	copy(entries, d.listeners[event.Name()])
	d.mu.RUnlock()

	handler := d.buildHandlerChain(ctx, entries, interceptors)

	err := handler(ctx, event)

	d.cleanupOnceListeners(event.Name(), entries)

	// ErrStopPropagation is control flow, not a failure
	if errors.Is(err, ErrStopPropagation) {
		return nil
	}

	return err
}

func (d *dispatcher) dispatchAsyncMemory(ctx context.Context, event Event) {
	if atomic.LoadInt32(&d.closed) == 1 {
		return
	}

	// carry the trace id into the detached context, nothing else from the
	// request context may leak past its lifetime
	asyncCtx := context.Background()
	if traceID := ctx.Value("trace_id"); traceID != nil {
		asyncCtx = context.WithValue(asyncCtx, "trace_id", traceID)
	}

	eventName := event.Name()

	err := d.pool.Submit(func() {
		if err := d.dispatchMemory(asyncCtx, event); err != nil {
			d.logger.ErrorCtx(asyncCtx, "async event handling failed",
				zap.String("event", eventName),
				zap.Error(err))
		}
	})

	if err != nil {
		d.logger.ErrorCtx(ctx, "submit async event failed",
			zap.String("event", eventName),
			zap.Error(err))
	}
}

// dispatchToBroker wraps the event in an envelope and publishes it under
// its routing key. Unlike PublishAfterCommit this path reports errors:
// a caller that picked the broker driver explicitly asked for delivery.
func (d *dispatcher) dispatchToBroker(ctx context.Context, event Event, opts *dispatchOptions) error {
	if d.broker == nil {
		return ErrBrokerNotAvailable
	}

	traceID := ""
	if v := ctx.Value("trace_id"); v != nil {
		if s, ok := v.(string); ok {
			traceID = s
		}
	}

	env, err := Serialize(event, traceID)
	if err != nil {
		return err
	}

	routingKey := opts.routingKey
	if routingKey == "" {
		routingKey = event.Name()
	}

	if opts.async {
		go func() {
			if err := d.broker.PublishJSON(ctx, routingKey, env); err != nil {
				d.logger.ErrorCtx(ctx, "async broker publish failed",
					zap.String("event", event.Name()),
					zap.String("routing_key", routingKey),
					zap.Error(err))
			}
		}()
		return nil
	}

	return d.broker.PublishJSON(ctx, routingKey, env)
}

// DispatchAsync is shorthand for Dispatch(ctx, event, WithDispatchAsync()).
func (d *dispatcher) DispatchAsync(ctx context.Context, event Event) {
	_ = d.Dispatch(ctx, event, WithDispatchAsync())
}

// buildHandlerChain wraps the listener execution in the interceptors,
// first registered interceptor outermost.
func (d *dispatcher) buildHandlerChain(ctx context.Context, entries []listenerEntry, interceptors []Interceptor) Next {
	handler := func(ctx context.Context, event Event) error {
		return d.executeListeners(ctx, event, entries)
	}

	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptor := interceptors[i]
		next := handler
		handler = func(ctx context.Context, event Event) error {
			return interceptor(ctx, event, next)
		}
	}

	return handler
}

func (d *dispatcher) executeListeners(ctx context.Context, event Event, entries []listenerEntry) error {
	for _, entry := range entries {
		if entry.async {
			listener := entry.listener
			eventName := event.Name()
			_ = d.pool.Submit(func() {
				if err := listener.Handle(ctx, event); err != nil && !errors.Is(err, ErrStopPropagation) {
					d.logger.ErrorCtx(ctx, "async listener failed",
						zap.String("event", eventName),
						zap.Error(err))
				}
			})
			continue
		}

		if err := entry.listener.Handle(ctx, event); err != nil {
			return err
		}
	}

	return nil
}

func (d *dispatcher) cleanupOnceListeners(eventName string, executed []listenerEntry) {
	var onceIDs []uint64
	for _, e := range executed {
		if e.once {
			onceIDs = append(onceIDs, e.id)
		}
	}

	if len(onceIDs) == 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	entries := d.listeners[eventName]
	filtered := entries[:0]
	for _, e := range entries {
		remove := false
		for _, id := range onceIDs {
			if e.id == id {
				remove = true
				break
			}
		}
		if !remove {
			filtered = append(filtered, e)
		}
	}
	d.listeners[eventName] = filtered
}

// Close releases the worker pool; later async dispatches are dropped.
func (d *dispatcher) Close() {
	atomic.StoreInt32(&d.closed, 1)
	if d.pool != nil {
		d.pool.Release()
	}
}

// ListenerCount reports how many listeners an event currently has.
func (d *dispatcher) ListenerCount(eventName string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[eventName])
}

// QueueDepth reports how many async deliveries are running or waiting on
// the worker pool.
func (d *dispatcher) QueueDepth() int {
	if d.pool == nil {
		return 0
	}
	return d.pool.Running() + d.pool.Waiting()
}

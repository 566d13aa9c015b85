package event

// listenerEntry is one subscription.
type listenerEntry struct {
	id       uint64
	listener Listener
	priority int // lower runs first
	async    bool
	once     bool
}

// SubscribeOption tunes one subscription.
type SubscribeOption func(*listenerEntry)

// WithPriority orders listeners; lower numbers run first (default 0).
func WithPriority(priority int) SubscribeOption {
	return func(e *listenerEntry) {
		e.priority = priority
	}
}

// WithAsync runs this listener on the pool even under synchronous
// dispatch. Its errors never affect event propagation.
func WithAsync() SubscribeOption {
	return func(e *listenerEntry) {
		e.async = true
	}
}

// WithOnce unsubscribes the listener after its first execution.
func WithOnce() SubscribeOption {
	return func(e *listenerEntry) {
		e.once = true
	}
}

// DispatcherOption configures a dispatcher.
type DispatcherOption func(*dispatcher)

// WithPoolSize sets the async worker pool size.
func WithPoolSize(size int) DispatcherOption {
	return func(d *dispatcher) {
		d.poolSize = size
	}
}

// WithSetAllSync forces every dispatch and listener synchronous,
// regardless of options. Meant for tests that assert on side effects.
func WithSetAllSync(v bool) DispatcherOption {
	return func(d *dispatcher) {
		d.setAllSync = v
	}
}

// WithBrokerPublisher enables the broker driver; events dispatched with
// WithBroker() or routed there go out through it.
func WithBrokerPublisher(publisher BrokerPublisher) DispatcherOption {
	return func(d *dispatcher) {
		d.broker = publisher
	}
}

// WithRouter installs configured routing. Precedence: code option >
// configured route > default (memory).
func WithRouter(router *Router) DispatcherOption {
	return func(d *dispatcher) {
		d.router = router
	}
}

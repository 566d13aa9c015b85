package event

// dispatchOptions control where and how one event is dispatched.
type dispatchOptions struct {
	driver         string // "memory" | "broker"
	driverExplicit bool   // driver set in code, wins over routes
	routingKey     string // broker routing key, defaults to the event name
	async          bool
}

// DispatchOption tunes one Dispatch call.
type DispatchOption func(*dispatchOptions)

func (o *dispatchOptions) applyDefaults() {
	if o.driver == "" {
		o.driver = DriverMemory
	}
}

// Driver constants.
const (
	DriverMemory = "memory"
	DriverBroker = "broker"
)

// WithBroker sends the event out through the broker publisher under its
// name as routing key (override with WithRoutingKey). Code options win
// over configured routes.
func WithBroker() DispatchOption {
	return func(o *dispatchOptions) {
		o.driver = DriverBroker
		o.driverExplicit = true
	}
}

// WithMemory forces in-process dispatch. Code options win over
// configured routes.
func WithMemory() DispatchOption {
	return func(o *dispatchOptions) {
		o.driver = DriverMemory
		o.driverExplicit = true
	}
}

// WithRoutingKey overrides the broker routing key.
func WithRoutingKey(key string) DispatchOption {
	return func(o *dispatchOptions) {
		o.routingKey = key
	}
}

// WithDispatchAsync hands the event to the worker pool and returns
// immediately.
func WithDispatchAsync() DispatchOption {
	return func(o *dispatchOptions) {
		o.async = true
	}
}

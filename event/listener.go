package event

import "context"

// Listener handles dispatched events.
type Listener interface {
	// Handle processes one event. Returning an error stops later
	// listeners in synchronous dispatch; ErrStopPropagation stops them
	// without counting as a failure.
	Handle(ctx context.Context, event Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event Event) error

// Handle implements Listener.
func (f ListenerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

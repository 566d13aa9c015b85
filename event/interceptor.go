package event

import "context"

// Next continues the chain to the following interceptor or the listeners.
type Next func(ctx context.Context, event Event) error

// Interceptor wraps dispatch, useful for logging, error handling and
// event filtering. Not calling next drops the event.
type Interceptor func(ctx context.Context, event Event, next Next) error

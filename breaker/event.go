package breaker

import (
	"context"
	"time"
)

// Event is published on the bus for every call outcome and state change.
type Event interface {
	Type() EventType
	Resource() string
	Timestamp() time.Time
	Context() context.Context
}

// EventType tags a published event.
type EventType string

const (
	// EventStateChanged marks a state machine transition.
	EventStateChanged EventType = "state_changed"

	// EventCallSuccess marks a successful protected call.
	EventCallSuccess EventType = "call_success"

	// EventCallFailure marks a failed protected call.
	EventCallFailure EventType = "call_failure"

	// EventCallTimeout marks a protected call that hit its deadline.
	EventCallTimeout EventType = "call_timeout"

	// EventCallRejected marks a short-circuited call.
	EventCallRejected EventType = "call_rejected"

	// EventFallbackSuccess marks a fallback that produced a value.
	EventFallbackSuccess EventType = "fallback_success"

	// EventFallbackFailure marks a fallback that itself failed.
	EventFallbackFailure EventType = "fallback_failure"
)

// EventBus decouples the breaker from its observers. Delivery order follows
// publish order per bus.
type EventBus interface {
	// Subscribe registers a listener, optionally filtered to event types.
	Subscribe(listener EventListener, filters ...EventType) SubscriptionID

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID)

	// Publish enqueues an event. Events are dropped when the buffer is
	// full or the bus is closed; publication never blocks a call.
	Publish(event Event)

	// Close drains and stops the bus.
	Close()
}

// EventListener receives events. Implemented at the application layer.
type EventListener interface {
	OnEvent(event Event)
}

// SubscriptionID identifies an event subscription.
type SubscriptionID string

// EventListenerFunc adapts a function to EventListener.
type EventListenerFunc func(event Event)

func (f EventListenerFunc) OnEvent(event Event) {
	f(event)
}

// BaseEvent carries the fields shared by every event.
type BaseEvent struct {
	eventType EventType
	resource  string
	timestamp time.Time
	ctx       context.Context
}

func (e *BaseEvent) Type() EventType          { return e.eventType }
func (e *BaseEvent) Resource() string         { return e.resource }
func (e *BaseEvent) Timestamp() time.Time     { return e.timestamp }
func (e *BaseEvent) Context() context.Context { return e.ctx }

// NewBaseEvent stamps a new event with the current time.
func NewBaseEvent(eventType EventType, resource string, ctx context.Context) BaseEvent {
	return BaseEvent{
		eventType: eventType,
		resource:  resource,
		timestamp: time.Now(),
		ctx:       ctx,
	}
}

// StateChangedEvent reports a state machine transition together with the
// window snapshot that drove it.
type StateChangedEvent struct {
	BaseEvent
	From    State
	To      State
	Reason  string
	Metrics *MetricsSnapshot
}

// CallEvent reports one protected call outcome.
type CallEvent struct {
	BaseEvent
	Success  bool
	Duration time.Duration
	Error    error
}

// RejectedEvent reports a short-circuited call.
type RejectedEvent struct {
	BaseEvent
	CurrentState State
}

// FallbackEvent reports a fallback invocation.
type FallbackEvent struct {
	BaseEvent
	Success  bool
	Duration time.Duration
	Error    error
}

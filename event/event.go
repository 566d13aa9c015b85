// Package event provides the domain event model: typed events, a broker
// envelope with registry-based deserialization, an in-process dispatcher
// and a best-effort cross-service publisher.
package event

import "time"

// Event is anything with a name. Names are dot-separated and double as
// broker routing keys, e.g. "user.updated".
type Event interface {
	Name() string
}

// BaseEvent can be embedded into concrete event structs.
type BaseEvent struct {
	name       string
	occurredAt time.Time
}

// NewEvent creates a base event stamped with the current time.
func NewEvent(name string) BaseEvent {
	return BaseEvent{
		name:       name,
		occurredAt: time.Now(),
	}
}

// Name returns the event name.
func (e BaseEvent) Name() string {
	return e.name
}

// OccurredAt returns when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.occurredAt
}

package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/KOMKZ/go-aegis-framework/errcode"
	"github.com/google/uuid"
)

// Envelope is the wire format events travel in between services. The
// payload stays raw JSON so consumers that only relay or log an event
// never pay for decoding it.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventName  string          `json:"event_name"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
	TraceID    string          `json:"trace_id,omitempty"`
}

// Serialize wraps an event into an envelope with a fresh event id.
func Serialize(event Event, traceID string) (*Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s failed: %w", event.Name(), err)
	}

	occurredAt := time.Now()
	if p, ok := event.(interface{ OccurredAt() time.Time }); ok && !p.OccurredAt().IsZero() {
		occurredAt = p.OccurredAt()
	}

	return &Envelope{
		EventID:    uuid.NewString(),
		EventName:  event.Name(),
		Payload:    payload,
		OccurredAt: occurredAt,
		TraceID:    traceID,
	}, nil
}

// ParseEnvelope decodes raw broker bytes into an envelope. Failures are
// MessageMalformed: the consumer rejects such messages without requeue
// because they can never parse.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errcode.ErrMessageMalformed.Wrap(err)
	}
	if env.EventName == "" {
		return nil, errcode.ErrMessageMalformed.WithMsg("envelope missing event_name")
	}
	return &env, nil
}

// eventRegistry maps event names to concrete types for deserialization.
var (
	eventRegistry   = make(map[string]reflect.Type)
	eventRegistryMu sync.RWMutex
)

// RegisterEventType registers a concrete event type for deserialization.
// Call at startup for every event the service consumes:
//
//	event.RegisterEventType[*UserUpdatedEvent]()
func RegisterEventType[T Event]() {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	instance := reflect.New(typ).Interface().(Event)
	name := instance.Name()

	eventRegistryMu.Lock()
	defer eventRegistryMu.Unlock()
	eventRegistry[name] = typ
}

// Deserialize turns an envelope back into a typed event. Unregistered
// names come back as *GenericEvent; a payload that does not match its
// registered type is MessageMalformed.
func Deserialize(env *Envelope) (Event, error) {
	eventRegistryMu.RLock()
	typ, ok := eventRegistry[env.EventName]
	eventRegistryMu.RUnlock()

	if !ok {
		return &GenericEvent{
			name:    env.EventName,
			payload: env.Payload,
		}, nil
	}

	eventPtr := reflect.New(typ).Interface()
	if err := json.Unmarshal(env.Payload, eventPtr); err != nil {
		return nil, errcode.ErrMessageMalformed.Wrapf(err, "unmarshal event %s failed", env.EventName)
	}

	return eventPtr.(Event), nil
}

// GenericEvent carries events whose type was never registered. The
// payload stays raw for callers that inspect it themselves.
type GenericEvent struct {
	name    string
	payload json.RawMessage
}

// Name returns the event name.
func (e *GenericEvent) Name() string {
	return e.name
}

// Payload returns the raw payload.
func (e *GenericEvent) Payload() json.RawMessage {
	return e.payload
}

// GetRegisteredEventNames lists every registered event name.
func GetRegisteredEventNames() []string {
	eventRegistryMu.RLock()
	defer eventRegistryMu.RUnlock()

	names := make([]string, 0, len(eventRegistry))
	for name := range eventRegistry {
		names = append(names, name)
	}
	return names
}

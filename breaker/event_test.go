package breaker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventCollector struct {
	mu     sync.Mutex
	events []Event
}

func (c *eventCollector) OnEvent(event Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *eventCollector) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *eventCollector) types() []EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type())
	}
	return out
}

func callEvent(resource string) *CallEvent {
	return &CallEvent{
		BaseEvent: NewBaseEvent(EventCallSuccess, resource, context.Background()),
		Success:   true,
		Duration:  time.Millisecond,
	}
}

func TestEventBus_SubscribeAndPublish(t *testing.T) {
	bus := NewEventBus(16)
	collector := &eventCollector{}

	id := bus.Subscribe(collector)
	require.NotEmpty(t, id)

	bus.Publish(callEvent("svc"))
	// Close drains the buffer, so delivery is complete afterwards.
	bus.Close()

	events := collector.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventCallSuccess, events[0].Type())
	assert.Equal(t, "svc", events[0].Resource())
}

func TestEventBus_FilterMatching(t *testing.T) {
	bus := NewEventBus(16)
	collector := &eventCollector{}

	bus.Subscribe(collector, EventStateChanged)

	bus.Publish(callEvent("svc"))
	bus.Publish(&StateChangedEvent{
		BaseEvent: NewBaseEvent(EventStateChanged, "svc", context.Background()),
		From:      StateClosed,
		To:        StateOpen,
	})
	bus.Close()

	types := collector.types()
	require.Len(t, types, 1)
	assert.Equal(t, EventStateChanged, types[0])
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(16)
	collector := &eventCollector{}

	id := bus.Subscribe(collector)
	bus.Unsubscribe(id)

	bus.Publish(callEvent("svc"))
	bus.Close()

	assert.Empty(t, collector.all())
}

func TestEventBus_DeliveryOrder(t *testing.T) {
	bus := NewEventBus(32)
	collector := &eventCollector{}

	bus.Subscribe(collector)

	for i := 0; i < 5; i++ {
		bus.Publish(&StateChangedEvent{
			BaseEvent: NewBaseEvent(EventStateChanged, "svc", context.Background()),
			Reason:    fmt.Sprintf("r%d", i),
		})
	}
	bus.Close()

	events := collector.all()
	require.Len(t, events, 5)
	for i, e := range events {
		sc, ok := e.(*StateChangedEvent)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("r%d", i), sc.Reason)
	}
}

func TestEventBus_PanickingListenerDoesNotStopDelivery(t *testing.T) {
	bus := NewEventBus(16)
	collector := &eventCollector{}

	bus.Subscribe(EventListenerFunc(func(Event) {
		panic("listener bug")
	}))
	bus.Subscribe(collector)

	bus.Publish(callEvent("svc"))
	bus.Close()

	assert.Len(t, collector.all(), 1)
}

func TestEventBus_CloseIsIdempotent(t *testing.T) {
	bus := NewEventBus(16)

	bus.Close()
	assert.NotPanics(t, func() {
		bus.Close()
		bus.Publish(callEvent("svc"))
	})
}

func TestEventListenerFunc(t *testing.T) {
	var got Event
	fn := EventListenerFunc(func(e Event) { got = e })

	ev := callEvent("svc")
	fn.OnEvent(ev)

	assert.Equal(t, Event(ev), got)
}

func TestNewBaseEvent(t *testing.T) {
	ctx := context.Background()
	before := time.Now()
	ev := NewBaseEvent(EventCallFailure, "svc", ctx)

	assert.Equal(t, EventCallFailure, ev.Type())
	assert.Equal(t, "svc", ev.Resource())
	assert.Equal(t, ctx, ev.Context())
	assert.False(t, ev.Timestamp().Before(before))
}

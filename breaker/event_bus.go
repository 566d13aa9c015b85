package breaker

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
)

// eventBus is a buffered, single-goroutine dispatcher. Listeners run on the
// dispatch goroutine so subscribers observe events in publish order; a
// listener that blocks delays delivery, not the protected call.
type eventBus struct {
	listeners map[SubscriptionID]*subscription
	buffer    chan Event
	mu        sync.RWMutex
	seq       uint64
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    int32
}

type subscription struct {
	id       SubscriptionID
	listener EventListener
	filters  map[EventType]bool
}

// NewEventBus starts a bus with the given buffer size.
func NewEventBus(bufferSize int) EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	bus := &eventBus{
		listeners: make(map[SubscriptionID]*subscription),
		buffer:    make(chan Event, bufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

// Subscribe registers a listener. Without filters it receives every event.
func (eb *eventBus) Subscribe(listener EventListener, filters ...EventType) SubscriptionID {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.seq++
	id := SubscriptionID("sub-" + strconv.FormatUint(eb.seq, 10))

	filterMap := make(map[EventType]bool, len(filters))
	for _, f := range filters {
		filterMap[f] = true
	}

	eb.listeners[id] = &subscription{
		id:       id,
		listener: listener,
		filters:  filterMap,
	}

	return id
}

// Unsubscribe removes a subscription.
func (eb *eventBus) Unsubscribe(id SubscriptionID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	delete(eb.listeners, id)
}

// Publish enqueues an event, dropping it when the buffer is full or the bus
// is closed.
func (eb *eventBus) Publish(event Event) {
	if atomic.LoadInt32(&eb.closed) == 1 {
		return
	}

	select {
	case eb.buffer <- event:
	case <-eb.ctx.Done():
	default:
	}
}

// Close drains pending events and stops the dispatch goroutine. The buffer
// channel is never closed, so a racing Publish can at worst enqueue an
// event nobody reads.
func (eb *eventBus) Close() {
	if !atomic.CompareAndSwapInt32(&eb.closed, 0, 1) {
		return
	}
	eb.cancel()
	eb.wg.Wait()
}

func (eb *eventBus) dispatch() {
	defer eb.wg.Done()

	for {
		select {
		case event := <-eb.buffer:
			eb.notifyListeners(event)

		case <-eb.ctx.Done():
			// Drain whatever was enqueued before Close.
			for {
				select {
				case event := <-eb.buffer:
					eb.notifyListeners(event)
				default:
					return
				}
			}
		}
	}
}

func (eb *eventBus) notifyListeners(event Event) {
	eb.mu.RLock()
	listeners := make([]*subscription, 0, len(eb.listeners))
	for _, sub := range eb.listeners {
		listeners = append(listeners, sub)
	}
	eb.mu.RUnlock()

	eventType := event.Type()

	for _, sub := range listeners {
		if len(sub.filters) > 0 && !sub.filters[eventType] {
			continue
		}
		eb.deliver(sub.listener, event)
	}
}

// deliver shields the dispatch loop from a panicking listener.
func (eb *eventBus) deliver(l EventListener, e Event) {
	defer func() {
		_ = recover()
	}()
	l.OnEvent(e)
}

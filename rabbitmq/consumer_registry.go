package rabbitmq

import (
	"fmt"
	"sync"
)

// ConsumerRegistryKey is the key the registry is stored under in the
// component registry.
const ConsumerRegistryKey = "rabbitmq.consumer.registry"

// ConsumerRegistry centralizes consumer handlers so applications register
// them once and the consumer app runs them all.
type ConsumerRegistry struct {
	handlers map[string]ConsumerHandler
	mu       sync.RWMutex
}

// NewConsumerRegistry creates an empty registry.
func NewConsumerRegistry() *ConsumerRegistry {
	return &ConsumerRegistry{
		handlers: make(map[string]ConsumerHandler),
	}
}

// Register adds a handler; names must be unique.
func (r *ConsumerRegistry) Register(handler ConsumerHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if handler.Name() == "" {
		return fmt.Errorf("handler name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[handler.Name()]; exists {
		return fmt.Errorf("consumer handler %s already registered", handler.Name())
	}

	r.handlers[handler.Name()] = handler
	return nil
}

// MustRegister registers and panics on failure.
func (r *ConsumerRegistry) MustRegister(handler ConsumerHandler) {
	if err := r.Register(handler); err != nil {
		panic(err)
	}
}

// Get returns a handler by name.
func (r *ConsumerRegistry) Get(name string) (ConsumerHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[name]
	return handler, ok
}

// All returns every registered handler.
func (r *ConsumerRegistry) All() []ConsumerHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlers := make([]ConsumerHandler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	return handlers
}

// Names returns every registered handler name.
func (r *ConsumerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered handlers.
func (r *ConsumerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Unregister removes a handler, reporting whether it existed.
func (r *ConsumerRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		delete(r.handlers, name)
		return true
	}
	return false
}

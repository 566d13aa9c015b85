package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerHandler is what the application layer implements; the runner
// owns queue setup, the delivery loop and lifecycle.
type ConsumerHandler interface {
	// Name identifies the consumer in logs and the registry.
	Name() string

	// Queue is the durable queue this consumer drains.
	Queue() string

	// Bindings are the routing-key patterns the queue binds under.
	Bindings() []string

	// Handle processes one delivery; see MessageHandler for the error
	// contract.
	Handle(ctx context.Context, msg *amqp.Delivery) error
}

// ConsumerHandlerFunc adapts a function to ConsumerHandler for consumers
// that need no dependency injection.
type ConsumerHandlerFunc struct {
	name     string
	queue    string
	bindings []string
	handler  MessageHandler
}

// NewConsumerHandlerFunc creates a functional handler.
func NewConsumerHandlerFunc(name, queue string, bindings []string, handler MessageHandler) *ConsumerHandlerFunc {
	return &ConsumerHandlerFunc{
		name:     name,
		queue:    queue,
		bindings: bindings,
		handler:  handler,
	}
}

// Name returns the consumer name.
func (h *ConsumerHandlerFunc) Name() string {
	return h.name
}

// Queue returns the queue name.
func (h *ConsumerHandlerFunc) Queue() string {
	return h.queue
}

// Bindings returns the routing-key patterns.
func (h *ConsumerHandlerFunc) Bindings() []string {
	return h.bindings
}

// Handle delegates to the wrapped function.
func (h *ConsumerHandlerFunc) Handle(ctx context.Context, msg *amqp.Delivery) error {
	if h.handler == nil {
		return nil
	}
	return h.handler(ctx, msg)
}

var _ ConsumerHandler = (*ConsumerHandlerFunc)(nil)

package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/KOMKZ/go-aegis-framework/errcode"
	"github.com/KOMKZ/go-aegis-framework/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageHandler processes one delivery. Returning nil acknowledges the
// message. Returning an error wrapping MessageMalformed rejects it without
// requeue (the payload can never parse, redelivery would poison-loop).
// Any other error follows the consumer's requeue-on-error policy.
type MessageHandler func(ctx context.Context, msg *amqp.Delivery) error

// Consumer drains one durable queue bound to the topic exchange.
//
// A single delivery loop per consumer preserves per-queue ordering.
// Acknowledgement is always manual.
type Consumer struct {
	name           string
	channel        Channel
	exchange       string
	config         ConsumerConfig
	deadLetterArgs amqp.Table
	logger         *logger.CtxZapLogger

	handler MessageHandler
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func newConsumer(name string, ch Channel, exchange string, cfg ConsumerConfig, dlArgs amqp.Table, log *logger.CtxZapLogger) *Consumer {
	return &Consumer{
		name:           name,
		channel:        ch,
		exchange:       exchange,
		config:         cfg,
		deadLetterArgs: dlArgs,
		logger:         log.With(zap.String("consumer", name)),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start declares the queue, binds it and begins consuming.
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer is already running")
	}
	c.running = true
	c.handler = handler
	c.mu.Unlock()

	deliveries, err := c.declareAndConsume()
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return err
	}

	go c.consumeLoop(ctx, deliveries)

	c.logger.InfoCtx(ctx, "✅ Consumer started",
		zap.String("queue", c.config.Queue),
		zap.Strings("bindings", c.config.Bindings),
		zap.Int("prefetch", c.config.Prefetch))
	return nil
}

// declareAndConsume sets up the queue topology and opens the delivery
// stream. Declarations are idempotent so restarts are safe.
func (c *Consumer) declareAndConsume() (<-chan amqp.Delivery, error) {
	if _, err := c.channel.QueueDeclare(c.config.Queue, true, false, false, false, c.deadLetterArgs); err != nil {
		return nil, fmt.Errorf("declare queue %s failed: %w", c.config.Queue, err)
	}

	for _, key := range c.config.Bindings {
		if err := c.channel.QueueBind(c.config.Queue, key, c.exchange, false, nil); err != nil {
			return nil, fmt.Errorf("bind %s to %s with key %s failed: %w", c.config.Queue, c.exchange, key, err)
		}
	}

	if err := c.channel.Qos(c.config.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos failed: %w", err)
	}

	deliveries, err := c.channel.Consume(c.config.Queue, c.name, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume from %s failed: %w", c.config.Queue, err)
	}
	return deliveries, nil
}

// consumeLoop is the single delivery loop.
func (c *Consumer) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(c.doneCh)

	for {
		select {
		case <-c.stopCh:
			c.logger.DebugCtx(ctx, "consumer loop stopped by signal")
			return
		case <-ctx.Done():
			c.logger.DebugCtx(ctx, "consumer loop stopped by context")
			return
		case msg, ok := <-deliveries:
			if !ok {
				c.logger.WarnCtx(ctx, "delivery channel closed by broker")
				return
			}
			c.handleDelivery(ctx, &msg)
		}
	}
}

// handleDelivery applies the ack policy around the handler.
func (c *Consumer) handleDelivery(ctx context.Context, msg *amqp.Delivery) {
	err := c.handler(ctx, msg)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			c.logger.ErrorCtx(ctx, "ack failed",
				zap.String("routing_key", msg.RoutingKey),
				zap.Error(ackErr))
		}
		return
	}

	if errors.Is(err, errcode.ErrMessageMalformed) {
		// Never requeue a payload that cannot parse: it would redeliver
		// forever. Dead-letters when the queue declares a DLX, otherwise
		// the message is dropped.
		c.logger.WarnCtx(ctx, "⛔ Malformed message rejected without requeue",
			zap.String("routing_key", msg.RoutingKey),
			zap.Uint64("delivery_tag", msg.DeliveryTag),
			zap.Error(err))
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.ErrorCtx(ctx, "nack failed", zap.Error(nackErr))
		}
		return
	}

	c.logger.ErrorCtx(ctx, "handle message failed",
		zap.String("routing_key", msg.RoutingKey),
		zap.Bool("requeue", c.config.RequeueOnError),
		zap.Error(err))
	if nackErr := msg.Nack(false, c.config.RequeueOnError); nackErr != nil {
		c.logger.ErrorCtx(ctx, "nack failed", zap.Error(nackErr))
	}
}

// Stop ends the delivery loop and closes the channel.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	close(c.stopCh)
	<-c.doneCh

	if err := c.channel.Close(); err != nil {
		return fmt.Errorf("close consumer channel failed: %w", err)
	}

	c.logger.Info("consumer stopped", zap.String("queue", c.config.Queue))
	return nil
}

// IsRunning reports whether the loop is active.
func (c *Consumer) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Name returns the consumer name.
func (c *Consumer) Name() string {
	return c.name
}

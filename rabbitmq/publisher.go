package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/KOMKZ/go-aegis-framework/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher publishes messages to the topic exchange on its own channel.
//
// Messages are marked persistent so durable queues keep them across broker
// restarts. Publish errors are returned to the caller; the best-effort
// swallowing the event layer promises happens one layer up, not here.
type Publisher struct {
	channel  Channel
	exchange string
	config   PublisherConfig
	logger   *logger.CtxZapLogger

	mu     sync.RWMutex
	closed bool
}

func newPublisher(ch Channel, exchange string, cfg PublisherConfig, log *logger.CtxZapLogger) *Publisher {
	return &Publisher{
		channel:  ch,
		exchange: exchange,
		config:   cfg,
		logger:   log,
	}
}

// Publish sends body under routingKey with the given content type.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte, contentType string) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	if routingKey == "" {
		return fmt.Errorf("routing key cannot be empty")
	}

	deliveryMode := amqp.Persistent
	if p.config.Transient {
		deliveryMode = amqp.Transient
	}

	err := p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		p.config.Mandatory,
		false,
		amqp.Publishing{
			ContentType:  contentType,
			DeliveryMode: deliveryMode,
			Body:         body,
		})
	if err != nil {
		p.logger.ErrorCtx(ctx, "publish failed",
			zap.String("exchange", p.exchange),
			zap.String("routing_key", routingKey),
			zap.Error(err))
		return fmt.Errorf("publish to %s failed: %w", routingKey, err)
	}

	p.logger.DebugCtx(ctx, "message published",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", routingKey),
		zap.Int("bytes", len(body)))
	return nil
}

// PublishJSON marshals value and publishes it as application/json.
func (p *Publisher) PublishJSON(ctx context.Context, routingKey string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal json failed: %w", err)
	}
	return p.Publish(ctx, routingKey, data, "application/json")
}

// Close releases the publisher channel.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.channel.Close()
}

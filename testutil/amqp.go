package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/KOMKZ/go-aegis-framework/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// In-memory broker fakes. FakeChannel records every declaration and publish
// and feeds scripted deliveries, so consumer and publisher behavior is
// testable without a live broker.

// ExchangeDeclaration records one ExchangeDeclare call.
type ExchangeDeclaration struct {
	Name    string
	Kind    string
	Durable bool
	Args    amqp.Table
}

// QueueDeclaration records one QueueDeclare call.
type QueueDeclaration struct {
	Name    string
	Durable bool
	Args    amqp.Table
}

// QueueBinding records one QueueBind call.
type QueueBinding struct {
	Queue    string
	Key      string
	Exchange string
}

// PublishedMessage records one PublishWithContext call.
type PublishedMessage struct {
	Exchange  string
	Key       string
	Mandatory bool
	Msg       amqp.Publishing
}

// FakeChannel is an in-memory rabbitmq.Channel.
type FakeChannel struct {
	mu sync.Mutex

	Exchanges []ExchangeDeclaration
	Queues    []QueueDeclaration
	Bindings  []QueueBinding
	Published []PublishedMessage

	PrefetchCount int
	ConsumerTag   string

	// Scripted errors, returned by the matching method when set.
	ExchangeDeclareErr error
	QueueDeclareErr    error
	QueueBindErr       error
	QosErr             error
	ConsumeErr         error
	PublishErr         error

	deliveries chan amqp.Delivery
	closeOnce  sync.Once
	closed     bool
}

// NewFakeChannel creates a fake channel with a buffered delivery stream.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{
		deliveries: make(chan amqp.Delivery, 16),
	}
}

func (c *FakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ExchangeDeclareErr != nil {
		return c.ExchangeDeclareErr
	}
	c.Exchanges = append(c.Exchanges, ExchangeDeclaration{Name: name, Kind: kind, Durable: durable, Args: args})
	return nil
}

func (c *FakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.QueueDeclareErr != nil {
		return amqp.Queue{}, c.QueueDeclareErr
	}
	c.Queues = append(c.Queues, QueueDeclaration{Name: name, Durable: durable, Args: args})
	return amqp.Queue{Name: name}, nil
}

func (c *FakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.QueueBindErr != nil {
		return c.QueueBindErr
	}
	c.Bindings = append(c.Bindings, QueueBinding{Queue: name, Key: key, Exchange: exchange})
	return nil
}

func (c *FakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.QosErr != nil {
		return c.QosErr
	}
	c.PrefetchCount = prefetchCount
	return nil
}

func (c *FakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ConsumeErr != nil {
		return nil, c.ConsumeErr
	}
	c.ConsumerTag = consumer
	return c.deliveries, nil
}

func (c *FakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PublishErr != nil {
		return c.PublishErr
	}
	c.Published = append(c.Published, PublishedMessage{Exchange: exchange, Key: key, Mandatory: mandatory, Msg: msg})
	return nil
}

func (c *FakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.deliveries) })
	return nil
}

// Deliver feeds one delivery into the consume stream.
func (c *FakeChannel) Deliver(d amqp.Delivery) {
	c.deliveries <- d
}

// CloseDeliveries simulates a broker-side consumer cancel.
func (c *FakeChannel) CloseDeliveries() {
	c.closeOnce.Do(func() { close(c.deliveries) })
}

// IsClosed reports whether Close was called.
func (c *FakeChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LastPublished returns the most recent publish, nil when none happened.
func (c *FakeChannel) LastPublished() *PublishedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Published) == 0 {
		return nil
	}
	msg := c.Published[len(c.Published)-1]
	return &msg
}

// FakeConnection hands out fake channels and tracks them for inspection.
type FakeConnection struct {
	mu       sync.Mutex
	channels []*FakeChannel

	ChannelErr error
	closed     bool
}

// NewFakeConnection creates a fake connection.
func NewFakeConnection() *FakeConnection {
	return &FakeConnection{}
}

func (c *FakeConnection) Channel() (rabbitmq.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ChannelErr != nil {
		return nil, c.ChannelErr
	}
	ch := NewFakeChannel()
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *FakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *FakeConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Channels returns every channel opened so far, in creation order.
func (c *FakeConnection) Channels() []*FakeChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*FakeChannel, len(c.channels))
	copy(out, c.channels)
	return out
}

// DialScript scripts connection attempts: the first Failures dials fail,
// later ones hand out the same FakeConnection. Attempts counts every dial.
type DialScript struct {
	mu sync.Mutex

	Failures int
	Err      error

	Attempts int
	URLs     []string
	Conn     *FakeConnection
}

// Dialer returns a rabbitmq.Dialer driven by the script.
func (s *DialScript) Dialer() rabbitmq.Dialer {
	return func(url string) (rabbitmq.Connection, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.Attempts++
		s.URLs = append(s.URLs, url)
		if s.Attempts <= s.Failures {
			if s.Err != nil {
				return nil, s.Err
			}
			return nil, errors.New("connection refused")
		}
		if s.Conn == nil {
			s.Conn = NewFakeConnection()
		}
		return s.Conn, nil
	}
}

// NackCall records one Nack with its requeue decision.
type NackCall struct {
	Tag     uint64
	Requeue bool
}

// FakeAcknowledger records Ack/Nack/Reject calls so tests can assert the
// acknowledgement policy. Implements amqp091.Acknowledger.
type FakeAcknowledger struct {
	mu      sync.Mutex
	Acks    []uint64
	Nacks   []NackCall
	Rejects []NackCall
}

func (a *FakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Acks = append(a.Acks, tag)
	return nil
}

func (a *FakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Nacks = append(a.Nacks, NackCall{Tag: tag, Requeue: requeue})
	return nil
}

func (a *FakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Rejects = append(a.Rejects, NackCall{Tag: tag, Requeue: requeue})
	return nil
}

// Counts returns the recorded ack and nack totals.
func (a *FakeAcknowledger) Counts() (acks, nacks int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Acks), len(a.Nacks)
}

// NewDelivery builds a delivery wired to the given acknowledger.
func NewDelivery(ack *FakeAcknowledger, tag uint64, routingKey string, body []byte) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  tag,
		RoutingKey:   routingKey,
		ContentType:  "application/json",
		Body:         body,
	}
}

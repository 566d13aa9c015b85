package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KOMKZ/go-aegis-framework/errcode"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"github.com/KOMKZ/go-aegis-framework/retry"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Manager owns the broker connection and hands out publishers and consumers.
//
// Connect is the connection supervisor: it dials with bounded exponential
// backoff and jitter, and exhaustion is fatal to the owning process: the
// returned BrokerUnreachable error is meant to propagate to the entry point
// so an external supervisor restarts it.
type Manager struct {
	config Config
	logger *logger.CtxZapLogger
	dialer Dialer

	conn      Connection
	publisher *Publisher
	consumers map[string]*Consumer

	mu     sync.RWMutex
	closed bool
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithDialer replaces the production dialer, used by tests to script
// connection outcomes.
func WithDialer(d Dialer) ManagerOption {
	return func(m *Manager) {
		m.dialer = d
	}
}

// NewManager creates a broker manager.
func NewManager(cfg Config, log *logger.CtxZapLogger, opts ...ManagerOption) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	m := &Manager{
		config:    cfg,
		logger:    log,
		dialer:    defaultDialer,
		consumers: make(map[string]*Consumer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Connect dials the broker under supervisor policy: up to MaxAttempts
// dials, delay doubling from BaseDelay with additive jitter, capped at
// MaxDelay. Returns BrokerUnreachable once attempts are exhausted.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("manager is closed")
	}
	if m.conn != nil && !m.conn.IsClosed() {
		return nil
	}

	sup := m.config.Supervisor
	backoff := retry.ExponentialBackoff(sup.BaseDelay,
		retry.WithMultiplier(2),
		retry.WithMaxDelay(sup.MaxDelay),
		retry.WithJitter(sup.Jitter),
	)

	var lastErr error
	for attempt := 1; attempt <= sup.MaxAttempts; attempt++ {
		conn, err := m.dialer(m.config.AMQPURL())
		if err == nil {
			m.conn = conn
			m.logger.InfoCtx(ctx, "✅ Message broker connected",
				zap.String("exchange", m.config.Exchange.Name),
				zap.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		if attempt == sup.MaxAttempts {
			break
		}

		delay := backoff.Next(attempt)
		m.logger.WarnCtx(ctx, "⛔ Broker dial failed, will retry",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", sup.MaxAttempts),
			zap.Duration("next_delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	m.logger.ErrorCtx(ctx, "❌ Broker unreachable, supervisor attempts exhausted",
		zap.Int("attempts", sup.MaxAttempts),
		zap.Error(lastErr))
	return errcode.ErrBrokerUnreachable.Wrap(lastErr)
}

// DeclareTopology declares the topic exchange and, when enabled, the
// dead-letter exchange and queue. Declarations are idempotent.
func (m *Manager) DeclareTopology(ctx context.Context) error {
	ch, err := m.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	ex := m.config.Exchange
	if err := ch.ExchangeDeclare(ex.Name, ex.Type, ex.Durable, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s failed: %w", ex.Name, err)
	}

	if m.config.DeadLetter.Enabled {
		if err := DeclareDeadLetterTopology(ch, m.config.DeadLetter); err != nil {
			return err
		}
	}

	m.logger.InfoCtx(ctx, "✅ Broker topology declared",
		zap.String("exchange", ex.Name),
		zap.String("type", ex.Type),
		zap.Bool("dead_letter", m.config.DeadLetter.Enabled))
	return nil
}

// NewPublisher opens a dedicated channel and wraps it in a Publisher.
func (m *Manager) NewPublisher() (*Publisher, error) {
	ch, err := m.Channel()
	if err != nil {
		return nil, err
	}
	return newPublisher(ch, m.config.Exchange.Name, m.config.Publisher, m.logger), nil
}

// GetPublisher returns the shared publisher, creating it on first use.
func (m *Manager) GetPublisher() (*Publisher, error) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	if p != nil {
		return p, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publisher == nil {
		ch, err := m.channelLocked()
		if err != nil {
			return nil, err
		}
		m.publisher = newPublisher(ch, m.config.Exchange.Name, m.config.Publisher, m.logger)
	}
	return m.publisher, nil
}

// CreateConsumer builds a consumer on its own channel. Names must be unique
// per manager.
func (m *Manager) CreateConsumer(name string, cfg ConsumerConfig) (*Consumer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("manager is closed")
	}
	if _, exists := m.consumers[name]; exists {
		return nil, fmt.Errorf("consumer %s already exists", name)
	}

	cfg = m.config.withDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("consumer config invalid: %w", err)
	}

	ch, err := m.channelLocked()
	if err != nil {
		return nil, err
	}

	consumer := newConsumer(name, ch, m.config.Exchange.Name, cfg, m.deadLetterArgs(), m.logger)
	m.consumers[name] = consumer
	return consumer, nil
}

// GetConsumer returns a consumer by name, nil when absent.
func (m *Manager) GetConsumer(name string) *Consumer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.consumers[name]
}

// Channel opens a raw channel on the supervised connection.
func (m *Manager) Channel() (Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channelLocked()
}

func (m *Manager) channelLocked() (Channel, error) {
	if m.conn == nil {
		return nil, fmt.Errorf("not connected, call Connect first")
	}
	if m.conn.IsClosed() {
		return nil, fmt.Errorf("connection is closed")
	}
	return m.conn.Channel()
}

// deadLetterArgs returns the queue arguments consumers declare with when
// dead-lettering is enabled, nil otherwise.
func (m *Manager) deadLetterArgs() amqp.Table {
	if !m.config.DeadLetter.Enabled {
		return nil
	}
	return DeadLetterArgs(m.config.DeadLetter.Exchange)
}

// Ping verifies connection liveness by opening and closing a channel,
// bounded at 5 seconds.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("manager is closed")
	}
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}
	if conn.IsClosed() {
		return fmt.Errorf("connection is closed")
	}

	done := make(chan error, 1)
	go func() {
		ch, err := conn.Channel()
		if err != nil {
			done <- fmt.Errorf("open channel failed: %w", err)
			return
		}
		done <- ch.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("ping timeout")
	}
}

// GetConfig returns the effective configuration.
func (m *Manager) GetConfig() Config {
	return m.config
}

// Close stops consumers, closes the publisher channel and the connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error

	for name, consumer := range m.consumers {
		if err := consumer.Stop(); err != nil {
			m.logger.Error("close consumer failed",
				zap.String("name", name),
				zap.Error(err))
			errs = append(errs, err)
		}
	}

	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			m.logger.Error("close publisher failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if m.conn != nil && !m.conn.IsClosed() {
		if err := m.conn.Close(); err != nil {
			m.logger.Error("close connection failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close manager with %d errors", len(errs))
	}

	m.logger.Info("✅ Broker manager closed")
	return nil
}

// Shutdown implements the samber/do Shutdownable convention.
func (m *Manager) Shutdown() error {
	return m.Close()
}

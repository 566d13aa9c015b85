package rabbitmq

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConsumerRunnerConfig tunes one handler's runtime.
type ConsumerRunnerConfig struct {
	// Workers is the number of concurrent consumers on the queue
	// (default 1). More than one worker trades per-queue ordering for
	// throughput.
	Workers int

	// Prefetch overrides the manager default when > 0.
	Prefetch int

	// RequeueOnError overrides the manager default.
	RequeueOnError bool
}

func (c *ConsumerRunnerConfig) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
}

// ConsumerRunner drives one handler: worker management, signal handling
// and lifecycle control.
type ConsumerRunner struct {
	manager *Manager
	handler ConsumerHandler
	config  ConsumerRunnerConfig
	logger  *zap.Logger

	consumers []*Consumer
	wg        sync.WaitGroup
	cancel    context.CancelFunc
	mu        sync.RWMutex
	running   bool
}

// NewConsumerRunner creates a runner for handler.
func NewConsumerRunner(manager *Manager, handler ConsumerHandler, cfg ConsumerRunnerConfig) *ConsumerRunner {
	cfg.applyDefaults()

	return &ConsumerRunner{
		manager: manager,
		handler: handler,
		config:  cfg,
		logger:  manager.logger.GetZapLogger().With(zap.String("consumer", handler.Name())),
	}
}

// Run starts the workers and blocks until SIGINT/SIGTERM or context
// cancellation, then stops gracefully.
func (r *ConsumerRunner) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	r.logger.Info("📡 Consumer running, waiting for messages (Ctrl+C to exit)",
		zap.String("queue", r.handler.Queue()),
		zap.Strings("bindings", r.handler.Bindings()),
		zap.Int("workers", r.config.Workers))

	select {
	case sig := <-sigCh:
		r.logger.Info("🛑 Received exit signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		r.logger.Info("🛑 Context cancelled")
	}

	return r.Stop()
}

// Start launches the workers without blocking.
func (r *ConsumerRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("consumer runner is already running")
	}
	r.running = true
	r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	consumerCfg := ConsumerConfig{
		Queue:          r.handler.Queue(),
		Bindings:       r.handler.Bindings(),
		Prefetch:       r.config.Prefetch,
		RequeueOnError: r.config.RequeueOnError,
	}

	r.consumers = make([]*Consumer, r.config.Workers)
	for i := 0; i < r.config.Workers; i++ {
		workerID := i + 1
		consumerName := r.handler.Name()
		if r.config.Workers > 1 {
			consumerName = fmt.Sprintf("%s-worker-%d", r.handler.Name(), workerID)
		}

		consumer, err := r.manager.CreateConsumer(consumerName, consumerCfg)
		if err != nil {
			r.cleanupConsumers()
			cancel()
			return fmt.Errorf("create consumer %s failed: %w", consumerName, err)
		}

		r.consumers[i] = consumer
		r.wg.Add(1)
		go r.runWorker(runCtx, workerID, consumer)
	}

	r.logger.Info("🚀 Consumer runner started",
		zap.String("queue", r.handler.Queue()),
		zap.Int("workers", r.config.Workers),
		zap.Strings("bindings", r.handler.Bindings()))

	return nil
}

// runWorker starts one consumer and waits for its loop to end.
func (r *ConsumerRunner) runWorker(ctx context.Context, workerID int, consumer *Consumer) {
	defer r.wg.Done()

	handler := func(ctx context.Context, msg *amqp.Delivery) error {
		return r.handler.Handle(ctx, msg)
	}

	if err := consumer.Start(ctx, handler); err != nil {
		r.logger.Error("worker start failed",
			zap.Int("worker_id", workerID),
			zap.Error(err))
		return
	}

	<-consumer.doneCh
}

// Stop shuts the workers down and waits for them.
func (r *ConsumerRunner) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	r.logger.Info("🛑 Stopping consumer runner...")

	if r.cancel != nil {
		r.cancel()
	}

	r.cleanupConsumers()
	r.wg.Wait()

	r.logger.Info("✅ Consumer runner stopped", zap.String("name", r.handler.Name()))
	return nil
}

func (r *ConsumerRunner) cleanupConsumers() {
	for i, consumer := range r.consumers {
		if consumer != nil {
			if err := consumer.Stop(); err != nil {
				r.logger.Error("stop consumer failed",
					zap.Int("worker_id", i+1),
					zap.Error(err))
			}
		}
	}
}

// IsRunning reports whether the runner is active.
func (r *ConsumerRunner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// GetConfig returns the effective runner configuration.
func (r *ConsumerRunner) GetConfig() ConsumerRunnerConfig {
	return r.config
}

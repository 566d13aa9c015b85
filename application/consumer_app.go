package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/rabbitmq"
)

// ConsumerApplication runs registered message handlers against the
// broker: BaseApplication plus one ConsumerRunner per handler. The
// rabbitmq component must be registered before Run.
type ConsumerApplication struct {
	*BaseApplication

	specs   []consumerSpec
	runners []*rabbitmq.ConsumerRunner
}

type consumerSpec struct {
	handler rabbitmq.ConsumerHandler
	config  rabbitmq.ConsumerRunnerConfig
}

// NewConsumer creates a consumer application.
func NewConsumer(configPath, envPrefix string) *ConsumerApplication {
	if envPrefix == "" {
		envPrefix = "APP"
	}

	return &ConsumerApplication{
		BaseApplication: NewBase(configPath, envPrefix),
	}
}

// RegisterHandler adds a handler with the default runner configuration
// (one worker, manager prefetch).
func (a *ConsumerApplication) RegisterHandler(handler rabbitmq.ConsumerHandler) *ConsumerApplication {
	return a.RegisterHandlerWithConfig(handler, rabbitmq.ConsumerRunnerConfig{})
}

// RegisterHandlerWithConfig adds a handler with its own runner tuning.
func (a *ConsumerApplication) RegisterHandlerWithConfig(handler rabbitmq.ConsumerHandler, cfg rabbitmq.ConsumerRunnerConfig) *ConsumerApplication {
	a.specs = append(a.specs, consumerSpec{handler: handler, config: cfg})
	return a
}

// RegisterFromRegistry adds every handler held by the registry.
func (a *ConsumerApplication) RegisterFromRegistry(registry *rabbitmq.ConsumerRegistry) *ConsumerApplication {
	for _, handler := range registry.All() {
		a.RegisterHandler(handler)
	}
	return a
}

// Run starts all consumers and blocks until a shutdown signal.
func (a *ConsumerApplication) Run() error {
	if err := a.RunNonBlocking(); err != nil {
		return err
	}

	a.WaitShutdown()

	return a.gracefulShutdown()
}

// RunNonBlocking performs the full startup without waiting for signals.
func (a *ConsumerApplication) RunNonBlocking() error {
	if len(a.specs) == 0 {
		return fmt.Errorf("no consumer handlers registered")
	}

	if err := a.Setup(); err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	mqComp, ok := component.GetTyped[*rabbitmq.Component](a.registry, component.ComponentRabbitMQ)
	if !ok {
		return fmt.Errorf("rabbitmq component not registered, consumer application cannot run")
	}
	manager := mqComp.GetManager()
	if manager == nil {
		return fmt.Errorf("rabbitmq manager not initialized")
	}

	log := a.MustGetLogger()

	for _, spec := range a.specs {
		runner := rabbitmq.NewConsumerRunner(manager, spec.handler, spec.config)
		if err := runner.Start(a.ctx); err != nil {
			a.stopRunners()
			return fmt.Errorf("start consumer %s: %w", spec.handler.Name(), err)
		}
		a.runners = append(a.runners, runner)
	}

	a.setState(StateRunning)
	if a.onReady != nil {
		if err := a.onReady(a.BaseApplication); err != nil {
			return fmt.Errorf("onReady failed: %w", err)
		}
	}

	names := make([]string, 0, len(a.specs))
	for _, spec := range a.specs {
		names = append(names, spec.handler.Name())
	}
	log.InfoCtx(a.ctx, "✅ Consumer application started",
		zap.Strings("consumers", names),
		zap.Int64("startup_time_ms", a.GetStartupTimeMs()))

	return nil
}

// gracefulShutdown stops consumers before the components so in-flight
// deliveries finish while their dependencies are still up.
func (a *ConsumerApplication) gracefulShutdown() error {
	log := a.MustGetLogger()
	log.DebugCtx(a.ctx, "Starting consumer application graceful shutdown...")

	a.stopRunners()

	return a.BaseApplication.Shutdown(10 * time.Second)
}

func (a *ConsumerApplication) stopRunners() {
	for i := len(a.runners) - 1; i >= 0; i-- {
		if err := a.runners[i].Stop(); err != nil && a.logger != nil {
			a.logger.ErrorCtx(a.ctx, "consumer runner stop failed", zap.Error(err))
		}
	}
	a.runners = nil
}

// Runners exposes the active runners, mainly for tests.
func (a *ConsumerApplication) Runners() []*rabbitmq.ConsumerRunner {
	return a.runners
}

// Shutdown triggers a graceful stop programmatically.
func (a *ConsumerApplication) Shutdown() {
	a.Cancel()
}

// OnSetup registers the post-start callback (chainable).
func (a *ConsumerApplication) OnSetup(fn func(*ConsumerApplication) error) *ConsumerApplication {
	a.BaseApplication.OnSetup(func(base *BaseApplication) error {
		return fn(a)
	})
	return a
}

// OnReady registers the consuming callback (chainable).
func (a *ConsumerApplication) OnReady(fn func(*ConsumerApplication) error) *ConsumerApplication {
	a.BaseApplication.OnReady(func(base *BaseApplication) error {
		return fn(a)
	})
	return a
}

// OnShutdown registers the pre-stop callback (chainable).
func (a *ConsumerApplication) OnShutdown(fn func(*ConsumerApplication) error) *ConsumerApplication {
	a.BaseApplication.OnShutdown(func(ctx context.Context) error {
		return fn(a)
	})
	return a
}

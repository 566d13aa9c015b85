// Package application provides the application bootstrap: layered
// configuration, logging, a component registry with ordered lifecycle,
// and signal-driven shutdown. HTTP, consumer, CLI and cron application
// types compose BaseApplication and add their own run loop.
package application

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/config"
	"github.com/KOMKZ/go-aegis-framework/logger"
)

// BaseApplication carries the lifecycle shared by every application
// type: config and logger come up first, registered components follow
// in dependency order, shutdown runs in reverse.
type BaseApplication struct {
	registry   *component.StandardRegistry
	configComp *ConfigComponent
	loggerComp *LoggerComponent

	appConfig *AppConfig
	logger    *logger.CtxZapLogger

	ctx    context.Context
	cancel context.CancelFunc
	state  AppState
	mu     sync.RWMutex

	version   string
	createdAt time.Time

	onSetup    func(*BaseApplication) error
	onReady    func(*BaseApplication) error
	onShutdown func(context.Context) error
}

// AppState is the application lifecycle position.
type AppState int

const (
	StateInit AppState = iota
	StateSetup
	StateRunning
	StateStopping
	StateStopped
)

func (s AppState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateSetup:
		return "Setup"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// NewBase creates a base application reading configuration from
// configPath (config.yaml + <env>.yaml) with envPrefix for environment
// variable overrides.
func NewBase(configPath, envPrefix string) *BaseApplication {
	ctx, cancel := context.WithCancel(context.Background())

	registry := component.NewRegistry()
	configComp := NewConfigComponent(configPath, envPrefix)
	loggerComp := NewLoggerComponent()
	registry.MustRegister(configComp)
	registry.MustRegister(loggerComp)

	return &BaseApplication{
		registry:   registry,
		configComp: configComp,
		loggerComp: loggerComp,
		ctx:        ctx,
		cancel:     cancel,
		state:      StateInit,
		createdAt:  time.Now(),
	}
}

// WithVersion records the application version, logged at startup.
func (b *BaseApplication) WithVersion(version string) *BaseApplication {
	b.version = version
	return b
}

// GetVersion returns the application version.
func (b *BaseApplication) GetVersion() string {
	return b.version
}

// RegisterComponent adds a component to the lifecycle registry.
// Must be called before Setup.
func (b *BaseApplication) RegisterComponent(comp component.Component) error {
	return b.registry.Register(comp)
}

// MustRegisterComponent registers a component and panics on failure.
func (b *BaseApplication) MustRegisterComponent(comp component.Component) {
	b.registry.MustRegister(comp)
}

// Setup initializes and starts all registered components in dependency
// order, then runs the OnSetup callback.
func (b *BaseApplication) Setup() error {
	b.setState(StateSetup)

	if err := b.registry.Init(b.ctx); err != nil {
		return fmt.Errorf("initialize components: %w", err)
	}

	// The logger manager exists after the logger component's Init; from
	// here on the rest of the lifecycle is logged.
	b.logger = b.loggerComp.GetLogger()
	b.appConfig = b.configComp.GetAppConfig()
	b.registry.SetLogger(b.logger.GetZapLogger())

	b.wireAfterInit(b.ctx)

	if err := b.registry.Start(b.ctx); err != nil {
		return fmt.Errorf("start components: %w", err)
	}

	b.wireAfterStart(b.ctx)

	if b.onSetup != nil {
		if err := b.onSetup(b); err != nil {
			return fmt.Errorf("onSetup callback: %w", err)
		}
	}

	return nil
}

// Shutdown stops all components in reverse order within timeout. Safe
// to call before Setup; there is just nothing to stop yet.
func (b *BaseApplication) Shutdown(timeout time.Duration) error {
	b.setState(StateStopping)

	log := b.log()
	log.DebugCtx(b.ctx, "🔻 Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if b.onShutdown != nil {
		if err := b.onShutdown(ctx); err != nil {
			log.ErrorCtx(ctx, "OnShutdown callback failed", zap.Error(err))
		}
	}

	if err := b.registry.Stop(ctx); err != nil {
		log.ErrorCtx(ctx, "component registry stop failed", zap.Error(err))
	}

	b.setState(StateStopped)
	return nil
}

// WaitShutdown blocks until SIGINT/SIGTERM or context cancellation.
// A second signal forces immediate exit.
func (b *BaseApplication) WaitShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log := b.log()

	select {
	case sig := <-quit:
		log.InfoCtx(b.ctx, "Shutdown signal received", zap.String("signal", sig.String()))
		b.cancel()

		go func() {
			sig := <-quit
			log.WarnCtx(context.Background(), "⚠️ Second signal received, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		}()

	case <-b.ctx.Done():
		log.DebugCtx(context.Background(), "Context cancelled, starting graceful shutdown")
	}
}

// Cancel triggers shutdown programmatically, for tests and controlled
// restarts.
func (b *BaseApplication) Cancel() {
	b.cancel()
}

// OnSetup registers a callback run after all components started.
func (b *BaseApplication) OnSetup(fn func(*BaseApplication) error) *BaseApplication {
	b.onSetup = fn
	return b
}

// OnReady registers a callback run once the application is serving.
func (b *BaseApplication) OnReady(fn func(*BaseApplication) error) *BaseApplication {
	b.onReady = fn
	return b
}

// OnShutdown registers a cleanup callback run before components stop.
func (b *BaseApplication) OnShutdown(fn func(context.Context) error) *BaseApplication {
	b.onShutdown = fn
	return b
}

// MustGetLogger returns the application logger, panicking before Setup.
func (b *BaseApplication) MustGetLogger() *logger.CtxZapLogger {
	if b.logger == nil {
		panic("logger not initialized, call Setup() first")
	}
	return b.logger
}

// log returns the application logger, falling back to the default
// manager before Setup so shutdown paths never panic.
func (b *BaseApplication) log() *logger.CtxZapLogger {
	if b.logger != nil {
		return b.logger
	}
	return logger.GetLogger("aegis")
}

// GetConfigLoader returns the merged configuration loader.
func (b *BaseApplication) GetConfigLoader() *config.Loader {
	return b.configComp.GetLoader()
}

// GetConfigComponent returns the config component, which implements
// component.ConfigLoader for key-based section decoding.
func (b *BaseApplication) GetConfigComponent() *ConfigComponent {
	return b.configComp
}

// GetRegistry returns the component registry.
func (b *BaseApplication) GetRegistry() *component.StandardRegistry {
	return b.registry
}

// GetComponent returns a registered component by name.
func (b *BaseApplication) GetComponent(name string) (component.Component, bool) {
	return b.registry.Get(name)
}

// GetState returns the lifecycle state.
func (b *BaseApplication) GetState() AppState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Context returns the application root context, cancelled on shutdown.
func (b *BaseApplication) Context() context.Context {
	return b.ctx
}

// GetStartupTimeMs returns the milliseconds between construction and now,
// logged once the application reaches Running.
func (b *BaseApplication) GetStartupTimeMs() int64 {
	return time.Since(b.createdAt).Milliseconds()
}

func (b *BaseApplication) setState(state AppState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldState := b.state
	b.state = state

	if b.logger != nil {
		b.logger.DebugCtx(b.ctx, "State changed",
			zap.String("from", oldState.String()),
			zap.String("to", state.String()))
	}
}

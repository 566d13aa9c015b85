package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/KOMKZ/go-aegis-framework/health"
	"github.com/KOMKZ/go-aegis-framework/telemetry"
)

// Application is the HTTP application: BaseApplication plus a gin
// server whose routes come from registered RouterRegistrars.
type Application struct {
	*BaseApplication

	httpServer    *HTTPServer
	routerManager *routerManager
}

// New creates an HTTP application reading configuration from configPath
// with envPrefix for environment overrides.
func New(configPath, envPrefix string) *Application {
	if configPath == "" {
		configPath = "../configs"
	}
	if envPrefix == "" {
		envPrefix = "APP"
	}

	return &Application{
		BaseApplication: NewBase(configPath, envPrefix),
		routerManager:   newRouterManager(),
	}
}

// WithVersion sets the application version (chainable).
func (a *Application) WithVersion(version string) *Application {
	a.BaseApplication.WithVersion(version)
	return a
}

// RegisterRoutes adds a route registrar, mounted when the server starts.
func (a *Application) RegisterRoutes(registrar RouterRegistrar) *Application {
	a.routerManager.Add(registrar)
	return a
}

// RegisterRoutesFunc adds a function-style route registrar.
func (a *Application) RegisterRoutesFunc(fn RouterFunc) *Application {
	a.routerManager.AddFunc(fn)
	return a
}

// Run starts the application and blocks until a shutdown signal.
func (a *Application) Run() error {
	if err := a.RunNonBlocking(); err != nil {
		return err
	}

	a.WaitShutdown()

	return a.gracefulShutdown()
}

// RunNonBlocking performs the full startup without waiting for signals,
// for tests and callers managing the lifecycle themselves.
func (a *Application) RunNonBlocking() error {
	if err := a.Setup(); err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	if err := a.startHTTPServer(); err != nil {
		return err
	}

	a.setState(StateRunning)
	if a.onReady != nil {
		if err := a.onReady(a.BaseApplication); err != nil {
			return fmt.Errorf("onReady failed: %w", err)
		}
	}

	log := a.MustGetLogger()
	fields := []zap.Field{
		zap.String("state", a.GetState().String()),
		zap.Int64("startup_time_ms", a.GetStartupTimeMs()),
	}
	if version := a.GetVersion(); version != "" {
		fields = append(fields, zap.String("version", version))
	}
	log.InfoCtx(a.ctx, "✅ HTTP application started", fields...)

	return nil
}

// startHTTPServer builds the engine, mounts routes and binds the port.
// Telemetry and health integrations attach when their components are
// registered. Without registrars no server starts, keeping the HTTP
// application usable as a plain component host.
func (a *Application) startHTTPServer() error {
	if a.routerManager.Count() == 0 {
		return nil
	}

	var telemetryMgr *telemetry.Manager
	if comp, ok := component.GetTyped[*telemetry.Component](a.registry, component.ComponentTelemetry); ok && comp.IsEnabled() {
		telemetryMgr = comp.GetManager()
	}

	var healthComp *health.Component
	if comp, ok := component.GetTyped[*health.Component](a.registry, component.ComponentHealth); ok {
		healthComp = comp
	}

	a.httpServer = NewHTTPServerWithTelemetryAndHealth(
		a.appConfig.ApiServer,
		a.appConfig.Middleware,
		a.appConfig.Httpx,
		telemetryMgr,
		healthComp,
	)

	a.routerManager.Register(a.httpServer.GetEngine(), a)

	log := a.MustGetLogger()
	log.DebugCtx(a.ctx, "✅ Routes registered")

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}

	return nil
}

// gracefulShutdown drains the HTTP server before stopping components.
func (a *Application) gracefulShutdown() error {
	log := a.MustGetLogger()
	log.DebugCtx(a.ctx, "Starting HTTP application graceful shutdown...")

	if a.httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			log.ErrorCtx(a.ctx, "HTTP server close failed", zap.Error(err))
		}
	}

	return a.BaseApplication.Shutdown(10 * time.Second)
}

// GetHTTPServer exposes the server, mainly for tests.
func (a *Application) GetHTTPServer() *HTTPServer {
	return a.httpServer
}

// Shutdown triggers a graceful stop programmatically.
func (a *Application) Shutdown() {
	a.Cancel()
}

// OnSetup registers the post-start callback (chainable).
func (a *Application) OnSetup(fn func(*Application) error) *Application {
	a.BaseApplication.OnSetup(func(base *BaseApplication) error {
		return fn(a)
	})
	return a
}

// OnReady registers the serving callback (chainable).
func (a *Application) OnReady(fn func(*Application) error) *Application {
	a.BaseApplication.OnReady(func(base *BaseApplication) error {
		return fn(a)
	})
	return a
}

// OnShutdown registers the pre-stop callback (chainable).
func (a *Application) OnShutdown(fn func(*Application) error) *Application {
	a.BaseApplication.OnShutdown(func(ctx context.Context) error {
		return fn(a)
	})
	return a
}

package application

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// CronApplication runs scheduled tasks: BaseApplication plus a gocron
// scheduler whose jobs come from RegisterTask or a TaskRegistrar.
type CronApplication struct {
	*BaseApplication

	scheduler     gocron.Scheduler
	taskRegistrar TaskRegistrar
}

// TaskRegistrar hands task registration to the business layer.
type TaskRegistrar interface {
	RegisterTasks(app *CronApplication) error
}

// NewCron creates a cron application.
func NewCron(configPath, envPrefix string) (*CronApplication, error) {
	if envPrefix == "" {
		envPrefix = "APP"
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &CronApplication{
		BaseApplication: NewBase(configPath, envPrefix),
		scheduler:       scheduler,
	}, nil
}

// Run starts the scheduler and blocks until a shutdown signal.
func (a *CronApplication) Run() error {
	return a.run(true)
}

// RunNonBlocking starts the scheduler without waiting for signals.
func (a *CronApplication) RunNonBlocking() error {
	return a.run(false)
}

func (a *CronApplication) run(blocking bool) error {
	if err := a.Setup(); err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	if a.taskRegistrar != nil {
		if err := a.taskRegistrar.RegisterTasks(a); err != nil {
			return fmt.Errorf("register tasks failed: %w", err)
		}
	}

	a.scheduler.Start()

	a.setState(StateRunning)
	if a.onReady != nil {
		if err := a.onReady(a.BaseApplication); err != nil {
			return fmt.Errorf("onReady failed: %w", err)
		}
	}

	log := a.MustGetLogger()
	log.DebugCtx(a.ctx, "✅ Cron application started",
		zap.String("state", a.GetState().String()),
		zap.Int64("startup_time_ms", a.GetStartupTimeMs()))

	if blocking {
		a.WaitShutdown()
		return a.gracefulShutdown()
	}

	return nil
}

// gracefulShutdown waits for running tasks, then stops the components.
func (a *CronApplication) gracefulShutdown() error {
	log := a.MustGetLogger()
	log.DebugCtx(a.ctx, "Starting cron application graceful shutdown...")

	if a.scheduler != nil {
		if err := a.shutdownSchedulerWithTimeout(); err != nil {
			log.ErrorCtx(a.ctx, "Scheduler close failed", zap.Error(err))
		}
	}

	return a.BaseApplication.Shutdown(10 * time.Second)
}

// shutdownSchedulerWithTimeout lets running jobs finish, bounded by
// cron.shutdown_timeout (seconds, default 30).
func (a *CronApplication) shutdownSchedulerWithTimeout() error {
	log := a.MustGetLogger()

	timeout := 30 * time.Second
	if loader := a.GetConfigLoader(); loader != nil {
		var cfg struct {
			Cron struct {
				ShutdownTimeout int `mapstructure:"shutdown_timeout"`
			} `mapstructure:"cron"`
		}
		if err := loader.Unmarshal(&cfg); err == nil && cfg.Cron.ShutdownTimeout > 0 {
			timeout = time.Duration(cfg.Cron.ShutdownTimeout) * time.Second
		}
	}

	log.DebugCtx(a.ctx, "Shutting down scheduler, waiting for tasks to complete...",
		zap.Duration("timeout", timeout))

	done := make(chan error, 1)
	go func() {
		done <- a.scheduler.Shutdown()
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		log.DebugCtx(a.ctx, "✅ Scheduler closed, all tasks completed")
		return nil

	case <-time.After(timeout):
		log.WarnCtx(a.ctx, "⚠️ Scheduler close timeout, forcing exit",
			zap.Duration("timeout", timeout))
		log.WarnCtx(a.ctx, "💡 Suggestion: increase cron.shutdown_timeout or shorten task runtime")
		return fmt.Errorf("scheduler shutdown timeout (%v)", timeout)
	}
}

// GetScheduler exposes the scheduler for advanced job control.
func (a *CronApplication) GetScheduler() gocron.Scheduler {
	return a.scheduler
}

// RegisterTask schedules one task under a cron expression.
func (a *CronApplication) RegisterTask(cronExpr string, task interface{}, options ...gocron.JobOption) (gocron.Job, error) {
	return a.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(task),
		options...,
	)
}

// RegisterTasks sets the task registrar, invoked during startup.
func (a *CronApplication) RegisterTasks(registrar TaskRegistrar) *CronApplication {
	a.taskRegistrar = registrar
	return a
}

// OnSetup registers the post-start callback (chainable).
func (a *CronApplication) OnSetup(fn func(*CronApplication) error) *CronApplication {
	a.BaseApplication.OnSetup(func(base *BaseApplication) error {
		return fn(a)
	})
	return a
}

// OnReady registers the running callback (chainable).
func (a *CronApplication) OnReady(fn func(*CronApplication) error) *CronApplication {
	a.BaseApplication.OnReady(func(base *BaseApplication) error {
		return fn(a)
	})
	return a
}

// OnShutdown registers the pre-stop callback (chainable).
func (a *CronApplication) OnShutdown(fn func(*CronApplication) error) *CronApplication {
	a.BaseApplication.OnShutdown(func(ctx context.Context) error {
		return fn(a)
	})
	return a
}

// Shutdown triggers a graceful stop programmatically.
func (a *CronApplication) Shutdown() {
	a.Cancel()
}

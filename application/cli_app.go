package application

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CLIApplication runs a cobra command tree on top of the component
// lifecycle: components come up before the command executes and are
// torn down afterwards, success or failure.
type CLIApplication struct {
	*BaseApplication

	rootCmd *cobra.Command
}

// NewCLI creates a CLI application around rootCmd.
func NewCLI(configPath, envPrefix string, rootCmd *cobra.Command) *CLIApplication {
	if configPath == "" {
		configPath = "../configs"
	}
	if envPrefix == "" {
		envPrefix = "APP"
	}

	return &CLIApplication{
		BaseApplication: NewBase(configPath, envPrefix),
		rootCmd:         rootCmd,
	}
}

// OnSetup registers the post-start callback (chainable).
func (c *CLIApplication) OnSetup(fn func(*CLIApplication) error) *CLIApplication {
	c.BaseApplication.OnSetup(func(base *BaseApplication) error {
		return fn(c)
	})
	return c
}

// OnReady registers the pre-execute callback (chainable).
func (c *CLIApplication) OnReady(fn func(*CLIApplication) error) *CLIApplication {
	c.BaseApplication.OnReady(func(base *BaseApplication) error {
		return fn(c)
	})
	return c
}

// OnShutdown registers the cleanup callback (chainable).
func (c *CLIApplication) OnShutdown(fn func(*CLIApplication) error) *CLIApplication {
	c.BaseApplication.OnShutdown(func(ctx context.Context) error {
		return fn(c)
	})
	return c
}

// Execute brings the components up, runs the command synchronously and
// shuts down. The command error wins over a shutdown error.
func (c *CLIApplication) Execute() error {
	if err := c.Setup(); err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	c.setState(StateRunning)
	if c.onReady != nil {
		if err := c.onReady(c.BaseApplication); err != nil {
			return fmt.Errorf("onReady failed: %w", err)
		}
	}

	log := c.MustGetLogger()
	log.DebugCtx(c.ctx, "✅ CLI application initialized",
		zap.Int64("startup_time_ms", c.GetStartupTimeMs()))

	err := c.rootCmd.Execute()

	shutdownErr := c.gracefulShutdown()

	if err != nil {
		return err
	}
	return shutdownErr
}

// gracefulShutdown tears components down; CLI commands finish fast so
// a short timeout suffices.
func (c *CLIApplication) gracefulShutdown() error {
	log := c.MustGetLogger()
	log.DebugCtx(c.ctx, "Starting CLI application graceful shutdown...")

	return c.BaseApplication.Shutdown(5 * time.Second)
}

// GetRootCmd returns the root command, mainly for tests.
func (c *CLIApplication) GetRootCmd() *cobra.Command {
	return c.rootCmd
}

// AddCommand attaches subcommands to the root command.
func (c *CLIApplication) AddCommand(cmds ...*cobra.Command) *CLIApplication {
	c.rootCmd.AddCommand(cmds...)
	return c
}

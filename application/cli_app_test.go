package application

import (
	"fmt"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRootCmd(run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "testcli",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if run != nil {
		cmd.RunE = run
	}
	return cmd
}

func TestNewCLI(t *testing.T) {
	rootCmd := newTestRootCmd(nil)
	app := NewCLI("./configs", "TEST", rootCmd)

	assert.Equal(t, StateInit, app.GetState())
	assert.Same(t, rootCmd, app.GetRootCmd())
}

func TestCLIApplication_ExecuteLifecycle(t *testing.T) {
	dir := writeConfigDir(t, `
greeting: hello
`)

	var calls []string

	rootCmd := newTestRootCmd(nil)
	app := NewCLI(dir, "TEST", rootCmd).
		OnSetup(func(c *CLIApplication) error {
			calls = append(calls, "setup")
			return nil
		}).
		OnReady(func(c *CLIApplication) error {
			calls = append(calls, "ready")
			assert.Equal(t, "hello", c.GetConfigLoader().GetString("greeting"))
			return nil
		}).
		OnShutdown(func(c *CLIApplication) error {
			calls = append(calls, "shutdown")
			return nil
		})

	app.AddCommand(&cobra.Command{
		Use: "greet",
		RunE: func(cmd *cobra.Command, args []string) error {
			calls = append(calls, "command")
			return nil
		},
	})
	rootCmd.SetArgs([]string{"greet"})

	require.NoError(t, app.Execute())

	assert.Equal(t, []string{"setup", "ready", "command", "shutdown"}, calls)
	assert.Equal(t, StateStopped, app.GetState())
}

func TestCLIApplication_CommandErrorWins(t *testing.T) {
	dir := writeConfigDir(t, "")

	var shutdownRan bool

	rootCmd := newTestRootCmd(func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("command blew up")
	})
	app := NewCLI(dir, "TEST", rootCmd).
		OnShutdown(func(c *CLIApplication) error {
			shutdownRan = true
			return nil
		})
	rootCmd.SetArgs([]string{})

	err := app.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command blew up")

	// Components still tear down after a failed command.
	assert.True(t, shutdownRan)
	assert.Equal(t, StateStopped, app.GetState())
}

func TestCLIApplication_OnReadyError(t *testing.T) {
	dir := writeConfigDir(t, "")

	commandRan := false
	rootCmd := newTestRootCmd(func(cmd *cobra.Command, args []string) error {
		commandRan = true
		return nil
	})
	app := NewCLI(dir, "TEST", rootCmd).
		OnReady(func(c *CLIApplication) error {
			return fmt.Errorf("not ready")
		})
	rootCmd.SetArgs([]string{})

	err := app.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "onReady failed")
	assert.False(t, commandRan)

	app.BaseApplication.Shutdown(2 * time.Second)
}

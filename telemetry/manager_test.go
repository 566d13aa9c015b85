package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stdoutConfig returns an enabled tracing config that needs no
// collector, so Start can run inside a unit test.
func stdoutConfig(withMetrics bool) Config {
	cfg := Config{
		Enabled:     true,
		ServiceName: "resolver-demo",
		Exporter: ExporterConfig{
			Type:    "stdout",
			Timeout: 5 * time.Second,
		},
		Sampler: SamplerConfig{Type: "always_on"},
	}
	if withMetrics {
		cfg.Metrics = MetricsConfig{
			Enabled:        true,
			ExportInterval: 5 * time.Second,
			ExportTimeout:  10 * time.Second,
		}
	}
	return cfg
}

func TestNewManager(t *testing.T) {
	m := NewManager(Config{Enabled: true, ServiceName: "resolver-demo"}, nil)
	require.NotNil(t, m)
	assert.Equal(t, "resolver-demo", m.config.ServiceName)
	assert.True(t, m.IsEnabled())
	// nil logger falls back to a usable default
	assert.NotNil(t, m.logger)
}

func TestManagerStart(t *testing.T) {
	t.Run("disabled config skips initialization", func(t *testing.T) {
		m := NewManager(Config{Enabled: false}, nil)

		require.NoError(t, m.Start(context.Background()))
		assert.Nil(t, m.tracerProvider)
		assert.Nil(t, m.metricsManager)
	})

	t.Run("tracing only", func(t *testing.T) {
		m := NewManager(stdoutConfig(false), nil)

		require.NoError(t, m.Start(context.Background()))
		defer m.Shutdown(context.Background())

		assert.NotNil(t, m.tracerProvider)
		assert.NotNil(t, m.shutdownFn)
		assert.Nil(t, m.metricsManager)
	})

	t.Run("tracing and metrics", func(t *testing.T) {
		m := NewManager(stdoutConfig(true), nil)

		require.NoError(t, m.Start(context.Background()))
		defer m.Shutdown(context.Background())

		assert.NotNil(t, m.tracerProvider)
		require.NotNil(t, m.metricsManager)
		assert.True(t, m.metricsManager.IsEnabled())
	})
}

func TestManagerShutdown(t *testing.T) {
	t.Run("nil receiver is a no-op", func(t *testing.T) {
		var m *Manager
		require.NoError(t, m.Shutdown(context.Background()))
	})

	t.Run("before start is a no-op", func(t *testing.T) {
		m := NewManager(Config{Enabled: false}, nil)
		require.NoError(t, m.Shutdown(context.Background()))
	})

	t.Run("after start flushes cleanly", func(t *testing.T) {
		m := NewManager(stdoutConfig(true), nil)
		require.NoError(t, m.Start(context.Background()))
		require.NoError(t, m.Shutdown(context.Background()))
	})
}

func TestManagerGetTracer(t *testing.T) {
	t.Run("from started provider", func(t *testing.T) {
		m := NewManager(stdoutConfig(false), nil)
		require.NoError(t, m.Start(context.Background()))
		defer m.Shutdown(context.Background())

		assert.NotNil(t, m.GetTracer("order-flow"))
	})

	t.Run("falls back to the global tracer when never started", func(t *testing.T) {
		m := NewManager(Config{Enabled: false}, nil)
		assert.NotNil(t, m.GetTracer("order-flow"))
	})
}

func TestManagerGetMetricsManager(t *testing.T) {
	t.Run("nil until metrics start", func(t *testing.T) {
		m := NewManager(Config{Enabled: false}, nil)
		assert.Nil(t, m.GetMetricsManager())
	})

	t.Run("available after start", func(t *testing.T) {
		m := NewManager(stdoutConfig(true), nil)
		require.NoError(t, m.Start(context.Background()))
		defer m.Shutdown(context.Background())

		mm := m.GetMetricsManager()
		require.NotNil(t, mm)
		assert.True(t, mm.IsEnabled())
	})
}

func TestManagerAccessors(t *testing.T) {
	m := NewManager(Config{Enabled: true, ServiceName: "resolver-demo"}, nil)
	assert.True(t, m.IsEnabled())
	assert.Equal(t, "resolver-demo", m.GetConfig().ServiceName)

	m = NewManager(Config{Enabled: false}, nil)
	assert.False(t, m.IsEnabled())
}

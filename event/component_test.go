package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLoader serves a fixed event configuration section.
type stubLoader struct {
	section *Config
	fail    bool
}

func (l *stubLoader) Unmarshal(key string, v interface{}) error {
	if l.fail {
		return assert.AnError
	}
	if key != "event" || l.section == nil {
		return nil
	}
	if cfg, ok := v.(*Config); ok {
		*cfg = *l.section
	}
	return nil
}

func (l *stubLoader) Get(key string) interface{} { return nil }
func (l *stubLoader) GetString(key string) string { return "" }
func (l *stubLoader) GetInt(key string) int { return 0 }
func (l *stubLoader) GetBool(key string) bool { return false }
func (l *stubLoader) IsSet(key string) bool { return l.section != nil }

func initComponent(t *testing.T, cfg *Config) *Component {
	t.Helper()
	c := NewComponent()
	require.NoError(t, c.Init(context.Background(), &stubLoader{section: cfg}))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
	return c
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 100, cfg.PoolSize)
}

func TestComponentIdentity(t *testing.T) {
	c := NewComponent()
	require.NotNil(t, c)
	assert.Equal(t, "event", c.Name())

	deps := c.DependsOn()
	assert.Contains(t, deps, "config")
	assert.Contains(t, deps, "logger")
	assert.Contains(t, deps, "optional:rabbitmq")
	assert.Contains(t, deps, "optional:telemetry")
}

func TestComponentInit(t *testing.T) {
	t.Run("builds a dispatcher from the configuration", func(t *testing.T) {
		c := initComponent(t, &Config{Enabled: true, PoolSize: 50})
		assert.NotNil(t, c.dispatcher)
		assert.Equal(t, 50, c.config.PoolSize)
	})

	t.Run("falls back to defaults when the section fails to decode", func(t *testing.T) {
		c := NewComponent()
		require.NoError(t, c.Init(context.Background(), &stubLoader{fail: true}))
		t.Cleanup(func() { _ = c.Stop(context.Background()) })

		assert.NotNil(t, c.dispatcher)
		assert.Equal(t, 100, c.config.PoolSize)
	})

	t.Run("disabled leaves the dispatcher nil", func(t *testing.T) {
		c := initComponent(t, &Config{Enabled: false, PoolSize: 50})
		assert.Nil(t, c.dispatcher)
	})

	t.Run("configured routes build a router", func(t *testing.T) {
		c := initComponent(t, &Config{
			Enabled:  true,
			PoolSize: 10,
			Routes: map[string]RouteConfig{
				"order:*": {Driver: DriverBroker},
			},
		})
		require.NotNil(t, c.dispatcher)
		require.NotNil(t, c.dispatcher.router)
		assert.Equal(t, 1, c.dispatcher.router.RouteCount())
	})
}

func TestComponentLifecycle(t *testing.T) {
	t.Run("start without init is a no-op", func(t *testing.T) {
		assert.NoError(t, NewComponent().Start(context.Background()))
	})

	t.Run("stop releases the dispatcher", func(t *testing.T) {
		c := initComponent(t, &Config{Enabled: true, PoolSize: 50})
		assert.NoError(t, c.Stop(context.Background()))
	})

	t.Run("stop without a dispatcher is safe", func(t *testing.T) {
		assert.NoError(t, NewComponent().Stop(context.Background()))
	})
}

func TestComponentAccessors(t *testing.T) {
	c := initComponent(t, &Config{Enabled: true, PoolSize: 50})
	assert.NotNil(t, c.GetDispatcher())
	assert.True(t, c.IsEnabled())

	disabled := NewComponent()
	disabled.config.Enabled = false
	assert.False(t, disabled.IsEnabled())

	// enabled flag alone is not enough, init must have built a dispatcher
	noDispatcher := NewComponent()
	noDispatcher.config.Enabled = true
	assert.False(t, noDispatcher.IsEnabled())
}

func TestComponentSetBrokerPublisher(t *testing.T) {
	c := initComponent(t, &Config{Enabled: true, PoolSize: 10})
	assert.Nil(t, c.GetPublisher())

	broker := &mockBrokerPublisher{}
	c.SetBrokerPublisher(broker)
	require.NotNil(t, c.GetPublisher())

	err := c.GetDispatcher().Dispatch(context.Background(),
		&testEvent{name: "order.shipped"}, WithBroker())
	require.NoError(t, err)
	assert.Len(t, broker.getPublished(), 1)

	c.GetPublisher().PublishAfterCommit(context.Background(), "", &testEvent{name: "order.archived"})
	assert.Len(t, broker.getPublished(), 2)
}

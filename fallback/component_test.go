package fallback

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/KOMKZ/go-aegis-framework/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent_Name(t *testing.T) {
	c := NewComponent()
	assert.Equal(t, component.ComponentFallback, c.Name())
	assert.Equal(t, "fallback", c.Name())
}

func TestComponent_DependsOn(t *testing.T) {
	c := NewComponent()
	deps := c.DependsOn()

	assert.Contains(t, deps, component.ComponentConfig)
	assert.Contains(t, deps, component.ComponentLogger)
	assert.Contains(t, deps, "optional:"+component.ComponentRedis)
}

func TestComponent_DefaultsToMemoryStore(t *testing.T) {
	c := NewComponent()
	ctx := context.Background()

	require.NoError(t, c.Init(ctx, &mockConfigLoader{}))
	require.NoError(t, c.Start(ctx))

	r := c.GetResolver()
	require.NotNil(t, r)
	assert.Equal(t, "memory", r.Store().Name())

	require.NoError(t, c.Stop(ctx))
}

func TestComponent_RedisStoreWithoutManagerFails(t *testing.T) {
	c := NewComponent()
	ctx := context.Background()

	loader := &mockConfigLoader{data: map[string]interface{}{
		"fallback": map[string]interface{}{"store": "redis"},
	}}
	require.NoError(t, c.Init(ctx, loader))

	err := c.Start(ctx)
	require.Error(t, err)
}

func TestComponent_ResolverUsableAfterStart(t *testing.T) {
	c := NewComponent()
	ctx := context.Background()

	require.NoError(t, c.Init(ctx, &mockConfigLoader{}))
	require.NoError(t, c.Start(ctx))

	r := c.GetResolver()
	require.NoError(t, r.Put(ctx, "u-1", json.RawMessage(`{"id":"u-1"}`)))

	entry, err := r.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", entry.ID)
}

// mockConfigLoader is a minimal component.ConfigLoader for tests.
type mockConfigLoader struct {
	data map[string]interface{}
}

func (m *mockConfigLoader) Unmarshal(key string, v interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return nil
	}
	// Route through JSON to emulate viper's decode into the target struct.
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (m *mockConfigLoader) Get(key string) interface{} {
	if m.data != nil {
		return m.data[key]
	}
	return nil
}

func (m *mockConfigLoader) GetString(key string) string {
	if v, ok := m.data[key].(string); ok {
		return v
	}
	return ""
}

func (m *mockConfigLoader) GetInt(key string) int {
	if v, ok := m.data[key].(int); ok {
		return v
	}
	return 0
}

func (m *mockConfigLoader) GetBool(key string) bool {
	if v, ok := m.data[key].(bool); ok {
		return v
	}
	return false
}

func (m *mockConfigLoader) IsSet(key string) bool {
	if m.data == nil {
		return false
	}
	_, ok := m.data[key]
	return ok
}

package breaker

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
	assert.Equal(t, component.ComponentBreaker, c.Name())
}

func TestComponent_DependsOn(t *testing.T) {
	c := NewComponent()
	deps := c.DependsOn()

	assert.Contains(t, deps, component.ComponentConfig)
	assert.Contains(t, deps, component.ComponentLogger)
	assert.Contains(t, deps, "optional:"+component.ComponentTelemetry)
}

func TestComponent_DisabledWithoutConfig(t *testing.T) {
	c := NewComponent()
	ctx := context.Background()

	require.NoError(t, c.Init(ctx, &componentConfigLoader{}))
	require.NoError(t, c.Start(ctx))

	mgr := c.GetManager()
	require.NotNil(t, mgr)
	assert.False(t, mgr.IsEnabled())

	// A disabled manager executes calls directly.
	resp := mgr.Fire(ctx, &Request{
		Resource: "upstream",
		Execute: func(ctx context.Context) (interface{}, error) {
			return "ok", nil
		},
	})
	require.NoError(t, resp.Error)
	assert.Equal(t, "ok", resp.Value)

	require.NoError(t, c.Stop(ctx))
}

func TestComponent_EnabledFromConfig(t *testing.T) {
	c := NewComponent()
	ctx := context.Background()

	loader := &componentConfigLoader{data: map[string]interface{}{
		"breaker": map[string]interface{}{"enabled": true},
	}}
	require.NoError(t, c.Init(ctx, loader))
	require.NoError(t, c.Start(ctx))

	mgr := c.GetManager()
	require.NotNil(t, mgr)
	assert.True(t, mgr.IsEnabled())
	assert.Equal(t, StateClosed, mgr.GetState("upstream"))

	require.NoError(t, c.Stop(ctx))
}

// componentConfigLoader is a minimal component.ConfigLoader for tests.
type componentConfigLoader struct {
	data map[string]interface{}
}

func (m *componentConfigLoader) Unmarshal(key string, v interface{}) error {
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

func (m *componentConfigLoader) Get(key string) interface{} {
	if m.data != nil {
		return m.data[key]
	}
	return nil
}

func (m *componentConfigLoader) GetString(key string) string {
	if v, ok := m.data[key].(string); ok {
		return v
	}
	return ""
}

func (m *componentConfigLoader) GetInt(key string) int {
	if v, ok := m.data[key].(int); ok {
		return v
	}
	return 0
}

func (m *componentConfigLoader) GetBool(key string) bool {
	if v, ok := m.data[key].(bool); ok {
		return v
	}
	return false
}

func (m *componentConfigLoader) IsSet(key string) bool {
	if m.data == nil {
		return false
	}
	_, ok := m.data[key]
	return ok
}

package logger

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func resetGlobalManager() {
	globalManager = nil
	managerOnce = sync.Once{}
}

func TestManager_GetLogger_FileOutput(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "mgr")

	m := NewManager(Config{
		AppName:       "aegis-test",
		Level:         "debug",
		Encoding:      "json",
		BaseLogDir:    logDir,
		EnableConsole: false,
		EnableFile:    true,
		MaxSize:       10,
		EnableTraceID: true,
	})

	l := m.GetLogger("orders")
	ctx := context.WithValue(context.Background(), "trace_id", "trace-abc")

	l.InfoCtx(ctx, "order created", zap.String("order_id", "o_1"))
	l.ErrorCtx(ctx, "order failed", zap.String("order_id", "o_2"))

	m.CloseAll()

	infoPath := filepath.Join(logDir, "orders", "orders-info.log")
	errorPath := filepath.Join(logDir, "orders", "orders-error.log")
	require.FileExists(t, infoPath)
	require.FileExists(t, errorPath)

	infoContent, err := os.ReadFile(infoPath)
	require.NoError(t, err)
	assert.Contains(t, string(infoContent), "order created")
	assert.Contains(t, string(infoContent), "trace-abc")
	assert.Contains(t, string(infoContent), `"module":"orders"`)
	assert.Contains(t, string(infoContent), `"app_name":"aegis-test"`)
	assert.NotContains(t, string(infoContent), "order failed")

	errorContent, err := os.ReadFile(errorPath)
	require.NoError(t, err)
	assert.Contains(t, string(errorContent), "order failed")
}

func TestManager_GetLogger_SameInstance(t *testing.T) {
	m := NewManager(Config{EnableConsole: false})

	l1 := m.GetLogger("broker")
	l2 := m.GetLogger("broker")
	assert.Same(t, l1, l2)

	l3 := m.GetLogger("resolver")
	assert.NotSame(t, l1, l3)
}

func TestManager_GetLogger_Concurrent(t *testing.T) {
	m := NewManager(Config{EnableConsole: false})

	var wg sync.WaitGroup
	loggers := make([]*CtxZapLogger, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			loggers[idx] = m.GetLogger("shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < 20; i++ {
		assert.Same(t, loggers[0], loggers[i])
	}
}

func TestGetLogger_GlobalFallback(t *testing.T) {
	resetGlobalManager()
	defer resetGlobalManager()

	l := GetLogger("anything")
	require.NotNil(t, l)
	assert.NotNil(t, l.GetZapLogger())
}

func TestMustGetLogger_EmptyModulePanics(t *testing.T) {
	assert.Panics(t, func() {
		MustGetLogger("")
	})
}

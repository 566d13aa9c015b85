package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinLogWriter(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "gin")

	resetGlobalManager()
	defer resetGlobalManager()

	InitManager(Config{
		Level:         "debug",
		Encoding:      "json",
		BaseLogDir:    logDir,
		EnableConsole: false,
		EnableFile:    true,
		MaxSize:       10,
	})

	writer := NewGinLogWriter("gin")
	require.NotNil(t, writer)

	n, err := writer.Write([]byte("[GIN-debug] GET /api/orders --> handler.GetOrders (3 handlers)"))
	assert.NoError(t, err)
	assert.Greater(t, n, 0)

	n, err = writer.Write([]byte("Listening and serving HTTP on :8080"))
	assert.NoError(t, err)
	assert.Greater(t, n, 0)

	// Blank lines are swallowed without touching the logger.
	n, err = writer.Write([]byte("\n"))
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	CloseAll()

	content, err := os.ReadFile(filepath.Join(logDir, "gin", "gin-info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Listening and serving HTTP")
	assert.Contains(t, string(content), "GIN-debug")
}

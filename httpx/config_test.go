package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultErrorLoggingConfig(t *testing.T) {
	cfg := DefaultErrorLoggingConfig()

	// logging is opt-in, everything else defaults to the verbose side
	assert.False(t, cfg.Enable)
	assert.Empty(t, cfg.IgnoreHTTPStatus)
	assert.True(t, cfg.FullErrorChain)
	assert.Equal(t, "error", cfg.LogLevel)
}

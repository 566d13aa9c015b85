package logger

import (
	"strings"
)

// GinLogWriter adapts Gin's text log output to the structured logger.
// It implements io.Writer so it can be assigned to gin.DefaultWriter
// and gin.DefaultErrorWriter.
type GinLogWriter struct {
	module string
}

// NewGinLogWriter creates a Gin log adapter bound to the given module
// name, so framework output is distinguishable from business logs.
func NewGinLogWriter(module string) *GinLogWriter {
	return &GinLogWriter{module: module}
}

// Write classifies Gin's text lines by their prefix and forwards them
// at a matching level.
func (w *GinLogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}

	log := GetLogger(w.module)
	switch {
	case strings.Contains(msg, "[GIN-debug]"):
		// Route registration output.
		log.Debug(msg)
	case strings.Contains(msg, "[Recovery]") || strings.Contains(msg, "panic recovered"):
		log.Error(msg)
	default:
		log.Info(msg)
	}

	return len(p), nil
}

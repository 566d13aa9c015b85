package httpx

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-aegis-framework/logger"
)

// RequestLogConfig configures the access log middleware.
type RequestLogConfig struct {
	// SkipPaths are not logged at all (health probes, metrics).
	SkipPaths []string
}

// DefaultRequestLogConfig returns the default access log configuration.
func DefaultRequestLogConfig() RequestLogConfig {
	return RequestLogConfig{
		SkipPaths: []string{},
	}
}

// RequestLog returns the structured access log middleware with defaults.
// It replaces gin.Logger(): one structured line per request, level by
// status class (5xx error, 4xx warn, otherwise info), trace id attached
// through the context.
func RequestLog() gin.HandlerFunc {
	return RequestLogWithConfig(DefaultRequestLogConfig())
}

// RequestLogWithConfig returns the access log middleware.
func RequestLogWithConfig(cfg RequestLogConfig) gin.HandlerFunc {
	skipPaths := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("body_size", c.Writer.Size()),
		}

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			fields = append(fields, zap.String("error", errorMessage))
		}

		ctx := c.Request.Context()
		log := logger.GetLogger("aegis")
		switch {
		case statusCode >= 500:
			log.ErrorCtx(ctx, "HTTP request", fields...)
		case statusCode >= 400:
			log.WarnCtx(ctx, "HTTP request", fields...)
		default:
			log.InfoCtx(ctx, "HTTP request", fields...)
		}
	}
}

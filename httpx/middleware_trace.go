package httpx

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TraceIDKeyDefault is the context key the logger reads the trace id
	// from.
	TraceIDKeyDefault = "trace_id"

	// TraceIDHeaderDefault is the HTTP header carrying the trace id.
	TraceIDHeaderDefault = "X-Trace-ID"
)

// TraceConfig configures the TraceID middleware.
type TraceConfig struct {
	// TraceIDKey is the context key (default "trace_id").
	TraceIDKey string

	// TraceIDHeader is the HTTP header name (default "X-Trace-ID").
	TraceIDHeader string

	// EnableResponseHeader echoes the trace id on the response.
	EnableResponseHeader bool

	// Generator produces new trace ids (default uuid).
	Generator func() string
}

// DefaultTraceConfig returns the default trace configuration.
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		TraceIDKey:           TraceIDKeyDefault,
		TraceIDHeader:        TraceIDHeaderDefault,
		EnableResponseHeader: true,
		Generator:            func() string { return uuid.New().String() },
	}
}

// TraceID extracts or generates a per-request trace id and injects it
// into both the request context and the gin context. An active
// OpenTelemetry span wins: its trace id is used and nothing extra is
// injected, matching the logger's extraction order.
func TraceID(cfg TraceConfig) gin.HandlerFunc {
	if cfg.TraceIDKey == "" {
		cfg.TraceIDKey = TraceIDKeyDefault
	}
	if cfg.TraceIDHeader == "" {
		cfg.TraceIDHeader = TraceIDHeaderDefault
	}
	if cfg.Generator == nil {
		cfg.Generator = func() string { return uuid.New().String() }
	}

	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())

		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = c.GetHeader(cfg.TraceIDHeader)
			if traceID == "" {
				traceID = cfg.Generator()
			}
			ctx := context.WithValue(c.Request.Context(), cfg.TraceIDKey, traceID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Set(cfg.TraceIDKey, traceID)

		if cfg.EnableResponseHeader {
			c.Writer.Header().Set(cfg.TraceIDHeader, traceID)
		}

		c.Next()
	}
}

// GetTraceID reads the trace id from the gin context under the default key.
func GetTraceID(c *gin.Context) string {
	return GetTraceIDWithKey(c, TraceIDKeyDefault)
}

// GetTraceIDWithKey reads the trace id stored under key.
func GetTraceIDWithKey(c *gin.Context, key string) string {
	traceID, exists := c.Get(key)
	if !exists {
		return ""
	}
	if id, ok := traceID.(string); ok {
		return id
	}
	return ""
}

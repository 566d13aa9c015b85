package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceID_GenerateNew(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TraceID(DefaultTraceConfig()))
	router.GET("/test", func(c *gin.Context) {
		traceID := GetTraceID(c)
		assert.NotEmpty(t, traceID)

		// the same id must be visible through the request context
		ctxTraceID := c.Request.Context().Value(TraceIDKeyDefault)
		assert.NotNil(t, ctxTraceID)
		assert.Equal(t, traceID, ctxTraceID)

		c.JSON(200, gin.H{"trace_id": traceID})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, w.Header().Get(TraceIDHeaderDefault))
}

func TestTraceID_FromHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TraceID(DefaultTraceConfig()))
	router.GET("/test", func(c *gin.Context) {
		traceID := GetTraceID(c)
		c.JSON(200, gin.H{"trace_id": traceID})
	})

	customTraceID := "custom-trace-id-12345"
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(TraceIDHeaderDefault, customTraceID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, customTraceID, w.Header().Get(TraceIDHeaderDefault))
}

func TestTraceID_OtelSpanWins(t *testing.T) {
	gin.SetMode(gin.TestMode)

	traceHex := "0af7651916cd43dd8448eb211c80319c"
	tid, err := trace.TraceIDFromHex(traceHex)
	assert.NoError(t, err)
	sid, err := trace.SpanIDFromHex("b7ad6b7169203331")
	assert.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid})

	router := gin.New()
	router.Use(func(c *gin.Context) {
		// simulate an upstream otel instrumentation having started a span
		ctx := trace.ContextWithSpanContext(c.Request.Context(), sc)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	router.Use(TraceID(DefaultTraceConfig()))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"trace_id": GetTraceID(c)})
	})

	// a client-supplied header must not override the span's trace id
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(TraceIDHeaderDefault, "client-supplied-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, traceHex, w.Header().Get(TraceIDHeaderDefault))
}

func TestTraceID_DisableResponseHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := DefaultTraceConfig()
	cfg.EnableResponseHeader = false

	router := gin.New()
	router.Use(TraceID(cfg))
	router.GET("/test", func(c *gin.Context) {
		traceID := GetTraceID(c)
		c.JSON(200, gin.H{"trace_id": traceID})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Empty(t, w.Header().Get(TraceIDHeaderDefault))
}

func TestTraceID_CustomGenerator(t *testing.T) {
	gin.SetMode(gin.TestMode)

	customID := "custom-generated-id"
	cfg := DefaultTraceConfig()
	cfg.Generator = func() string {
		return customID
	}

	router := gin.New()
	router.Use(TraceID(cfg))
	router.GET("/test", func(c *gin.Context) {
		traceID := GetTraceID(c)
		assert.Equal(t, customID, traceID)
		c.JSON(200, gin.H{"trace_id": traceID})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, customID, w.Header().Get(TraceIDHeaderDefault))
}

func TestTraceID_CustomKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)

	customKey := "request_id"
	customHeader := "X-Request-ID"
	cfg := DefaultTraceConfig()
	cfg.TraceIDKey = customKey
	cfg.TraceIDHeader = customHeader

	router := gin.New()
	router.Use(TraceID(cfg))
	router.GET("/test", func(c *gin.Context) {
		traceID := GetTraceIDWithKey(c, customKey)
		assert.NotEmpty(t, traceID)
		c.JSON(200, gin.H{"trace_id": traceID})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, w.Header().Get(customHeader))
}

func TestGetTraceID_NotExists(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		traceID := GetTraceID(c)
		assert.Empty(t, traceID)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
}

func TestTraceID_ContextPropagation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TraceID(DefaultTraceConfig()))

	var capturedTraceID string

	router.GET("/test", func(c *gin.Context) {
		ctx := c.Request.Context()
		if val := ctx.Value(TraceIDKeyDefault); val != nil {
			capturedTraceID = val.(string)
		}
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, capturedTraceID)
}

func BenchmarkTraceID(b *testing.B) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(TraceID(DefaultTraceConfig()))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}

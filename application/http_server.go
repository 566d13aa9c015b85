package application

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-aegis-framework/health"
	"github.com/KOMKZ/go-aegis-framework/httpx"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"github.com/KOMKZ/go-aegis-framework/telemetry"
)

// HTTPServer wraps the gin engine and its http.Server with verified
// startup and graceful shutdown.
type HTTPServer struct {
	engine     *gin.Engine
	httpServer *http.Server
	host       string
	port       int
	mode       string

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewHTTPServer builds the engine with the framework middleware chain.
func NewHTTPServer(cfg ApiServerConfig, middlewareCfg *MiddlewareConfig, httpxCfg *httpx.ErrorLoggingConfig) *HTTPServer {
	return newHTTPServer(cfg, middlewareCfg, httpxCfg, nil, nil)
}

// NewHTTPServerWithTelemetryAndHealth additionally mounts the otelgin
// trace middleware and the health endpoints.
func NewHTTPServerWithTelemetryAndHealth(
	cfg ApiServerConfig,
	middlewareCfg *MiddlewareConfig,
	httpxCfg *httpx.ErrorLoggingConfig,
	telemetryMgr *telemetry.Manager,
	healthComp *health.Component,
) *HTTPServer {
	return newHTTPServer(cfg, middlewareCfg, httpxCfg, telemetryMgr, healthComp)
}

func newHTTPServer(
	cfg ApiServerConfig,
	middlewareCfg *MiddlewareConfig,
	httpxCfg *httpx.ErrorLoggingConfig,
	telemetryMgr *telemetry.Manager,
	healthComp *health.Component,
) *HTTPServer {
	log := logger.GetLogger("aegis")

	// Route gin's own output through the structured logger instead of
	// stdout, and build the engine bare: the gin.Default() middleware is
	// replaced with the framework versions below.
	gin.DefaultWriter = logger.NewGinLogWriter("gin")
	gin.DefaultErrorWriter = logger.NewGinLogWriter("gin")
	gin.SetMode(cfg.Mode)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	// Middleware order matters: the otel span must exist before the
	// trace id middleware reads it, and both must run before the access
	// log so every line carries the id.
	if telemetryMgr != nil && telemetryMgr.IsEnabled() {
		serviceName := telemetryMgr.GetConfig().ServiceName
		if serviceName == "" {
			serviceName = "http-service"
		}
		engine.Use(otelgin.Middleware(serviceName))
		log.Info("✅ OpenTelemetry trace middleware registered",
			zap.String("service_name", serviceName))
	}

	if middlewareCfg != nil && middlewareCfg.TraceID != nil && middlewareCfg.TraceID.Enable {
		traceCfg := httpx.DefaultTraceConfig()
		traceCfg.TraceIDKey = middlewareCfg.TraceID.TraceIDKey
		traceCfg.TraceIDHeader = middlewareCfg.TraceID.TraceIDHeader
		if middlewareCfg.TraceID.EnableResponseHeader != nil {
			traceCfg.EnableResponseHeader = *middlewareCfg.TraceID.EnableResponseHeader
		}
		engine.Use(httpx.TraceID(traceCfg))
	}

	if middlewareCfg != nil && middlewareCfg.RequestLog != nil && middlewareCfg.RequestLog.Enable {
		engine.Use(httpx.RequestLogWithConfig(httpx.RequestLogConfig{
			SkipPaths: middlewareCfg.RequestLog.SkipPaths,
		}))
	}

	if httpxCfg != nil && httpxCfg.Enable {
		engine.Use(httpx.ErrorLoggingMiddleware(*httpxCfg))
	}

	// Panic recovery is always on.
	engine.Use(httpx.Recovery())

	engine.NoRoute(httpx.NoRouteHandler())
	engine.NoMethod(httpx.NoMethodHandler())

	if healthComp != nil {
		health.RegisterRoutes(engine, healthComp)
	}

	return &HTTPServer{
		engine:       engine,
		host:         cfg.Host,
		port:         cfg.Port,
		mode:         cfg.Mode,
		readTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		writeTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}
}

// GetEngine exposes the gin engine for route registration.
func (s *HTTPServer) GetEngine() *gin.Engine {
	return s.engine
}

// Start launches the listener and confirms the port bound. Binding
// errors surface here instead of killing the process asynchronously.
func (s *HTTPServer) Start() error {
	log := logger.GetLogger("aegis")
	addr := s.addr()

	if err := s.checkPortAvailable(); err != nil {
		return fmt.Errorf("port %d not available: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	errChan := make(chan error, 1)

	go func() {
		log.Debug("🚀 HTTP server starting",
			zap.String("addr", addr),
			zap.String("mode", s.mode))

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// 50ms is enough to catch a bind error from ListenAndServe.
	select {
	case err := <-errChan:
		log.Error("❌ HTTP server start failed", zap.Error(err))
		return fmt.Errorf("start HTTP server: %w", err)
	case <-time.After(50 * time.Millisecond):
		log.Debug("✅ HTTP server started", zap.String("addr", addr))
		return nil
	}
}

func (s *HTTPServer) addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

func (s *HTTPServer) checkPortAvailable() error {
	ln, err := net.Listen("tcp", s.addr())
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

// Shutdown drains in-flight requests and closes the listener.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	log := logger.GetLogger("aegis")
	log.Debug("Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}

	log.Debug("✅ HTTP server closed")
	return nil
}

// ShutdownWithTimeout is Shutdown bounded by timeout.
func (s *HTTPServer) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(ctx)
}

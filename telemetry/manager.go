// Package telemetry wires OpenTelemetry tracing and metrics into the
// component lifecycle: exporter construction with a circuit-breaking
// fallback, sampler and batch configuration, and the centralized
// metrics registry.
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"github.com/KOMKZ/go-aegis-framework/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Manager owns the telemetry pipeline: TracerProvider, exporter circuit
// breaker and the metrics manager.
type Manager struct {
	config         Config
	logger         *logger.CtxZapLogger
	tracerProvider *trace.TracerProvider
	circuitBreaker *CircuitBreaker
	metricsManager *MetricsManager
	shutdownFn     func(context.Context) error
	mu             sync.RWMutex
}

// NewManager creates a telemetry manager. A nil log falls back to the
// framework logger.
func NewManager(config Config, log *logger.CtxZapLogger) *Manager {
	if log == nil {
		log = logger.GetLogger("aegis")
	}
	return &Manager{
		config: config,
		logger: log,
	}
}

// Start builds the tracer provider and, when configured, the metrics
// manager. Both share one Resource so traces and metrics carry the same
// service identity.
func (m *Manager) Start(ctx context.Context) error {
	if !m.config.Enabled {
		m.logger.InfoCtx(ctx, "Telemetry disabled, skipping initialization")
		return nil
	}

	res, err := m.createResource(ctx)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}

	tp, shutdownFn, err := m.createTracerProvider(ctx, res)
	if err != nil {
		return err
	}

	m.tracerProvider = tp
	m.shutdownFn = shutdownFn

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if m.config.Metrics.Enabled {
		metricsManager, err := NewMetricsManager(m.config, res)
		if err != nil {
			return fmt.Errorf("create metrics manager: %w", err)
		}
		m.metricsManager = metricsManager

		m.logger.InfoCtx(ctx, "✅ Metrics initialized",
			zap.Bool("http_enabled", m.config.Metrics.HTTP.Enabled),
			zap.Bool("db_enabled", m.config.Metrics.Database.Enabled),
			zap.String("namespace", m.config.Metrics.Namespace),
			zap.Duration("export_interval", m.config.Metrics.ExportInterval),
		)
	}

	m.logger.InfoCtx(ctx, "✅ Telemetry started",
		zap.String("service_name", m.config.ServiceName),
		zap.String("service_version", m.config.ServiceVersion),
		zap.String("exporter", m.config.Exporter.Type),
		zap.String("sampler", m.config.Sampler.Type),
	)

	return nil
}

// Shutdown flushes and closes the pipeline. Safe on a nil or never
// started manager.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}

	if m.metricsManager != nil {
		if err := m.metricsManager.Shutdown(ctx); err != nil {
			m.logger.ErrorCtx(ctx, "Failed to shutdown metrics", zap.Error(err))
		}
	}

	if m.shutdownFn != nil {
		return m.shutdownFn(ctx)
	}
	return nil
}

// GetTracer returns a tracer, falling back to the global provider when
// the manager never started.
func (m *Manager) GetTracer(name string) otelTrace.Tracer {
	if m.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// GetTracerProvider returns the provider, or the global one before Start.
func (m *Manager) GetTracerProvider() otelTrace.TracerProvider {
	if m.tracerProvider == nil {
		return otel.GetTracerProvider()
	}
	return m.tracerProvider
}

// GetCircuitBreaker returns the exporter circuit breaker, nil when the
// breaker is disabled or the manager never started.
func (m *Manager) GetCircuitBreaker() *CircuitBreaker {
	return m.circuitBreaker
}

// GetMetricsManager returns the metrics manager, nil when metrics are off.
func (m *Manager) GetMetricsManager() *MetricsManager {
	return m.metricsManager
}

func (m *Manager) IsEnabled() bool {
	return m.config.Enabled
}

func (m *Manager) GetConfig() Config {
	return m.config
}

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/credentials/insecure"
)

// createExporter builds the span exporter the tracer provider will use.
// When the exporter breaker is enabled the primary exporter is wrapped
// so a dead collector degrades to the fallback instead of blocking.
func (m *Manager) createExporter(ctx context.Context) (trace.SpanExporter, error) {
	primary, err := m.buildExporter(ctx, m.config.Exporter.Type)
	if err != nil {
		return nil, fmt.Errorf("create primary exporter failed: %w", err)
	}

	if !m.config.CircuitBreaker.Enabled {
		return primary, nil
	}

	fallback, err := m.buildExporter(ctx, m.config.CircuitBreaker.FallbackExporterType)
	if err != nil {
		m.logger.WarnCtx(ctx, "Failed to create fallback exporter, using noop",
			zap.Error(err),
			zap.String("fallback_type", m.config.CircuitBreaker.FallbackExporterType),
		)
		fallback = &noopExporter{}
	}

	cb := NewCircuitBreaker(m.config.CircuitBreaker, m.logger.GetZapLogger(), primary, fallback)
	m.circuitBreaker = cb

	m.logger.InfoCtx(ctx, "✅ Circuit breaker enabled for telemetry exporter",
		zap.Int("failure_threshold", m.config.CircuitBreaker.FailureThreshold),
		zap.Int("success_threshold", m.config.CircuitBreaker.SuccessThreshold),
		zap.Duration("timeout", m.config.CircuitBreaker.Timeout),
		zap.String("fallback_exporter", m.config.CircuitBreaker.FallbackExporterType),
	)

	return cb, nil
}

func (m *Manager) buildExporter(ctx context.Context, exporterType string) (trace.SpanExporter, error) {
	switch exporterType {
	case "otlp":
		return m.createOTLPExporter(ctx)
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "noop":
		return &noopExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", exporterType)
	}
}

func (m *Manager) createOTLPExporter(ctx context.Context) (trace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(m.config.Exporter.Endpoint),
		otlptracegrpc.WithTimeout(m.config.Exporter.Timeout),
	}
	if m.config.Exporter.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	// extra headers, e.g. collector authentication
	if len(m.config.Exporter.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(m.config.Exporter.Headers))
	}

	return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
}

// noopExporter discards every span.
type noopExporter struct{}

func (n *noopExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noopExporter) Shutdown(ctx context.Context) error {
	return nil
}

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// createTracerProvider assembles the TracerProvider: exporter (wrapped
// with the circuit breaker when enabled), sampler, span processor and
// span limits.
func (m *Manager) createTracerProvider(ctx context.Context, res *resource.Resource) (
	*trace.TracerProvider, func(context.Context) error, error) {

	exporter, err := m.createExporter(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create exporter: %w", err)
	}

	sampler := m.createSampler()

	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(sampler),
	}

	if m.config.Batch.Enabled {
		// batch processing for production, bounds memory and export rate
		batchOpts := []trace.BatchSpanProcessorOption{
			trace.WithMaxQueueSize(m.config.Batch.MaxQueueSize),
			trace.WithMaxExportBatchSize(m.config.Batch.MaxExportBatchSize),
			trace.WithBatchTimeout(m.config.Batch.ScheduleDelay),
			trace.WithExportTimeout(m.config.Batch.ExportTimeout),
		}
		opts = append(opts, trace.WithBatcher(exporter, batchOpts...))
	} else {
		// synchronous export, debugging only
		opts = append(opts, trace.WithSyncer(exporter))
	}

	if m.config.Span.MaxAttributes > 0 {
		opts = append(opts, trace.WithSpanLimits(trace.SpanLimits{
			AttributeCountLimit:       m.config.Span.MaxAttributes,
			EventCountLimit:           m.config.Span.MaxEvents,
			LinkCountLimit:            m.config.Span.MaxLinks,
			AttributeValueLengthLimit: m.config.Span.MaxAttributeLength,
		}))
	}

	tp := trace.NewTracerProvider(opts...)

	shutdownFn := func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}
		return nil
	}

	return tp, shutdownFn, nil
}

// createSampler maps the configured sampler type, defaulting to
// parent based always-on.
func (m *Manager) createSampler() trace.Sampler {
	switch m.config.Sampler.Type {
	case "always_on":
		return trace.AlwaysSample()
	case "always_off":
		return trace.NeverSample()
	case "trace_id_ratio":
		return trace.TraceIDRatioBased(m.config.Sampler.Ratio)
	case "parent_based_always_on":
		return trace.ParentBased(trace.AlwaysSample())
	default:
		return trace.ParentBased(trace.AlwaysSample())
	}
}

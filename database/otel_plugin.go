package database

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const tracerName = "github.com/KOMKZ/go-aegis-framework/database"

// OtelPlugin opens a client span around every gorm operation.
type OtelPlugin struct {
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	traceSQL       bool // attach the SQL text to the span
	sqlMaxLen      int
}

// NewOtelPlugin creates the plugin. A nil tracerProvider falls back to
// the global provider.
func NewOtelPlugin(tracerProvider trace.TracerProvider) *OtelPlugin {
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}

	return &OtelPlugin{
		tracerProvider: tracerProvider,
		tracer:         tracerProvider.Tracer(tracerName),
		sqlMaxLen:      1000,
	}
}

// WithTraceSQL toggles recording the SQL text on spans.
func (p *OtelPlugin) WithTraceSQL(enabled bool) *OtelPlugin {
	p.traceSQL = enabled
	return p
}

// WithSQLMaxLen caps the recorded SQL length.
func (p *OtelPlugin) WithSQLMaxLen(maxLen int) *OtelPlugin {
	if maxLen > 0 {
		p.sqlMaxLen = maxLen
	}
	return p
}

// Name implements gorm.Plugin.
func (p *OtelPlugin) Name() string {
	return "aegis:otel"
}

const spanKey = "aegis:otel:span"

// Initialize implements gorm.Plugin. Each gorm operation gets a
// before/after pair; the before callback carries its operation label
// statically, so the span name is right even before SQL is built.
func (p *OtelPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	registrations := []struct {
		target interface {
			Register(string, func(*gorm.DB)) error
		}
		name string
		fn   func(*gorm.DB)
	}{
		{cb.Create().Before("gorm:create"), "aegis:otel_before_create", p.start("create")},
		{cb.Create().After("gorm:create"), "aegis:otel_after_create", p.finish},
		{cb.Query().Before("gorm:query"), "aegis:otel_before_query", p.start("query")},
		{cb.Query().After("gorm:query"), "aegis:otel_after_query", p.finish},
		{cb.Update().Before("gorm:update"), "aegis:otel_before_update", p.start("update")},
		{cb.Update().After("gorm:update"), "aegis:otel_after_update", p.finish},
		{cb.Delete().Before("gorm:delete"), "aegis:otel_before_delete", p.start("delete")},
		{cb.Delete().After("gorm:delete"), "aegis:otel_after_delete", p.finish},
		{cb.Row().Before("gorm:row"), "aegis:otel_before_row", p.start("row")},
		{cb.Row().After("gorm:row"), "aegis:otel_after_row", p.finish},
		{cb.Raw().Before("gorm:raw"), "aegis:otel_before_raw", p.start("raw")},
		{cb.Raw().After("gorm:raw"), "aegis:otel_after_raw", p.finish},
	}

	for _, r := range registrations {
		if err := r.target.Register(r.name, r.fn); err != nil {
			return err
		}
	}
	return nil
}

func (p *OtelPlugin) start(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		spanName := "gorm." + operation
		if db.Statement.Table != "" {
			spanName += " " + db.Statement.Table
		}

		ctx, span := p.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))

		attrs := []attribute.KeyValue{
			attribute.String("db.system", db.Dialector.Name()),
			attribute.String("db.operation", operation),
		}
		if db.Statement.Table != "" {
			attrs = append(attrs, attribute.String("db.table", db.Statement.Table))
		}
		span.SetAttributes(attrs...)

		// the after callback needs both
		db.Statement.Context = ctx
		db.InstanceSet(spanKey, span)
	}
}

func (p *OtelPlugin) finish(db *gorm.DB) {
	v, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if p.traceSQL {
		if sql := db.Statement.SQL.String(); sql != "" {
			if len(sql) > p.sqlMaxLen {
				sql = sql[:p.sqlMaxLen] + "..."
			}
			span.SetAttributes(attribute.String("db.statement", sql))
		}
		if len(db.Statement.Vars) > 0 {
			span.SetAttributes(attribute.Int("db.vars_count", len(db.Statement.Vars)))
		}
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

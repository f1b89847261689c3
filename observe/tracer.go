package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with cache-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartOp must honor cancellation/deadlines.
// - Errors: EndOp must be best-effort and must not panic.
type Tracer interface {
	// StartOp starts a new span for a cache operation.
	// Span names follow the format cache.<op>.
	StartOp(ctx context.Context, meta CacheMeta, op Op) (context.Context, trace.Span)

	// EndOp ends the span, recording any error.
	EndOp(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartOp starts a new span with cache metadata as attributes.
func (t *tracerImpl) StartOp(ctx context.Context, meta CacheMeta, op Op) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.name", meta.Name),
		attribute.String("cache.op", string(op)),
	}

	ctx, span := t.tracer.Start(ctx, "cache."+string(op),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndOp ends the span and records the error status if present.
func (t *tracerImpl) EndOp(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer creates a no-op tracer.
func NewNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartOp(ctx context.Context, meta CacheMeta, op Op) (context.Context, trace.Span) {
	return t.noop.Start(ctx, "cache."+string(op))
}

func (t *noopTracer) EndOp(span trace.Span, err error) {
	span.End()
}

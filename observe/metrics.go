package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Op names a cache operation for telemetry.
type Op string

const (
	OpGet           Op = "get"
	OpSet           Op = "set"
	OpDelete        Op = "delete"
	OpInvalidateTag Op = "invalidate_tag"
	OpInvalidateAll Op = "invalidate_all"
	OpResolve       Op = "resolve"
)

// Metrics records cache operation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOp records one cache operation. tier is the tier that settled
	// the operation ("l1", "l2", "origin") and may be empty; outcome is a
	// short result label such as "hit", "miss" or "ok".
	RecordOp(ctx context.Context, meta CacheMeta, op Op, tier, outcome string, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	opCount      metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	opCount, err := meter.Int64Counter(
		"cache.op.total",
		metric.WithDescription("Total number of cache operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"cache.op.errors",
		metric.WithDescription("Total number of cache operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"cache.op.duration_ms",
		metric.WithDescription("Cache operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		opCount:      opCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

// RecordOp records metrics for one cache operation.
func (m *metricsImpl) RecordOp(ctx context.Context, meta CacheMeta, op Op, tier, outcome string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.name", meta.Name),
		attribute.String("op", string(op)),
	}
	if tier != "" {
		attrs = append(attrs, attribute.String("tier", tier))
	}
	if outcome != "" {
		attrs = append(attrs, attribute.String("outcome", outcome))
	}

	opt := metric.WithAttributes(attrs...)

	m.opCount.Add(ctx, 1, opt)

	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordOp(context.Context, CacheMeta, Op, string, string, time.Duration, error) {
}

package observe

import (
	"context"
	"time"
)

// EndFunc finishes the recording of one cache operation. tier is the tier
// that settled it (may be empty), outcome is a short result label such as
// "hit", "miss" or "ok".
type EndFunc func(tier, outcome string, err error)

// Recorder ties tracing, metrics and logging together for a single cache
// instance, so the coordinator records each operation with one Begin/End
// pair instead of talking to three components.
//
// Contract:
//   - Concurrency: Begin and the returned EndFunc are safe for concurrent use
//     across operations; a single EndFunc must be called exactly once.
//   - Errors: recording is best-effort and never affects the operation result.
type Recorder struct {
	meta    CacheMeta
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewRecorder creates a Recorder bound to a cache instance, built from an
// Observer's components.
func NewRecorder(obs Observer, meta CacheMeta) (*Recorder, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return &Recorder{
		meta:    meta,
		tracer:  NewTracer(obs.Tracer()),
		metrics: metrics,
		logger:  obs.Logger().WithCache(meta),
	}, nil
}

// NewNoopRecorder creates a Recorder that discards everything.
func NewNoopRecorder(meta CacheMeta) *Recorder {
	return &Recorder{
		meta:    meta,
		tracer:  NewNoopTracer(),
		metrics: &noopMetrics{},
		logger:  &noopLogger{},
	}
}

// Logger returns the recorder's cache-scoped logger.
func (r *Recorder) Logger() Logger {
	return r.logger
}

// Begin starts recording one cache operation: a span is opened and the
// clock starts. The returned EndFunc closes the span, records metrics and
// emits a log line.
func (r *Recorder) Begin(ctx context.Context, op Op) (context.Context, EndFunc) {
	ctx, span := r.tracer.StartOp(ctx, r.meta, op)
	start := time.Now()

	end := func(tier, outcome string, err error) {
		duration := time.Since(start)

		r.tracer.EndOp(span, err)
		r.metrics.RecordOp(ctx, r.meta, op, tier, outcome, duration, err)

		fields := []Field{
			{Key: "op", Value: string(op)},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if tier != "" {
			fields = append(fields, Field{Key: "tier", Value: tier})
		}
		if outcome != "" {
			fields = append(fields, Field{Key: "outcome", Value: outcome})
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			r.logger.Error(ctx, "cache operation failed", fields...)
		} else {
			r.logger.Debug(ctx, "cache operation completed", fields...)
		}
	}

	return ctx, end
}

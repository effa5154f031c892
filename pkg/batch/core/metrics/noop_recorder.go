package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

// RecordDispatch does nothing.
func (r *NoOpMetricRecorder) RecordDispatch(ctx context.Context, jobName string) {}

// RecordDispatchConflict does nothing.
func (r *NoOpMetricRecorder) RecordDispatchConflict(ctx context.Context, jobName string) {}

// RecordInstanceStart does nothing.
func (r *NoOpMetricRecorder) RecordInstanceStart(ctx context.Context, inst *model.Instance) {}

// RecordInstanceEnd does nothing.
func (r *NoOpMetricRecorder) RecordInstanceEnd(ctx context.Context, inst *model.Instance) {}

// RecordChunkStart does nothing.
func (r *NoOpMetricRecorder) RecordChunkStart(ctx context.Context, c *model.Chunk) {}

// RecordChunkEnd does nothing.
func (r *NoOpMetricRecorder) RecordChunkEnd(ctx context.Context, c *model.Chunk) {}

// RecordRecordOutcome does nothing.
func (r *NoOpMetricRecorder) RecordRecordOutcome(ctx context.Context, jobName string, status model.RecordStatus) {
}

// RecordRetry does nothing.
func (r *NoOpMetricRecorder) RecordRetry(ctx context.Context, jobName string, reason string) {}

// RecordDuration does nothing.
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

// StartInstanceSpan returns the context unchanged.
func (t *NoOpTracer) StartInstanceSpan(ctx context.Context, inst *model.Instance) (context.Context, func()) {
	return ctx, func() {}
}

// StartChunkSpan returns the context unchanged.
func (t *NoOpTracer) StartChunkSpan(ctx context.Context, c *model.Chunk) (context.Context, func()) {
	return ctx, func() {}
}

// RecordError does nothing.
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

// RecordEvent does nothing.
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)

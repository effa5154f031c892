package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics related to
// scheduling and instance execution.
//
// This interface provides a standardized way to record scheduler dispatches,
// instance and chunk lifecycle events, and per-record outcomes, facilitating
// integration with different metrics backends (e.g., Prometheus,
// OpenTelemetry Metrics).
type MetricRecorder interface {
	// RecordDispatch records one successful scheduler dispatch of a due
	// schedule.
	//
	// ctx: The context for the operation.
	// jobName: The name of the dispatched job definition.
	RecordDispatch(ctx context.Context, jobName string)

	// RecordDispatchConflict records a lost claim race between concurrent
	// scheduler ticks. Conflicts are expected and benign.
	RecordDispatchConflict(ctx context.Context, jobName string)

	// RecordInstanceStart records the start of an Instance.
	RecordInstanceStart(ctx context.Context, inst *model.Instance)

	// RecordInstanceEnd records the terminal outcome of an Instance.
	RecordInstanceEnd(ctx context.Context, inst *model.Instance)

	// RecordChunkStart records the start of a Chunk.
	RecordChunkStart(ctx context.Context, c *model.Chunk)

	// RecordChunkEnd records the terminal outcome of a Chunk.
	RecordChunkEnd(ctx context.Context, c *model.Chunk)

	// RecordRecordOutcome records one finished record with its terminal
	// status.
	//
	// jobName: The name of the owning job definition.
	// status: The record's terminal status (SUCCESS, ERROR, SKIPPED).
	RecordRecordOutcome(ctx context.Context, jobName string, status model.RecordStatus)

	// RecordRetry records one retry attempt for a record.
	//
	// reason: A string indicating the reason for the retry (e.g., error type).
	RecordRetry(ctx context.Context, jobName string, reason string)

	// RecordDuration records the execution time of a specific operation.
	//
	// name: The name of the duration to record (e.g., "chunk_duration").
	// tags: Additional tags to associate with the duration.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}

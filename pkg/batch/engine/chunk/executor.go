package chunk

import (
	"context"
	"fmt"

	clk "github.com/tigerroll/swell/pkg/batch/core/clock"
	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	repo "github.com/tigerroll/swell/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/swell/pkg/batch/core/metrics"
	"github.com/tigerroll/swell/pkg/batch/engine/retry"
	"github.com/tigerroll/swell/pkg/batch/processor"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
	"github.com/tigerroll/swell/pkg/batch/support/util/logger"
)

const executorModule = "chunk_executor"

// Executor runs one chunk: it walks the chunk's records in ascending
// RecordIndex order, calls the record processor for each, and applies the
// retry and skip rules. Cancellation is honored between record boundaries
// only; an in-flight Process call runs to completion.
type Executor struct {
	chunkRepo  repo.ChunkRepository
	recordRepo repo.RecordRepository
	clock      clk.Clock
	recorder   metrics.MetricRecorder
	tracer     metrics.Tracer
}

// NewExecutor creates a chunk Executor.
func NewExecutor(
	chunkRepo repo.ChunkRepository,
	recordRepo repo.RecordRepository,
	clock clk.Clock,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *Executor {
	return &Executor{
		chunkRepo:  chunkRepo,
		recordRepo: recordRepo,
		clock:      clock,
		recorder:   recorder,
		tracer:     tracer,
	}
}

// Execute processes all records of the chunk with the given processor and
// retry policy, updating chunk and record state as it goes.
//
// Per-record failures never fail the chunk: a record that exhausts its retry
// budget ends in ERROR and execution moves on. Only infrastructure failures
// (storage errors) or cancellation stop the chunk early, leaving the chunk
// FAILED or CANCELLED and the untouched records PENDING.
func (e *Executor) Execute(ctx context.Context, def *model.JobDefinition, proc processor.RecordProcessor, policy retry.RetryPolicy, c *model.Chunk) error {
	ctx, endSpan := e.tracer.StartChunkSpan(ctx, c)
	defer endSpan()

	if err := c.MarkAsRunning(e.clock.Now()); err != nil {
		return exception.NewBatchError(executorModule, fmt.Sprintf("chunk %s cannot start", c.ID), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false)
	}
	if err := e.chunkRepo.UpdateChunk(ctx, c); err != nil {
		return e.failChunk(ctx, c, exception.NewBatchError(executorModule, fmt.Sprintf("failed to persist running chunk %s", c.ID), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false))
	}
	e.recorder.RecordChunkStart(ctx, c)
	logger.Debugf("Chunk %s (index %d) started: records [%d, %d).", c.ID, c.ChunkIndex, c.StartOffset, c.EndOffset)

	records, err := e.recordRepo.FindRecordsByChunkID(ctx, c.ID)
	if err != nil {
		return e.failChunk(ctx, c, exception.NewBatchError(executorModule, fmt.Sprintf("failed to load records of chunk %s", c.ID), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false))
	}

	for _, record := range records {
		// Cancellation is only observed between records.
		if ctx.Err() != nil {
			return e.cancelChunk(ctx, c)
		}
		if record.Status.IsTerminal() {
			continue
		}

		if err := e.processRecord(ctx, def, proc, policy, c, record); err != nil {
			return e.failChunk(ctx, c, err)
		}
	}

	if ctx.Err() != nil {
		return e.cancelChunk(ctx, c)
	}

	if err := c.MarkAsCompleted(e.clock.Now()); err != nil {
		return e.failChunk(ctx, c, exception.NewBatchError(executorModule, fmt.Sprintf("chunk %s cannot complete", c.ID), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false))
	}
	if err := e.chunkRepo.UpdateChunk(ctx, c); err != nil {
		return exception.NewBatchError(executorModule, fmt.Sprintf("failed to persist completed chunk %s", c.ID), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false)
	}
	e.recorder.RecordChunkEnd(ctx, c)
	logger.Debugf("Chunk %s completed: %d success, %d error, %d skipped, %d retries.",
		c.ID, c.SuccessRecords, c.ErrorRecords, c.SkippedRecords, c.RetryCount)
	return nil
}

// processRecord drives one record to a terminal state, consuming the retry
// budget as needed. It returns an error only for infrastructure failures;
// record-level outcomes are absorbed into the counters.
func (e *Executor) processRecord(ctx context.Context, def *model.JobDefinition, proc processor.RecordProcessor, policy retry.RetryPolicy, c *model.Chunk, record *model.Record) error {
	for {
		if err := record.MarkAsProcessing(); err != nil {
			return exception.NewBatchError(executorModule, fmt.Sprintf("record %d cannot start processing", record.RecordIndex), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false)
		}
		if err := e.recordRepo.UpdateRecord(ctx, record); err != nil {
			return exception.NewBatchError(executorModule, fmt.Sprintf("failed to persist processing record %d", record.RecordIndex), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false)
		}

		result, procErr, panicErr := e.invoke(ctx, proc, record)
		if panicErr != nil {
			// A processor panic is a chunk-level failure, not a record outcome.
			if err := record.MarkAsError(panicErr); err != nil {
				logger.Warnf("Record %d could not be marked ERROR after panic: %v", record.RecordIndex, err)
			} else {
				if uerr := e.recordRepo.UpdateRecord(context.WithoutCancel(ctx), record); uerr != nil {
					logger.Errorf("Failed to persist panicked record %d: %v", record.RecordIndex, uerr)
				}
				c.RecordFinished(record.Status, record.RetryCount)
			}
			return panicErr
		}

		switch {
		case procErr == nil:
			if err := record.MarkAsSuccess(result); err != nil {
				return exception.NewBatchError(executorModule, fmt.Sprintf("record %d cannot finish", record.RecordIndex), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false)
			}
			e.recorder.RecordRecordOutcome(ctx, def.Name, model.RecordStatusSuccess)

		case processor.IsSkip(procErr):
			if err := record.MarkAsSkipped(exception.ExtractErrorMessage(procErr)); err != nil {
				return exception.NewBatchError(executorModule, fmt.Sprintf("record %d cannot be skipped", record.RecordIndex), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false)
			}
			e.recorder.RecordRecordOutcome(ctx, def.Name, model.RecordStatusSkipped)
			logger.Debugf("Record %d of chunk %s skipped: %s", record.RecordIndex, c.ID, record.ErrorMessage)

		case policy.ShouldRetry(procErr) && record.RetryCount < policy.MaxRetries():
			// The same record row is reused for the next attempt.
			if err := record.ReturnForRetry(procErr); err != nil {
				return exception.NewBatchError(executorModule, fmt.Sprintf("record %d cannot be returned for retry", record.RecordIndex), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false)
			}
			if err := e.recordRepo.UpdateRecord(ctx, record); err != nil {
				return exception.NewBatchError(executorModule, fmt.Sprintf("failed to persist retried record %d", record.RecordIndex), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false)
			}
			e.recorder.RecordRetry(ctx, def.Name, exception.ExtractErrorMessage(procErr))
			logger.Debugf("Record %d of chunk %s returned for retry %d/%d: %v",
				record.RecordIndex, c.ID, record.RetryCount, policy.MaxRetries(), procErr)

			if err := e.backoff(ctx, policy, record.RetryCount); err != nil {
				return nil // cancelled during backoff; caller observes ctx.Err()
			}
			continue

		default:
			wrapped := exception.NewBatchError(executorModule, fmt.Sprintf("record %d failed permanently", record.RecordIndex), fmt.Errorf("%w: %v", exception.ErrRecordProcessing, procErr), false, false)
			if err := record.MarkAsError(wrapped); err != nil {
				return exception.NewBatchError(executorModule, fmt.Sprintf("record %d cannot be failed", record.RecordIndex), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false)
			}
			e.recorder.RecordRecordOutcome(ctx, def.Name, model.RecordStatusError)
			e.tracer.RecordError(ctx, executorModule, wrapped)
			logger.Warnf("Record %d of chunk %s failed after %d retries: %v", record.RecordIndex, c.ID, record.RetryCount, procErr)
		}

		if err := e.recordRepo.UpdateRecord(ctx, record); err != nil {
			return exception.NewBatchError(executorModule, fmt.Sprintf("failed to persist finished record %d", record.RecordIndex), fmt.Errorf("%w: %v", exception.ErrChunkExecution, err), false, false)
		}
		c.RecordFinished(record.Status, record.RetryCount)
		return nil
	}
}

// invoke runs one processor attempt, recovering a panic into a chunk
// execution error. The panic never propagates past the executor; other
// chunks and instances keep running.
func (e *Executor) invoke(ctx context.Context, proc processor.RecordProcessor, record *model.Record) (result model.Payload, procErr error, panicErr error) {
	defer func() {
		if r := recover(); r != nil {
			panicErr = exception.NewBatchError(executorModule,
				fmt.Sprintf("processor '%s' panicked on record %d: %v", proc.Name(), record.RecordIndex, r),
				exception.ErrChunkExecution, false, false)
		}
	}()
	result, procErr = proc.Process(ctx, record.Input.Copy())
	return result, procErr, nil
}

// backoff waits the policy's interval before the next attempt, aborting when
// the context is cancelled.
func (e *Executor) backoff(ctx context.Context, policy retry.RetryPolicy, attempt int) error {
	interval := policy.BackoffInterval(attempt)
	if interval <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clock.After(interval):
		return nil
	}
}

// failChunk marks the chunk FAILED, persists it best-effort, and returns the
// causing error.
func (e *Executor) failChunk(ctx context.Context, c *model.Chunk, cause error) error {
	if err := c.MarkAsFailed(e.clock.Now(), cause); err != nil {
		logger.Warnf("Chunk %s could not be marked FAILED: %v", c.ID, err)
	} else if err := e.chunkRepo.UpdateChunk(context.WithoutCancel(ctx), c); err != nil {
		logger.Errorf("Failed to persist FAILED chunk %s: %v", c.ID, err)
	}
	e.recorder.RecordChunkEnd(ctx, c)
	e.tracer.RecordError(ctx, executorModule, cause)
	return cause
}

// cancelChunk marks the chunk CANCELLED and persists it. Untouched records
// remain PENDING.
func (e *Executor) cancelChunk(ctx context.Context, c *model.Chunk) error {
	if err := c.MarkAsCancelled(e.clock.Now()); err != nil {
		logger.Warnf("Chunk %s could not be marked CANCELLED: %v", c.ID, err)
	} else if err := e.chunkRepo.UpdateChunk(context.WithoutCancel(ctx), c); err != nil {
		logger.Errorf("Failed to persist CANCELLED chunk %s: %v", c.ID, err)
	}
	e.recorder.RecordChunkEnd(ctx, c)
	logger.Infof("Chunk %s (index %d) cancelled.", c.ID, c.ChunkIndex)
	return ctx.Err()
}

// Package transfer runs file-transfer jobs: a single opaque transfer
// operation instead of a chunk/record decomposition, reporting progress in
// bytes. Transfers share the instance status machine and the scheduler
// contract with chunked jobs.
package transfer

import (
	"context"
	"math"
	"sync/atomic"

	clk "github.com/tigerroll/swell/pkg/batch/core/clock"
	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	repo "github.com/tigerroll/swell/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/swell/pkg/batch/core/metrics"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
	"github.com/tigerroll/swell/pkg/batch/support/util/logger"
)

const moduleName = "transfer_runner"

const timeoutMessage = "timeout"

// ProgressFunc reports transfer progress. total may be zero when the size is
// unknown up front.
type ProgressFunc func(transferredBytes, totalBytes int64)

// Transferrer performs one opaque transfer operation. Implementations must
// observe ctx between I/O operations; cancellation is cooperative.
type Transferrer interface {
	Name() string
	Transfer(ctx context.Context, params model.Payload, report ProgressFunc) error
}

// Progress is the derived byte-count progress view of a transfer instance.
type Progress struct {
	TransferredBytes int64
	TotalBytes       int64
	Percentage       float64
}

// ComputeProgress derives byte progress, clamped to [0, 100] and guarded
// against an unknown total.
func ComputeProgress(transferredBytes, totalBytes int64) Progress {
	p := Progress{TransferredBytes: transferredBytes, TotalBytes: totalBytes}
	if totalBytes <= 0 {
		return p
	}
	pct := float64(transferredBytes) / float64(totalBytes) * 100
	p.Percentage = math.Min(100, math.Round(pct*100)/100)
	return p
}

// Runner drives one transfer instance through the queued, running, terminal
// status machine.
type Runner struct {
	instRepo repo.InstanceRepository
	clock    clk.Clock
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
}

// NewRunner creates a transfer Runner.
func NewRunner(instRepo repo.InstanceRepository, clock clk.Clock, recorder metrics.MetricRecorder, tracer metrics.Tracer) *Runner {
	return &Runner{instRepo: instRepo, clock: clock, recorder: recorder, tracer: tracer}
}

// Run executes the transfer and settles the instance into a terminal status.
// Timeout fails the instance with error message "timeout"; context
// cancellation cancels it. Byte counts are written into the instance output
// payload as transferred_bytes and total_bytes.
func (r *Runner) Run(ctx context.Context, def *model.JobDefinition, inst *model.Instance, t Transferrer) error {
	ctx, end := r.tracer.StartInstanceSpan(ctx, inst)
	defer end()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	now := r.clock.Now()
	if err := inst.MarkAsRunning(now); err != nil {
		return err
	}
	if err := r.instRepo.UpdateInstance(ctx, inst); err != nil {
		return exception.NewBatchError(moduleName, "failed to persist running transfer instance", err, false, true)
	}
	r.recorder.RecordInstanceStart(ctx, inst)
	logger.Infof("Transfer instance %s started via %s.", inst.ID, t.Name())

	var transferred, total atomic.Int64
	report := func(transferredBytes, totalBytes int64) {
		transferred.Store(transferredBytes)
		total.Store(totalBytes)
	}

	var timedOut atomic.Bool
	if timeout := def.Timeout(); timeout > 0 {
		watchdog := make(chan struct{})
		defer close(watchdog)
		go func() {
			select {
			case <-r.clock.After(timeout):
				timedOut.Store(true)
				cancel()
			case <-runCtx.Done():
			case <-watchdog:
			}
		}()
	}

	transferErr := t.Transfer(runCtx, inst.Parameters, report)

	persistCtx := context.WithoutCancel(ctx)
	settledAt := r.clock.Now()
	// Transfers progress in bytes; the instance counters carry byte counts so
	// the shared progress view derives the same way as for chunked jobs.
	inst.TotalRecords = int(total.Load())
	inst.ProcessedRecords = int(transferred.Load())
	inst.SuccessRecords = inst.ProcessedRecords

	var terminalErr error
	switch {
	case timedOut.Load():
		terminalErr = inst.MarkAsFailed(settledAt, exception.NewBatchError(moduleName, timeoutMessage, exception.ErrInstanceTimeout, false, false))
	case ctx.Err() != nil:
		terminalErr = inst.MarkAsCancelled(settledAt)
	case transferErr != nil:
		terminalErr = inst.MarkAsFailed(settledAt, transferErr)
	default:
		terminalErr = inst.MarkAsCompleted(settledAt)
	}
	if terminalErr != nil {
		return terminalErr
	}
	if err := r.instRepo.UpdateInstance(persistCtx, inst); err != nil {
		return exception.NewBatchError(moduleName, "failed to persist terminal transfer instance", err, false, true)
	}
	r.recorder.RecordInstanceEnd(persistCtx, inst)
	logger.Infof("Transfer instance %s finished %s (%d/%d bytes).", inst.ID, inst.Status, transferred.Load(), total.Load())

	if inst.Status == model.StatusFailed && transferErr != nil && !timedOut.Load() {
		return transferErr
	}
	return nil
}

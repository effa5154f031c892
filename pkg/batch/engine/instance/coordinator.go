package instance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	clk "github.com/tigerroll/swell/pkg/batch/core/clock"
	config "github.com/tigerroll/swell/pkg/batch/core/config"
	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	repo "github.com/tigerroll/swell/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/swell/pkg/batch/core/metrics"
	"github.com/tigerroll/swell/pkg/batch/engine/chunk"
	"github.com/tigerroll/swell/pkg/batch/engine/retry"
	"github.com/tigerroll/swell/pkg/batch/processor"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
	"github.com/tigerroll/swell/pkg/batch/support/util/logger"
)

const coordinatorModule = "instance_coordinator"

// timeoutMessage is the exact error message recorded on instances that
// exceed their configured timeout.
const timeoutMessage = "timeout"

// Coordinator drives one instance from QUEUED to a terminal state. It plans
// the dataset into chunks, executes them with the definition's parallelism
// bound, supervises the timeout, and decides the terminal status from the
// aggregated counters and the definition's error rate threshold.
type Coordinator struct {
	instanceRepo repo.InstanceRepository
	chunkRepo    repo.ChunkRepository
	recordRepo   repo.RecordRepository
	planner      *chunk.Planner
	executor     *chunk.Executor
	registry     *processor.Registry
	retryFactory *retry.DefaultRetryPolicyFactory
	source       RecordSource
	clock        clk.Clock
	recorder     metrics.MetricRecorder
	tracer       metrics.Tracer
	cfg          *config.Config

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// CoordinatorParams defines the dependencies for NewCoordinator.
type CoordinatorParams struct {
	fx.In

	InstanceRepo repo.InstanceRepository
	ChunkRepo    repo.ChunkRepository
	RecordRepo   repo.RecordRepository
	Planner      *chunk.Planner
	Executor     *chunk.Executor
	Registry     *processor.Registry
	RetryFactory *retry.DefaultRetryPolicyFactory
	Source       RecordSource
	Clock        clk.Clock
	Recorder     metrics.MetricRecorder
	Tracer       metrics.Tracer
	Config       *config.Config
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(p CoordinatorParams) *Coordinator {
	return &Coordinator{
		instanceRepo: p.InstanceRepo,
		chunkRepo:    p.ChunkRepo,
		recordRepo:   p.RecordRepo,
		planner:      p.Planner,
		executor:     p.Executor,
		registry:     p.Registry,
		retryFactory: p.RetryFactory,
		source:       p.Source,
		clock:        p.Clock,
		recorder:     p.Recorder,
		tracer:       p.Tracer,
		cfg:          p.Config,
		cancels:      make(map[string]context.CancelFunc),
	}
}

// Run executes the instance to completion. It blocks until the instance
// reaches a terminal state; callers dispatch it on its own goroutine.
func (co *Coordinator) Run(ctx context.Context, def *model.JobDefinition, inst *model.Instance) error {
	ctx, endSpan := co.tracer.StartInstanceSpan(ctx, inst)
	defer endSpan()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	co.registerCancel(inst.ID, cancel)
	defer co.unregisterCancel(inst.ID)

	if err := inst.MarkAsRunning(co.clock.Now()); err != nil {
		return exception.NewBatchError(coordinatorModule, fmt.Sprintf("instance %s cannot start", inst.ID), err, false, false)
	}
	if err := co.instanceRepo.UpdateInstance(runCtx, inst); err != nil {
		return co.finishFailed(ctx, inst, nil, exception.NewBatchError(coordinatorModule, fmt.Sprintf("failed to persist running instance %s", inst.ID), err, false, false))
	}
	co.recorder.RecordInstanceStart(ctx, inst)
	logger.Infof("Instance %s of job '%s' started.", inst.ID, def.Name)

	proc, err := co.resolveProcessor(def)
	if err != nil {
		return co.finishFailed(ctx, inst, nil, err)
	}

	chunks, err := co.plan(runCtx, def, inst)
	if err != nil {
		return co.finishFailed(ctx, inst, nil, err)
	}

	// Timeout supervision: the watchdog cancels the run context, and the
	// terminal decision distinguishes timeout from external cancellation.
	timedOut := co.superviseTimeout(runCtx, cancel, def)

	policy := co.retryFactory.Create(def.MaxRetries, nil)
	chunkErrs := co.executeChunks(runCtx, def, proc, policy, inst, chunks)

	return co.finish(ctx, def, inst, chunks, chunkErrs, timedOut)
}

// Cancel requests cooperative cancellation of a running instance. It returns
// false when the instance is not currently running under this coordinator.
func (co *Coordinator) Cancel(instanceID string) bool {
	co.mu.Lock()
	cancel, ok := co.cancels[instanceID]
	co.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (co *Coordinator) registerCancel(id string, cancel context.CancelFunc) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.cancels[id] = cancel
}

func (co *Coordinator) unregisterCancel(id string) {
	co.mu.Lock()
	defer co.mu.Unlock()
	delete(co.cancels, id)
}

// resolveProcessor looks up the definition's processor and applies its Config
// payload once per run.
func (co *Coordinator) resolveProcessor(def *model.JobDefinition) (processor.RecordProcessor, error) {
	proc, err := co.registry.Resolve(def.ProcessorName)
	if err != nil {
		return nil, err
	}
	if configurable, ok := proc.(processor.ConfigurableRecordProcessor); ok {
		if err := configurable.Configure(def.Config); err != nil {
			return nil, exception.NewBatchError(coordinatorModule, fmt.Sprintf("processor '%s' rejected job config", def.ProcessorName), err, false, false)
		}
	}
	return proc, nil
}

// plan loads the dataset, splits it into chunks, and persists chunks and
// pending records. Re-planning an instance with the same dataset yields the
// same chunk boundaries.
func (co *Coordinator) plan(ctx context.Context, def *model.JobDefinition, inst *model.Instance) ([]*model.Chunk, error) {
	inputs, err := co.source.Load(ctx, def, inst)
	if err != nil {
		return nil, err
	}

	chunkSize := def.ChunkSize
	if chunkSize <= 0 {
		chunkSize = co.cfg.Swell.Scheduler.DefaultChunkSize
	}

	chunks, err := co.planner.Plan(inst.ID, len(inputs), chunkSize)
	if err != nil {
		return nil, err
	}
	records, err := co.planner.BuildRecords(inst.ID, chunks, inputs)
	if err != nil {
		return nil, err
	}

	if err := co.chunkRepo.SaveChunks(ctx, chunks); err != nil {
		return nil, exception.NewBatchError(coordinatorModule, fmt.Sprintf("failed to persist chunks of instance %s", inst.ID), err, false, false)
	}
	if err := co.recordRepo.SaveRecords(ctx, records); err != nil {
		return nil, exception.NewBatchError(coordinatorModule, fmt.Sprintf("failed to persist records of instance %s", inst.ID), err, false, false)
	}

	inst.TotalRecords = len(inputs)
	if err := co.instanceRepo.UpdateInstance(ctx, inst); err != nil {
		return nil, exception.NewBatchError(coordinatorModule, fmt.Sprintf("failed to persist planned instance %s", inst.ID), err, false, false)
	}
	logger.Debugf("Instance %s planned: %d records in %d chunks of size %d.", inst.ID, len(inputs), len(chunks), chunkSize)
	return chunks, nil
}

// superviseTimeout starts the timeout watchdog if the definition has one.
// The returned flag reads true once the watchdog has fired.
func (co *Coordinator) superviseTimeout(ctx context.Context, cancel context.CancelFunc, def *model.JobDefinition) *atomic.Bool {
	timedOut := new(atomic.Bool)
	timeout := def.Timeout()
	if timeout <= 0 {
		return timedOut
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-co.clock.After(timeout):
			timedOut.Store(true)
			logger.Warnf("Instance timeout of %s reached for job '%s'; cancelling chunks.", timeout, def.Name)
			cancel()
		}
	}()
	return timedOut
}

// executeChunks runs the chunks with the definition's parallelism bound,
// applying each finished chunk's counters to the instance. Chunk execution
// errors are collected, not short-circuited: remaining chunks still run
// unless the context is cancelled.
func (co *Coordinator) executeChunks(ctx context.Context, def *model.JobDefinition, proc processor.RecordProcessor, policy retry.RetryPolicy, inst *model.Instance, chunks []*model.Chunk) error {
	parallelism := def.Parallelism
	if parallelism <= 0 {
		parallelism = co.cfg.Swell.Scheduler.DefaultParallelism
	}
	if parallelism < 1 {
		parallelism = 1
	}

	var (
		wg        sync.WaitGroup
		resultMu  sync.Mutex
		collected error
	)
	sem := make(chan struct{}, parallelism)

	for _, c := range chunks {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(c *model.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()

			err := co.executor.Execute(ctx, def, proc, policy, c)

			resultMu.Lock()
			defer resultMu.Unlock()
			inst.ApplyChunkCounters(c)
			if err != nil && ctx.Err() == nil {
				collected = multierror.Append(collected, err)
			}
		}(c)
	}
	wg.Wait()

	if err := co.instanceRepo.UpdateInstance(context.WithoutCancel(ctx), inst); err != nil {
		logger.Errorf("Failed to persist counters of instance %s: %v", inst.ID, err)
	}
	return collected
}

// finish decides and persists the instance's terminal state.
//
// Precedence: timeout, then external cancellation, then chunk execution
// failures, then the error rate threshold. A threshold of zero is strict:
// any error record fails the instance. A positive threshold tolerates an
// error fraction up to and including the threshold.
func (co *Coordinator) finish(ctx context.Context, def *model.JobDefinition, inst *model.Instance, chunks []*model.Chunk, chunkErrs error, timedOut *atomic.Bool) error {
	now := co.clock.Now()

	switch {
	case timedOut.Load():
		co.cancelRemainingChunks(ctx, chunks)
		timeoutErr := exception.NewBatchError(coordinatorModule, timeoutMessage, exception.ErrInstanceTimeout, false, false)
		if err := inst.MarkAsFailed(now, timeoutErr); err != nil {
			logger.Warnf("Instance %s could not be marked FAILED: %v", inst.ID, err)
		}

	case ctx.Err() != nil:
		co.cancelRemainingChunks(ctx, chunks)
		if err := inst.MarkAsCancelled(now); err != nil {
			logger.Warnf("Instance %s could not be marked CANCELLED: %v", inst.ID, err)
		}

	case chunkErrs != nil:
		co.cancelRemainingChunks(ctx, chunks)
		if err := inst.MarkAsFailed(now, exception.NewBatchError(coordinatorModule, "one or more chunks failed", chunkErrs, false, false)); err != nil {
			logger.Warnf("Instance %s could not be marked FAILED: %v", inst.ID, err)
		}

	case inst.ErrorRecords > 0 && (def.ErrorRateThreshold == 0 || inst.ErrorRate() > def.ErrorRateThreshold):
		rateErr := exception.NewBatchError(coordinatorModule,
			fmt.Sprintf("%d of %d records failed (error rate %.4f exceeds threshold %.4f)", inst.ErrorRecords, inst.TotalRecords, inst.ErrorRate(), def.ErrorRateThreshold),
			exception.ErrRecordProcessing, false, false)
		if err := inst.MarkAsFailed(now, rateErr); err != nil {
			logger.Warnf("Instance %s could not be marked FAILED: %v", inst.ID, err)
		}

	default:
		if err := inst.MarkAsCompleted(now); err != nil {
			logger.Warnf("Instance %s could not be marked COMPLETED: %v", inst.ID, err)
		}
	}

	if err := co.instanceRepo.UpdateInstance(context.WithoutCancel(ctx), inst); err != nil {
		return exception.NewBatchError(coordinatorModule, fmt.Sprintf("failed to persist terminal instance %s", inst.ID), err, false, false)
	}
	co.recorder.RecordInstanceEnd(ctx, inst)
	logger.Infof("Instance %s of job '%s' finished with status %s (%d/%d records, %d errors, %d skipped).",
		inst.ID, def.Name, inst.Status, inst.ProcessedRecords, inst.TotalRecords, inst.ErrorRecords, inst.SkippedRecords)

	if inst.Status == model.StatusFailed && inst.ErrorMessage != "" {
		return exception.NewBatchError(coordinatorModule, inst.ErrorMessage, nil, false, false)
	}
	return nil
}

// finishFailed marks the instance FAILED before any chunk ran and persists
// it, returning the causing error.
func (co *Coordinator) finishFailed(ctx context.Context, inst *model.Instance, chunks []*model.Chunk, cause error) error {
	co.cancelRemainingChunks(ctx, chunks)
	if err := inst.MarkAsFailed(co.clock.Now(), cause); err != nil {
		logger.Warnf("Instance %s could not be marked FAILED: %v", inst.ID, err)
	}
	if err := co.instanceRepo.UpdateInstance(context.WithoutCancel(ctx), inst); err != nil {
		logger.Errorf("Failed to persist FAILED instance %s: %v", inst.ID, err)
	}
	co.recorder.RecordInstanceEnd(ctx, inst)
	co.tracer.RecordError(ctx, coordinatorModule, cause)
	return cause
}

// cancelRemainingChunks marks chunks that never reached a terminal state as
// CANCELLED. Chunks already terminal keep their outcome.
func (co *Coordinator) cancelRemainingChunks(ctx context.Context, chunks []*model.Chunk) {
	for _, c := range chunks {
		if c.Status.IsTerminal() {
			continue
		}
		if err := c.MarkAsCancelled(co.clock.Now()); err != nil {
			logger.Warnf("Chunk %s could not be marked CANCELLED: %v", c.ID, err)
			continue
		}
		if err := co.chunkRepo.UpdateChunk(context.WithoutCancel(ctx), c); err != nil {
			logger.Errorf("Failed to persist CANCELLED chunk %s: %v", c.ID, err)
		}
	}
}

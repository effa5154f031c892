// Package scheduler implements the dispatch loop: it polls for due
// schedules, claims each firing atomically, and hands the resulting
// instances to the coordinator. Multiple scheduler replicas may tick against
// the same storage; the claim guarantees at most one instance per firing.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	clk "github.com/tigerroll/swell/pkg/batch/core/clock"
	config "github.com/tigerroll/swell/pkg/batch/core/config"
	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	repo "github.com/tigerroll/swell/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/swell/pkg/batch/core/metrics"
	"github.com/tigerroll/swell/pkg/batch/engine/instance"
	"github.com/tigerroll/swell/pkg/batch/engine/schedule"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
	"github.com/tigerroll/swell/pkg/batch/support/util/logger"
)

const moduleName = "scheduler"

// Scheduler polls for due schedules on a fixed tick and dispatches them.
type Scheduler struct {
	defRepo     repo.JobDefinitionRepository
	schedRepo   repo.ScheduleRepository
	instRepo    repo.InstanceRepository
	evaluator   *schedule.Evaluator
	coordinator *instance.Coordinator
	clock       clk.Clock
	recorder    metrics.MetricRecorder
	cfg         *config.Config

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	// sem bounds concurrently running instances when configured.
	sem chan struct{}
}

// SchedulerParams defines the dependencies for NewScheduler.
type SchedulerParams struct {
	fx.In

	DefRepo     repo.JobDefinitionRepository
	SchedRepo   repo.ScheduleRepository
	InstRepo    repo.InstanceRepository
	Evaluator   *schedule.Evaluator
	Coordinator *instance.Coordinator
	Clock       clk.Clock
	Recorder    metrics.MetricRecorder
	Config      *config.Config
}

// NewScheduler creates a Scheduler.
func NewScheduler(p SchedulerParams) *Scheduler {
	var sem chan struct{}
	if max := p.Config.Swell.Scheduler.MaxConcurrentInstances; max > 0 {
		sem = make(chan struct{}, max)
	}
	return &Scheduler{
		defRepo:     p.DefRepo,
		schedRepo:   p.SchedRepo,
		instRepo:    p.InstRepo,
		evaluator:   p.Evaluator,
		coordinator: p.Coordinator,
		clock:       p.Clock,
		recorder:    p.Recorder,
		cfg:         p.Config,
		stop:        make(chan struct{}),
		sem:         sem,
	}
}

// Start launches the tick loop on its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	interval := time.Duration(s.cfg.Swell.Scheduler.TickIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger.Infof("Scheduler started with tick interval %s.", interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			case <-s.clock.After(interval):
				if err := s.Tick(ctx); err != nil {
					logger.Errorf("Scheduler tick failed: %v", err)
				}
			}
		}
	}()
}

// Stop halts the tick loop and waits for in-flight instances, bounded by the
// context deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Infof("Scheduler stopped.")
		return nil
	case <-ctx.Done():
		logger.Warnf("Scheduler stop timed out with instances still running.")
		return ctx.Err()
	}
}

// Tick performs one dispatch pass: every due schedule is claimed and, on a
// won claim, turned into exactly one new instance. Ticks are safe to run
// concurrently; losing claimers observe a conflict and move on.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.clock.Now()
	due, err := s.schedRepo.FindDueSchedules(ctx, now)
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to query due schedules", err, false, false)
	}

	for _, sched := range due {
		if err := s.dispatch(ctx, sched, now); err != nil {
			if s.isConflict(err) {
				// Another tick won this firing.
				logger.Debugf("Schedule %s already claimed by a concurrent tick.", sched.ID)
				continue
			}
			logger.Errorf("Failed to dispatch schedule %s: %v", sched.ID, err)
		}
	}
	return nil
}

// dispatch consumes one due firing of the schedule observed at now.
func (s *Scheduler) dispatch(ctx context.Context, sched *model.Schedule, now time.Time) error {
	def, err := s.defRepo.FindJobDefinitionByID(ctx, sched.JobDefinitionID)
	if err != nil {
		if errors.Is(err, repo.ErrJobDefinitionNotFound) {
			logger.Warnf("Schedule %s references missing job definition %s; deactivating.", sched.ID, sched.JobDefinitionID)
			return s.deactivate(ctx, sched)
		}
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to load job definition %s", sched.JobDefinitionID), err, false, false)
	}
	if !def.IsActive {
		// Schedules of a deactivated definition stop firing.
		logger.Infof("Job definition '%s' is inactive; deactivating schedule %s.", def.Name, sched.ID)
		return s.deactivate(ctx, sched)
	}

	expected := sched.NextRunTime
	if expected == nil {
		return nil
	}

	// Compute the post-firing next run time as if the due firing were already
	// consumed at now: one-time schedules exhaust, interval schedules anchor
	// on this firing, cron schedules advance past now.
	fired := *sched
	firedAt := now
	fired.LastRunTime = &firedAt
	next, err := s.evaluator.NextRunTime(&fired, now)
	if err != nil {
		if exception.IsErrorOfType(err, "InvalidCronExpression") {
			logger.Errorf("Schedule %s carries an unparseable cron expression; deactivating: %v", sched.ID, err)
			return s.deactivate(ctx, sched)
		}
		return err
	}

	if err := s.schedRepo.ClaimSchedule(ctx, sched.ID, *expected, now, next); err != nil {
		if s.isConflict(err) {
			s.recorder.RecordDispatchConflict(ctx, def.Name)
		}
		return err
	}

	// The claim is consumed at this point. A failure below leaves the
	// schedule advanced: the firing is lost, never duplicated.
	inst := model.NewInstance(def.ID, sched.ID, nil)
	if err := s.instRepo.SaveInstance(ctx, inst); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("claimed firing of schedule %s but failed to create instance", sched.ID), err, false, false)
	}
	s.recorder.RecordDispatch(ctx, def.Name)
	logger.Infof("Schedule %s fired: instance %s of job '%s' queued.", sched.ID, inst.ID, def.Name)

	s.launch(ctx, def, inst)
	return nil
}

// Launch runs the instance asynchronously under the scheduler's concurrency
// bound. It is also the entry point for manually triggered instances.
func (s *Scheduler) Launch(ctx context.Context, def *model.JobDefinition, inst *model.Instance) {
	s.launch(ctx, def, inst)
}

func (s *Scheduler) launch(ctx context.Context, def *model.JobDefinition, inst *model.Instance) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.sem != nil {
			select {
			case s.sem <- struct{}{}:
				defer func() { <-s.sem }()
			case <-ctx.Done():
				return
			}
		}
		if err := s.coordinator.Run(ctx, def, inst); err != nil {
			logger.Warnf("Instance %s of job '%s' ended with error: %v", inst.ID, def.Name, err)
		}
	}()
}

// deactivate persists a schedule switch-off.
func (s *Scheduler) deactivate(ctx context.Context, sched *model.Schedule) error {
	sched.Deactivate()
	if err := s.schedRepo.UpdateSchedule(ctx, sched); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to deactivate schedule %s", sched.ID), err, false, false)
	}
	return nil
}

// isConflict reports whether the error indicates a lost claim race.
func (s *Scheduler) isConflict(err error) bool {
	return errors.Is(err, repo.ErrConflict) || exception.IsDispatchConflict(err)
}

// Package usecase exposes the administrative and trigger operations of the
// engine: definition and schedule management, manual triggering,
// cancellation, and progress inspection.
package usecase

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	clk "github.com/tigerroll/swell/pkg/batch/core/clock"
	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	repo "github.com/tigerroll/swell/pkg/batch/core/domain/repository"
	"github.com/tigerroll/swell/pkg/batch/engine/instance"
	"github.com/tigerroll/swell/pkg/batch/engine/schedule"
	"github.com/tigerroll/swell/pkg/batch/engine/scheduler"
	"github.com/tigerroll/swell/pkg/batch/processor"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
	"github.com/tigerroll/swell/pkg/batch/support/util/logger"
)

const moduleName = "job_operator"

// JobOperator is the administrative surface of the engine. All methods are
// safe for concurrent use.
type JobOperator interface {
	// CreateJobDefinition validates and persists a new definition.
	CreateJobDefinition(ctx context.Context, def *model.JobDefinition) error
	// UpdateJobDefinition validates and persists definition edits.
	UpdateJobDefinition(ctx context.Context, def *model.JobDefinition) error
	// DeactivateJobDefinition soft-deletes a definition. Its schedules stop
	// firing on the next tick; running instances are unaffected.
	DeactivateJobDefinition(ctx context.Context, id string) error

	// CreateSchedule validates and persists a new schedule for a definition.
	// Cron expressions are parsed here so invalid ones never reach the tick
	// loop, and the first NextRunTime is computed immediately.
	CreateSchedule(ctx context.Context, s *model.Schedule) error
	// UpdateSchedule validates and persists schedule edits, recomputing
	// NextRunTime.
	UpdateSchedule(ctx context.Context, s *model.Schedule) error
	// DeactivateSchedule stops a schedule from firing.
	DeactivateSchedule(ctx context.Context, id string) error

	// TriggerInstance creates and launches an instance outside of any
	// schedule. Returns the queued instance.
	TriggerInstance(ctx context.Context, jobDefinitionID string, params model.Payload) (*model.Instance, error)
	// CancelInstance requests cancellation of a queued or running instance.
	// Cancelling an already-terminal instance is an error.
	CancelInstance(ctx context.Context, instanceID string) error
	// GetInstance returns an instance snapshot: status, counters, error
	// message and the derived progress view.
	GetInstance(ctx context.Context, instanceID string) (*InstanceSnapshot, error)
	// GetProgress returns only the derived progress view of an instance.
	GetProgress(ctx context.Context, instanceID string) (*model.Progress, error)
	// ListInstances lists the instances of a definition, newest first.
	ListInstances(ctx context.Context, jobDefinitionID string) ([]*model.Instance, error)
}

// DefaultJobOperator is the default implementation of JobOperator.
type DefaultJobOperator struct {
	defRepo     repo.JobDefinitionRepository
	schedRepo   repo.ScheduleRepository
	instRepo    repo.InstanceRepository
	evaluator   *schedule.Evaluator
	coordinator *instance.Coordinator
	scheduler   *scheduler.Scheduler
	registry    *processor.Registry
	clock       clk.Clock
}

// OperatorParams defines the dependencies for NewDefaultJobOperator.
type OperatorParams struct {
	fx.In

	DefRepo     repo.JobDefinitionRepository
	SchedRepo   repo.ScheduleRepository
	InstRepo    repo.InstanceRepository
	Evaluator   *schedule.Evaluator
	Coordinator *instance.Coordinator
	Scheduler   *scheduler.Scheduler
	Registry    *processor.Registry
	Clock       clk.Clock
}

// NewDefaultJobOperator creates a DefaultJobOperator.
func NewDefaultJobOperator(p OperatorParams) *DefaultJobOperator {
	return &DefaultJobOperator{
		defRepo:     p.DefRepo,
		schedRepo:   p.SchedRepo,
		instRepo:    p.InstRepo,
		evaluator:   p.Evaluator,
		coordinator: p.Coordinator,
		scheduler:   p.Scheduler,
		registry:    p.Registry,
		clock:       p.Clock,
	}
}

// CreateJobDefinition validates and persists a new definition. The referenced
// processor must already be registered.
func (o *DefaultJobOperator) CreateJobDefinition(ctx context.Context, def *model.JobDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, err := o.registry.Resolve(def.ProcessorName); err != nil {
		return err
	}
	if err := o.defRepo.SaveJobDefinition(ctx, def); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to save job definition '%s'", def.Name), err, false, false)
	}
	logger.Infof("Job definition '%s' (%s) created.", def.Name, def.ID)
	return nil
}

// UpdateJobDefinition validates and persists definition edits.
func (o *DefaultJobOperator) UpdateJobDefinition(ctx context.Context, def *model.JobDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, err := o.registry.Resolve(def.ProcessorName); err != nil {
		return err
	}
	if err := o.defRepo.UpdateJobDefinition(ctx, def); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to update job definition '%s'", def.Name), err, false, false)
	}
	return nil
}

// DeactivateJobDefinition soft-deletes a definition.
func (o *DefaultJobOperator) DeactivateJobDefinition(ctx context.Context, id string) error {
	def, err := o.defRepo.FindJobDefinitionByID(ctx, id)
	if err != nil {
		return err
	}
	def.Deactivate()
	if err := o.defRepo.UpdateJobDefinition(ctx, def); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to deactivate job definition '%s'", def.Name), err, false, false)
	}
	logger.Infof("Job definition '%s' (%s) deactivated.", def.Name, def.ID)
	return nil
}

// CreateSchedule validates and persists a new schedule, computing its first
// NextRunTime so the next tick can pick it up.
func (o *DefaultJobOperator) CreateSchedule(ctx context.Context, s *model.Schedule) error {
	if err := o.prepareSchedule(ctx, s); err != nil {
		return err
	}
	if err := o.schedRepo.SaveSchedule(ctx, s); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to save schedule %s", s.ID), err, false, false)
	}
	logger.Infof("Schedule %s (%s) created for job definition %s.", s.ID, s.ScheduleType, s.JobDefinitionID)
	return nil
}

// UpdateSchedule validates and persists schedule edits, recomputing
// NextRunTime from the edited trigger fields.
func (o *DefaultJobOperator) UpdateSchedule(ctx context.Context, s *model.Schedule) error {
	if err := o.prepareSchedule(ctx, s); err != nil {
		return err
	}
	if err := o.schedRepo.UpdateSchedule(ctx, s); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to update schedule %s", s.ID), err, false, false)
	}
	return nil
}

// prepareSchedule runs the shared validation and NextRunTime computation for
// schedule creation and edits.
func (o *DefaultJobOperator) prepareSchedule(ctx context.Context, s *model.Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, err := o.defRepo.FindJobDefinitionByID(ctx, s.JobDefinitionID); err != nil {
		return err
	}
	if s.ScheduleType == model.ScheduleTypeCron {
		if err := o.evaluator.ValidateCronExpression(s.CronExpression); err != nil {
			return err
		}
	}

	next, err := o.evaluator.NextRunTime(s, o.clock.Now())
	if err != nil {
		return err
	}
	s.NextRunTime = next
	s.LastUpdated = o.clock.Now()
	return nil
}

// DeactivateSchedule stops a schedule from firing.
func (o *DefaultJobOperator) DeactivateSchedule(ctx context.Context, id string) error {
	s, err := o.schedRepo.FindScheduleByID(ctx, id)
	if err != nil {
		return err
	}
	s.Deactivate()
	if err := o.schedRepo.UpdateSchedule(ctx, s); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to deactivate schedule %s", id), err, false, false)
	}
	logger.Infof("Schedule %s deactivated.", id)
	return nil
}

// TriggerInstance creates and launches an instance outside of any schedule.
func (o *DefaultJobOperator) TriggerInstance(ctx context.Context, jobDefinitionID string, params model.Payload) (*model.Instance, error) {
	def, err := o.defRepo.FindJobDefinitionByID(ctx, jobDefinitionID)
	if err != nil {
		return nil, err
	}
	if !def.IsActive {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("job definition '%s' is deactivated", def.Name), exception.ErrInvalidConfiguration, false, false)
	}

	inst := model.NewInstance(def.ID, "", params)
	if err := o.instRepo.SaveInstance(ctx, inst); err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to save triggered instance for job '%s'", def.Name), err, false, false)
	}
	logger.Infof("Instance %s of job '%s' manually triggered.", inst.ID, def.Name)

	o.scheduler.Launch(ctx, def, inst)
	return inst, nil
}

// CancelInstance requests cancellation of a queued or running instance.
// Running instances are cancelled cooperatively between record boundaries;
// queued instances are cancelled immediately.
func (o *DefaultJobOperator) CancelInstance(ctx context.Context, instanceID string) error {
	inst, err := o.instRepo.FindInstanceByID(ctx, instanceID)
	if err != nil {
		return err
	}
	if inst.Status.IsTerminal() {
		return exception.NewBatchError(moduleName, fmt.Sprintf("instance %s is already %s", instanceID, inst.Status), nil, false, false)
	}

	if o.coordinator.Cancel(instanceID) {
		logger.Infof("Cancellation of running instance %s requested.", instanceID)
		return nil
	}

	// Not running under the coordinator: still queued.
	if err := inst.MarkAsCancelled(o.clock.Now()); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("instance %s cannot be cancelled", instanceID), err, false, false)
	}
	if err := o.instRepo.UpdateInstance(ctx, inst); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to persist cancelled instance %s", instanceID), err, false, false)
	}
	logger.Infof("Queued instance %s cancelled.", instanceID)
	return nil
}

// InstanceSnapshot pairs a persisted instance with its derived progress view.
type InstanceSnapshot struct {
	Instance *model.Instance
	Progress model.Progress
}

// GetInstance returns an instance snapshot with derived progress.
func (o *DefaultJobOperator) GetInstance(ctx context.Context, instanceID string) (*InstanceSnapshot, error) {
	inst, err := o.instRepo.FindInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return &InstanceSnapshot{
		Instance: inst,
		Progress: model.ComputeProgress(inst, o.clock.Now()),
	}, nil
}

// GetProgress returns only the derived progress view of an instance.
func (o *DefaultJobOperator) GetProgress(ctx context.Context, instanceID string) (*model.Progress, error) {
	snap, err := o.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return &snap.Progress, nil
}

// ListInstances lists the instances of a definition, newest first.
func (o *DefaultJobOperator) ListInstances(ctx context.Context, jobDefinitionID string) ([]*model.Instance, error) {
	return o.instRepo.FindInstancesByJobDefinitionID(ctx, jobDefinitionID)
}

var _ JobOperator = (*DefaultJobOperator)(nil)

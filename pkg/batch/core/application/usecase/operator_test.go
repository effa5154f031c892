package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/swell/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/swell/pkg/batch/core/config"
	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/swell/pkg/batch/core/metrics"
	"github.com/tigerroll/swell/pkg/batch/engine/chunk"
	"github.com/tigerroll/swell/pkg/batch/engine/instance"
	"github.com/tigerroll/swell/pkg/batch/engine/retry"
	"github.com/tigerroll/swell/pkg/batch/engine/schedule"
	"github.com/tigerroll/swell/pkg/batch/engine/scheduler"
	"github.com/tigerroll/swell/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/swell/pkg/batch/processor"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
	"github.com/tigerroll/swell/pkg/batch/test"
)

type operatorFixture struct {
	repo      *inmemory.InMemoryRepository
	clock     *test.FakeClock
	scheduler *scheduler.Scheduler
	operator  *usecase.DefaultJobOperator
}

func newOperatorFixture(t *testing.T) *operatorFixture {
	t.Helper()
	repo := inmemory.NewInMemoryRepository()
	clk := test.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	registry := processor.NewRegistry()
	require.NoError(t, registry.Register(processor.NewPassThroughProcessor()))

	cfg := config.NewConfig()
	cfg.Swell.Scheduler.Retry.InitialIntervalMillis = 0

	recorder := metrics.NewNoOpMetricRecorder()
	tracer := metrics.NewNoOpTracer()
	evaluator, err := schedule.NewEvaluator("UTC")
	require.NoError(t, err)

	coordinator := instance.NewCoordinator(instance.CoordinatorParams{
		InstanceRepo: repo,
		ChunkRepo:    repo,
		RecordRepo:   repo,
		Planner:      chunk.NewPlanner(),
		Executor:     chunk.NewExecutor(repo, repo, clk, recorder, tracer),
		Registry:     registry,
		RetryFactory: retry.NewDefaultRetryPolicyFactory(cfg),
		Source:       instance.NewParameterRecordSource(),
		Clock:        clk,
		Recorder:     recorder,
		Tracer:       tracer,
		Config:       cfg,
	})
	sched := scheduler.NewScheduler(scheduler.SchedulerParams{
		DefRepo:     repo,
		SchedRepo:   repo,
		InstRepo:    repo,
		Evaluator:   evaluator,
		Coordinator: coordinator,
		Clock:       clk,
		Recorder:    recorder,
		Config:      cfg,
	})
	operator := usecase.NewDefaultJobOperator(usecase.OperatorParams{
		DefRepo:     repo,
		SchedRepo:   repo,
		InstRepo:    repo,
		Evaluator:   evaluator,
		Coordinator: coordinator,
		Scheduler:   sched,
		Registry:    registry,
		Clock:       clk,
	})
	return &operatorFixture{repo: repo, clock: clk, scheduler: sched, operator: operator}
}

// settle waits for asynchronously launched instances to finish.
func (f *operatorFixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.scheduler.Stop(ctx))
}

func (f *operatorFixture) createDefinition(t *testing.T, name string) *model.JobDefinition {
	t.Helper()
	def := test.NewTestJobDefinition(name)
	require.NoError(t, f.operator.CreateJobDefinition(context.Background(), def))
	return def
}

func TestCreateJobDefinitionRejectsUnknownProcessor(t *testing.T) {
	f := newOperatorFixture(t)
	def := test.NewTestJobDefinition("unknown")
	def.ProcessorName = "not-registered"

	err := f.operator.CreateJobDefinition(context.Background(), def)
	require.Error(t, err)

	_, err = f.repo.FindJobDefinitionByID(context.Background(), def.ID)
	assert.Error(t, err, "a rejected definition must not be persisted")
}

func TestCreateScheduleComputesInitialNextRun(t *testing.T) {
	f := newOperatorFixture(t)
	def := f.createDefinition(t, "scheduled")

	s, err := model.NewSchedule(def.ID, model.ScheduleTypeInterval, "", 30, nil)
	require.NoError(t, err)
	require.NoError(t, f.operator.CreateSchedule(context.Background(), s))

	stored, err := f.repo.FindScheduleByID(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.NextRunTime)
	assert.Equal(t, f.clock.Now().Add(30*time.Minute), stored.NextRunTime.UTC())
}

func TestCreateScheduleRejectsInvalidCron(t *testing.T) {
	f := newOperatorFixture(t)
	def := f.createDefinition(t, "bad-cron")

	s := &model.Schedule{
		ID:              model.NewID(),
		JobDefinitionID: def.ID,
		ScheduleType:    model.ScheduleTypeCron,
		CronExpression:  "99 99 * * *",
		IsActive:        true,
	}
	err := f.operator.CreateSchedule(context.Background(), s)
	require.Error(t, err)
	assert.True(t, exception.IsErrorOfType(err, "InvalidCronExpression"))
}

func TestCreateScheduleRequiresExistingDefinition(t *testing.T) {
	f := newOperatorFixture(t)
	s, err := model.NewSchedule("ghost-definition", model.ScheduleTypeInterval, "", 30, nil)
	require.NoError(t, err)
	assert.Error(t, f.operator.CreateSchedule(context.Background(), s))
}

func TestTriggerInstanceRunsToCompletion(t *testing.T) {
	f := newOperatorFixture(t)
	def := f.createDefinition(t, "triggered")

	inst, err := f.operator.TriggerInstance(context.Background(), def.ID, model.Payload{
		"records": test.NewRecordPayloads(4),
	})
	require.NoError(t, err)
	require.NotNil(t, inst)
	f.settle(t)

	snap, err := f.operator.GetInstance(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, snap.Instance.Status)
	assert.Equal(t, 4, snap.Instance.SuccessRecords)
	assert.InDelta(t, 100, snap.Progress.Percent, 1e-9)
}

func TestTriggerInstanceRejectsInactiveDefinition(t *testing.T) {
	f := newOperatorFixture(t)
	def := f.createDefinition(t, "retired")
	require.NoError(t, f.operator.DeactivateJobDefinition(context.Background(), def.ID))

	_, err := f.operator.TriggerInstance(context.Background(), def.ID, nil)
	assert.Error(t, err)
	f.settle(t)
}

func TestCancelInstanceOnQueuedInstance(t *testing.T) {
	f := newOperatorFixture(t)
	def := f.createDefinition(t, "queued-cancel")

	inst := model.NewInstance(def.ID, "", nil)
	require.NoError(t, f.repo.SaveInstance(context.Background(), inst))

	require.NoError(t, f.operator.CancelInstance(context.Background(), inst.ID))

	stored, err := f.repo.FindInstanceByID(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)
}

func TestCancelInstanceRejectsTerminalInstance(t *testing.T) {
	f := newOperatorFixture(t)
	def := f.createDefinition(t, "terminal-cancel")

	inst := model.NewInstance(def.ID, "", nil)
	require.NoError(t, inst.MarkAsRunning(time.Now()))
	require.NoError(t, inst.MarkAsCompleted(time.Now()))
	require.NoError(t, f.repo.SaveInstance(context.Background(), inst))

	err := f.operator.CancelInstance(context.Background(), inst.ID)
	require.Error(t, err)
	assert.True(t, exception.IsBatchError(err))
}

func TestGetInstanceReturnsSnapshotWithProgress(t *testing.T) {
	f := newOperatorFixture(t)
	def := f.createDefinition(t, "snapshot")

	inst := model.NewInstance(def.ID, "", nil)
	require.NoError(t, inst.MarkAsRunning(f.clock.Now()))
	inst.TotalRecords = 200
	inst.ProcessedRecords = 100
	require.NoError(t, f.repo.SaveInstance(context.Background(), inst))

	f.clock.Advance(90 * time.Second)
	snap, err := f.operator.GetInstance(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, snap.Instance.Status)
	assert.InDelta(t, 50, snap.Progress.Percent, 1e-9)
	assert.Equal(t, 90*time.Second, snap.Progress.Elapsed)

	_, err = f.operator.GetInstance(context.Background(), "missing")
	assert.Error(t, err)
}

func TestListInstancesNewestFirst(t *testing.T) {
	f := newOperatorFixture(t)
	def := f.createDefinition(t, "listing")

	older := model.NewInstance(def.ID, "", nil)
	older.CreateTime = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	newer := model.NewInstance(def.ID, "", nil)
	newer.CreateTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, f.repo.SaveInstance(context.Background(), older))
	require.NoError(t, f.repo.SaveInstance(context.Background(), newer))

	got, err := f.operator.ListInstances(context.Background(), def.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
}

func TestDeactivateScheduleStopsFiring(t *testing.T) {
	f := newOperatorFixture(t)
	def := f.createDefinition(t, "deactivate-schedule")

	s, err := model.NewSchedule(def.ID, model.ScheduleTypeInterval, "", 30, nil)
	require.NoError(t, err)
	require.NoError(t, f.operator.CreateSchedule(context.Background(), s))
	require.NoError(t, f.operator.DeactivateSchedule(context.Background(), s.ID))

	stored, err := f.repo.FindScheduleByID(context.Background(), s.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Nil(t, stored.NextRunTime)
}

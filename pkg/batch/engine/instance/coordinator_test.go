package instance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/swell/pkg/batch/core/config"
	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/swell/pkg/batch/core/metrics"
	"github.com/tigerroll/swell/pkg/batch/engine/chunk"
	"github.com/tigerroll/swell/pkg/batch/engine/instance"
	"github.com/tigerroll/swell/pkg/batch/engine/retry"
	"github.com/tigerroll/swell/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/swell/pkg/batch/processor"
	"github.com/tigerroll/swell/pkg/batch/test"
)

type coordinatorFixture struct {
	repo        *inmemory.InMemoryRepository
	clock       *test.FakeClock
	registry    *processor.Registry
	coordinator *instance.Coordinator
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	repo := inmemory.NewInMemoryRepository()
	clk := test.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	registry := processor.NewRegistry()
	require.NoError(t, registry.Register(processor.NewPassThroughProcessor()))

	cfg := config.NewConfig()
	cfg.Swell.Scheduler.Retry.InitialIntervalMillis = 0

	recorder := metrics.NewNoOpMetricRecorder()
	tracer := metrics.NewNoOpTracer()

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
	return &coordinatorFixture{repo: repo, clock: clk, registry: registry, coordinator: coordinator}
}

func (f *coordinatorFixture) register(t *testing.T, proc processor.RecordProcessor) {
	t.Helper()
	require.NoError(t, f.registry.Register(proc))
}

func (f *coordinatorFixture) seedInstance(t *testing.T, def *model.JobDefinition, records int) *model.Instance {
	t.Helper()
	inst := test.NewTestInstanceWithRecords(def.ID, records)
	require.NoError(t, f.repo.SaveInstance(context.Background(), inst))
	return inst
}

func (f *coordinatorFixture) storedInstance(t *testing.T, id string) *model.Instance {
	t.Helper()
	inst, err := f.repo.FindInstanceByID(context.Background(), id)
	require.NoError(t, err)
	return inst
}

func TestRunCompletesHappyPath(t *testing.T) {
	f := newCoordinatorFixture(t)
	def := test.NewTestJobDefinition("happy")
	def.ChunkSize = 2
	inst := f.seedInstance(t, def, 5)

	require.NoError(t, f.coordinator.Run(context.Background(), def, inst))

	stored := f.storedInstance(t, inst.ID)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Equal(t, 5, stored.TotalRecords)
	assert.Equal(t, 5, stored.ProcessedRecords)
	assert.Equal(t, 5, stored.SuccessRecords)
	assert.NotNil(t, stored.StartedAt)
	assert.NotNil(t, stored.CompletedAt)

	chunks, err := f.repo.FindChunksByInstanceID(context.Background(), inst.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, model.StatusCompleted, c.Status)
	}
}

func TestRunEmptyDatasetCompletes(t *testing.T) {
	f := newCoordinatorFixture(t)
	def := test.NewTestJobDefinition("empty")
	inst := model.NewInstance(def.ID, "", nil)
	require.NoError(t, f.repo.SaveInstance(context.Background(), inst))

	require.NoError(t, f.coordinator.Run(context.Background(), def, inst))

	stored := f.storedInstance(t, inst.ID)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Zero(t, stored.TotalRecords)
}

func TestRunUnknownProcessorFailsInstance(t *testing.T) {
	f := newCoordinatorFixture(t)
	def := test.NewTestJobDefinition("unknown-proc")
	def.ProcessorName = "missing"
	inst := f.seedInstance(t, def, 2)

	err := f.coordinator.Run(context.Background(), def, inst)
	require.Error(t, err)

	stored := f.storedInstance(t, inst.ID)
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)
}

func TestRunStrictThresholdFailsOnAnyErrorRecord(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.register(t, &test.ScriptedProcessor{ProcessorName: "oneBadRecord", Fn: failSeqZero})

	def := test.NewTestJobDefinition("strict")
	def.ProcessorName = "oneBadRecord"
	def.MaxRetries = 0
	def.ErrorRateThreshold = 0 // strict
	inst := f.seedInstance(t, def, 10)

	err := f.coordinator.Run(context.Background(), def, inst)
	require.Error(t, err)

	stored := f.storedInstance(t, inst.ID)
	assert.Equal(t, model.StatusFailed, stored.Status)
	// Partial counters survive the failure.
	assert.Equal(t, 10, stored.ProcessedRecords)
	assert.Equal(t, 9, stored.SuccessRecords)
	assert.Equal(t, 1, stored.ErrorRecords)
	assert.NotEmpty(t, stored.ErrorMessage)
}

func TestRunLenientThresholdToleratesErrorRate(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.register(t, &test.ScriptedProcessor{ProcessorName: "tolerated", Fn: failSeqZero})

	def := test.NewTestJobDefinition("lenient")
	def.ProcessorName = "tolerated"
	def.MaxRetries = 0
	def.ErrorRateThreshold = 0.2 // 1 error in 10 records is within bounds
	inst := f.seedInstance(t, def, 10)

	require.NoError(t, f.coordinator.Run(context.Background(), def, inst))

	stored := f.storedInstance(t, inst.ID)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.ErrorRecords)
}

func TestRunProcessorPanicFailsInstanceNotProcess(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.register(t, &test.ScriptedProcessor{ProcessorName: "berserk", Fn: func(ctx context.Context, input model.Payload) (model.Payload, error) {
		panic("corrupted lookup table")
	}})

	def := test.NewTestJobDefinition("panicking")
	def.ProcessorName = "berserk"
	def.ChunkSize = 2
	inst := f.seedInstance(t, def, 4)

	// Run executes chunks on worker goroutines; if the panic escaped the
	// executor it would crash the whole test process here.
	err := f.coordinator.Run(context.Background(), def, inst)
	require.Error(t, err)

	stored := f.storedInstance(t, inst.ID)
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)

	chunks, err := f.repo.FindChunksByInstanceID(context.Background(), inst.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, model.StatusFailed, c.Status)
		assert.Contains(t, c.ErrorMessage, "panicked")
	}
}

func TestRunTimeoutFailsInstanceAndCancelsChunks(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.register(t, &test.SlowProcessor{})

	def := test.NewTestJobDefinition("timeout")
	def.ProcessorName = "slow"
	def.TimeoutMinutes = 1
	def.ChunkSize = 2
	def.Parallelism = 2
	inst := f.seedInstance(t, def, 4) // two chunks, both running

	done := make(chan error, 1)
	go func() { done <- f.coordinator.Run(context.Background(), def, inst) }()

	// Wait for the watchdog to park on the fake clock, then for both chunks
	// to be in flight.
	require.True(t, f.clock.BlockUntilWaiters(1, 2*time.Second), "timeout watchdog never armed")
	require.Eventually(t, func() bool {
		chunks, err := f.repo.FindChunksByInstanceID(context.Background(), inst.ID)
		if err != nil || len(chunks) != 2 {
			return false
		}
		return chunks[0].Status == model.StatusRunning && chunks[1].Status == model.StatusRunning
	}, 2*time.Second, 5*time.Millisecond)

	f.clock.Advance(time.Minute)

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not settle after timeout")
	}

	stored := f.storedInstance(t, inst.ID)
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.Equal(t, "timeout", stored.ErrorMessage)

	chunks, err := f.repo.FindChunksByInstanceID(context.Background(), inst.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, model.StatusCancelled, c.Status, "chunk %d must be cancelled, not completed", c.ChunkIndex)
	}
}

func TestRunExternalCancellation(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.register(t, &test.ScriptedProcessor{ProcessorName: "slowish", Fn: func(ctx context.Context, input model.Payload) (model.Payload, error) {
		seq, _ := input.GetInt("seq")
		if seq == 0 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return input, nil
	}})

	def := test.NewTestJobDefinition("cancel-me")
	def.ProcessorName = "slowish"
	def.MaxRetries = 0
	def.ChunkSize = 4
	inst := f.seedInstance(t, def, 4)

	done := make(chan error, 1)
	go func() { done <- f.coordinator.Run(context.Background(), def, inst) }()

	require.Eventually(t, func() bool {
		return f.coordinator.Cancel(inst.ID)
	}, 2*time.Second, 5*time.Millisecond)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not settle after cancellation")
	}

	stored := f.storedInstance(t, inst.ID)
	assert.Equal(t, model.StatusCancelled, stored.Status)
}

func TestCancelUnknownInstanceReturnsFalse(t *testing.T) {
	f := newCoordinatorFixture(t)
	assert.False(t, f.coordinator.Cancel("nope"))
}

func failSeqZero(ctx context.Context, input model.Payload) (model.Payload, error) {
	seq, _ := input.GetInt("seq")
	if seq == 0 {
		return nil, errors.New("poisoned row")
	}
	return input, nil
}

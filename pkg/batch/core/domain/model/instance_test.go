package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

func TestInstanceLifecycle(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	inst := model.NewInstance("def-1", "sched-1", nil)

	assert.Equal(t, model.StatusQueued, inst.Status)
	assert.NotEmpty(t, inst.ID)

	require.NoError(t, inst.MarkAsRunning(now))
	assert.Equal(t, model.StatusRunning, inst.Status)
	require.NotNil(t, inst.StartedAt)
	assert.Equal(t, now, *inst.StartedAt)

	done := now.Add(5 * time.Minute)
	require.NoError(t, inst.MarkAsCompleted(done))
	assert.Equal(t, model.StatusCompleted, inst.Status)
	require.NotNil(t, inst.CompletedAt)
	assert.Equal(t, done, *inst.CompletedAt)
}

func TestInstanceTerminalStatesAreWriteOnce(t *testing.T) {
	now := time.Now()

	for _, terminal := range []model.InstanceStatus{model.StatusCompleted, model.StatusFailed, model.StatusCancelled} {
		inst := model.NewInstance("def-1", "", nil)
		require.NoError(t, inst.MarkAsRunning(now))
		require.NoError(t, inst.TransitionTo(terminal))

		for _, next := range []model.InstanceStatus{model.StatusQueued, model.StatusRunning, model.StatusCompleted, model.StatusFailed, model.StatusCancelled} {
			assert.Error(t, inst.TransitionTo(next), "%s -> %s must be rejected", terminal, next)
		}
	}
}

func TestInstanceQueuedCanBeCancelledBeforeDispatch(t *testing.T) {
	inst := model.NewInstance("def-1", "", nil)
	require.NoError(t, inst.MarkAsCancelled(time.Now()))
	assert.Equal(t, model.StatusCancelled, inst.Status)
	assert.NotNil(t, inst.CompletedAt)
}

func TestInstanceMarkAsFailedRecordsMessage(t *testing.T) {
	inst := model.NewInstance("def-1", "", nil)
	require.NoError(t, inst.MarkAsRunning(time.Now()))

	cause := exception.NewBatchError("instance_coordinator", "timeout", exception.ErrInstanceTimeout, false, false)
	require.NoError(t, inst.MarkAsFailed(time.Now(), cause))
	assert.Equal(t, "timeout", inst.ErrorMessage)

	inst2 := model.NewInstance("def-1", "", nil)
	require.NoError(t, inst2.MarkAsRunning(time.Now()))
	require.NoError(t, inst2.MarkAsFailed(time.Now(), errors.New("boom")))
	assert.Equal(t, "boom", inst2.ErrorMessage)
}

func TestInstanceApplyChunkCountersKeepsSumInvariant(t *testing.T) {
	inst := model.NewInstance("def-1", "", nil)
	inst.TotalRecords = 10

	c1 := model.NewChunk(inst.ID, 0, 0, 5)
	c1.RecordFinished(model.RecordStatusSuccess, 0)
	c1.RecordFinished(model.RecordStatusSuccess, 2)
	c1.RecordFinished(model.RecordStatusError, 1)

	c2 := model.NewChunk(inst.ID, 1, 5, 10)
	c2.RecordFinished(model.RecordStatusSkipped, 0)
	c2.RecordFinished(model.RecordStatusSuccess, 0)

	inst.ApplyChunkCounters(c1)
	inst.ApplyChunkCounters(c2)

	assert.Equal(t, 5, inst.ProcessedRecords)
	assert.Equal(t, 3, inst.SuccessRecords)
	assert.Equal(t, 1, inst.ErrorRecords)
	assert.Equal(t, 1, inst.SkippedRecords)
	assert.Equal(t, 3, inst.RetryCount)
	assert.Equal(t, inst.ProcessedRecords, inst.SuccessRecords+inst.ErrorRecords+inst.SkippedRecords)
}

func TestInstanceErrorRate(t *testing.T) {
	inst := model.NewInstance("def-1", "", nil)
	assert.Zero(t, inst.ErrorRate())

	inst.TotalRecords = 200
	inst.ErrorRecords = 10
	assert.InDelta(t, 0.05, inst.ErrorRate(), 1e-9)
}

func TestChunkRecordFinishedIgnoresNonTerminalStatus(t *testing.T) {
	c := model.NewChunk("inst-1", 0, 0, 3)
	c.RecordFinished(model.RecordStatusProcessing, 1)
	assert.Zero(t, c.ProcessedRecords)
	assert.Zero(t, c.RetryCount)
}

func TestRecordRetryReturnsToPendingAndCounts(t *testing.T) {
	rec := model.NewRecord("inst-1", "chunk-1", 4, nil)

	require.NoError(t, rec.MarkAsProcessing())
	require.NoError(t, rec.ReturnForRetry(errors.New("transient")))
	assert.Equal(t, model.RecordStatusPending, rec.Status)
	assert.Equal(t, 1, rec.RetryCount)
	assert.Equal(t, "transient", rec.ErrorMessage)

	require.NoError(t, rec.MarkAsProcessing())
	require.NoError(t, rec.ReturnForRetry(errors.New("transient again")))
	assert.Equal(t, 2, rec.RetryCount)

	require.NoError(t, rec.MarkAsProcessing())
	result := model.NewPayload()
	result.Put("ok", true)
	require.NoError(t, rec.MarkAsSuccess(result))
	assert.Equal(t, model.RecordStatusSuccess, rec.Status)
	assert.Equal(t, 2, rec.RetryCount)
	assert.Empty(t, rec.ErrorMessage)
}

func TestRecordTerminalStatesAreWriteOnce(t *testing.T) {
	rec := model.NewRecord("inst-1", "chunk-1", 0, nil)
	require.NoError(t, rec.MarkAsProcessing())
	require.NoError(t, rec.MarkAsError(errors.New("permanent")))

	assert.Error(t, rec.MarkAsProcessing())
	assert.Error(t, rec.MarkAsSuccess(nil))
	assert.Error(t, rec.ReturnForRetry(errors.New("late")))
}

package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

func TestComputeProgressPercentage(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		processed int
		want      float64
	}{
		{"zero total yields zero percent", 0, 0, 0},
		{"negative total yields zero percent", -1, 5, 0},
		{"halfway", 200, 100, 50},
		{"rounded to two decimals", 3, 1, 33.33},
		{"overshoot clamps to 100", 10, 12, 100},
		{"complete", 250, 250, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := model.NewInstance("def-1", "", nil)
			inst.TotalRecords = tt.total
			inst.ProcessedRecords = tt.processed
			p := model.ComputeProgress(inst, time.Now())
			assert.InDelta(t, tt.want, p.Percent, 1e-9)
		})
	}
}

func TestComputeProgressElapsed(t *testing.T) {
	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	inst := model.NewInstance("def-1", "", nil)

	// Not yet started: zero elapsed.
	p := model.ComputeProgress(inst, started.Add(time.Hour))
	assert.Zero(t, p.Elapsed)

	require.NoError(t, inst.MarkAsRunning(started))
	p = model.ComputeProgress(inst, started.Add(90*time.Second))
	assert.Equal(t, 90*time.Second, p.Elapsed)

	// Once terminal, elapsed freezes at CompletedAt.
	require.NoError(t, inst.MarkAsCompleted(started.Add(2*time.Minute)))
	p = model.ComputeProgress(inst, started.Add(time.Hour))
	assert.Equal(t, 2*time.Minute, p.Elapsed)
}

func TestComputeProgressCarriesCountersAndError(t *testing.T) {
	inst := model.NewInstance("def-1", "", nil)
	require.NoError(t, inst.MarkAsRunning(time.Now()))
	inst.TotalRecords = 4
	inst.ProcessedRecords = 4
	inst.SuccessRecords = 2
	inst.ErrorRecords = 1
	inst.SkippedRecords = 1
	inst.RetryCount = 3
	require.NoError(t, inst.MarkAsFailed(time.Now(), assert.AnError))

	p := model.ComputeProgress(inst, time.Now())
	assert.Equal(t, model.StatusFailed, p.Status)
	assert.Equal(t, 2, p.SuccessRecords)
	assert.Equal(t, 1, p.ErrorRecords)
	assert.Equal(t, 1, p.SkippedRecords)
	assert.Equal(t, 3, p.RetryCount)
	assert.NotEmpty(t, p.ErrorMessage)
}

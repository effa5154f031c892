package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	"github.com/tigerroll/swell/pkg/batch/engine/chunk"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
	"github.com/tigerroll/swell/pkg/batch/test"
)

func TestPlanSplits250RecordsInto100_100_50(t *testing.T) {
	p := chunk.NewPlanner()

	chunks, err := p.Plan("inst-1", 250, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 100, chunks[0].EndOffset)
	assert.Equal(t, 100, chunks[0].TotalRecords)

	assert.Equal(t, 100, chunks[1].StartOffset)
	assert.Equal(t, 200, chunks[1].EndOffset)
	assert.Equal(t, 100, chunks[1].TotalRecords)

	assert.Equal(t, 200, chunks[2].StartOffset)
	assert.Equal(t, 250, chunks[2].EndOffset)
	assert.Equal(t, 50, chunks[2].TotalRecords)

	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, model.StatusQueued, c.Status)
		assert.Equal(t, "inst-1", c.InstanceID)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	p := chunk.NewPlanner()

	first, err := p.Plan("inst-1", 1234, 77)
	require.NoError(t, err)
	second, err := p.Plan("inst-1", 1234, 77)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].StartOffset, second[i].StartOffset)
		assert.Equal(t, first[i].EndOffset, second[i].EndOffset)
		assert.Equal(t, first[i].ChunkIndex, second[i].ChunkIndex)
	}
}

func TestPlanExactMultipleHasNoShortChunk(t *testing.T) {
	p := chunk.NewPlanner()
	chunks, err := p.Plan("inst-1", 300, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, 100, c.TotalRecords)
	}
}

func TestPlanEmptyDatasetYieldsNoChunks(t *testing.T) {
	p := chunk.NewPlanner()
	chunks, err := p.Plan("inst-1", 0, 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestPlanRejectsInvalidArguments(t *testing.T) {
	p := chunk.NewPlanner()

	_, err := p.Plan("inst-1", 10, 0)
	require.Error(t, err)
	assert.True(t, exception.IsErrorOfType(err, "InvalidConfiguration"))

	_, err = p.Plan("inst-1", 10, -5)
	assert.Error(t, err)

	_, err = p.Plan("inst-1", -1, 10)
	require.Error(t, err)
	assert.True(t, exception.IsErrorOfType(err, "InvalidConfiguration"))
}

func TestBuildRecordsAssignsDatasetIndexes(t *testing.T) {
	p := chunk.NewPlanner()
	chunks, err := p.Plan("inst-1", 5, 2)
	require.NoError(t, err)

	inputs := make([]model.Payload, 0, 5)
	for _, raw := range test.NewRecordPayloads(5) {
		inputs = append(inputs, model.Payload(raw.(map[string]interface{})))
	}

	records, err := p.BuildRecords("inst-1", chunks, inputs)
	require.NoError(t, err)
	require.Len(t, records, 5)

	for i, rec := range records {
		assert.Equal(t, i, rec.RecordIndex)
		assert.Equal(t, model.RecordStatusPending, rec.Status)
		seq, _ := rec.Input.GetInt("seq")
		assert.Equal(t, i, seq)
	}
	// Records of the middle chunk belong to it.
	assert.Equal(t, chunks[1].ID, records[2].ChunkID)
	assert.Equal(t, chunks[1].ID, records[3].ChunkID)
}

func TestBuildRecordsRejectsCountMismatch(t *testing.T) {
	p := chunk.NewPlanner()
	chunks, err := p.Plan("inst-1", 4, 2)
	require.NoError(t, err)

	_, err = p.BuildRecords("inst-1", chunks, []model.Payload{model.NewPayload()})
	require.Error(t, err)
	assert.True(t, exception.IsErrorOfType(err, "InvalidConfiguration"))
}

package sql_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/swell/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/swell/pkg/batch/adapter/database/gorm"
	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	repo "github.com/tigerroll/swell/pkg/batch/core/domain/repository"
	sqlrepo "github.com/tigerroll/swell/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/swell/pkg/batch/test"
)

// newSQLRepository opens a private in-memory SQLite database and migrates the
// schema. cache=shared keeps the database alive across pooled connections.
func newSQLRepository(t *testing.T) *sqlrepo.SQLRepository {
	t.Helper()
	db, err := gormadapter.Open(dbconfig.DatabaseConfig{
		Type:     "sqlite",
		Database: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)

	r := sqlrepo.NewSQLRepository(db)
	require.NoError(t, r.Migrate())
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestJobDefinitionRoundTrip(t *testing.T) {
	r := newSQLRepository(t)
	def := test.NewTestJobDefinition("round-trip")
	def.ErrorRateThreshold = 0.25
	def.Config = model.Payload{"region": "eu-west-1"}
	require.NoError(t, r.SaveJobDefinition(context.Background(), def))

	got, err := r.FindJobDefinitionByID(context.Background(), def.ID)
	require.NoError(t, err)
	assert.Equal(t, def.Name, got.Name)
	assert.Equal(t, def.Code, got.Code)
	assert.Equal(t, def.JobType, got.JobType)
	assert.Equal(t, def.ProcessorName, got.ProcessorName)
	assert.Equal(t, def.ChunkSize, got.ChunkSize)
	assert.Equal(t, def.MaxRetries, got.MaxRetries)
	assert.InDelta(t, 0.25, got.ErrorRateThreshold, 1e-9)
	assert.True(t, got.IsActive)

	region, ok := got.Config.GetString("region")
	require.True(t, ok)
	assert.Equal(t, "eu-west-1", region)
}

func TestScheduleRoundTripKeepsTimes(t *testing.T) {
	r := newSQLRepository(t)
	next := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := test.NewTestCronSchedule("def-1", "0 9 * * *", next)
	require.NoError(t, r.SaveSchedule(context.Background(), s))

	got, err := r.FindScheduleByID(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleTypeCron, got.ScheduleType)
	assert.Equal(t, "0 9 * * *", got.CronExpression)
	require.NotNil(t, got.NextRunTime)
	assert.WithinDuration(t, next, *got.NextRunTime, time.Second)
	assert.Nil(t, got.LastRunTime)
}

func TestInstanceRoundTripKeepsParametersAndCounters(t *testing.T) {
	r := newSQLRepository(t)
	inst := test.NewTestInstanceWithRecords("def-1", 3)
	require.NoError(t, r.SaveInstance(context.Background(), inst))

	require.NoError(t, inst.MarkAsRunning(time.Now()))
	inst.TotalRecords = 3
	inst.ProcessedRecords = 2
	inst.SuccessRecords = 2
	require.NoError(t, r.UpdateInstance(context.Background(), inst))

	got, err := r.FindInstanceByID(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, got.Status)
	assert.Equal(t, 3, got.TotalRecords)
	assert.Equal(t, 2, got.ProcessedRecords)
	assert.NotNil(t, got.StartedAt)

	raw, ok := got.Parameters.Get("records")
	require.True(t, ok)
	records, ok := raw.([]interface{})
	require.True(t, ok)
	assert.Len(t, records, 3)
}

func TestClaimScheduleConditionalUpdate(t *testing.T) {
	r := newSQLRepository(t)
	due := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := test.NewTestIntervalSchedule("def-1", 60, due)
	require.NoError(t, r.SaveSchedule(context.Background(), s))

	next := due.Add(time.Hour)
	require.NoError(t, r.ClaimSchedule(context.Background(), s.ID, due, due, &next))

	// The firing is consumed: a claimer still holding the old NextRunTime
	// affects zero rows.
	err := r.ClaimSchedule(context.Background(), s.ID, due, due, &next)
	assert.ErrorIs(t, err, repo.ErrConflict)

	got, err := r.FindScheduleByID(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextRunTime)
	assert.WithinDuration(t, next, *got.NextRunTime, time.Second)
	require.NotNil(t, got.LastRunTime)
	assert.WithinDuration(t, due, *got.LastRunTime, time.Second)
	assert.Equal(t, s.Version+1, got.Version)
}

func TestClaimScheduleConcurrentClaimersSingleWinner(t *testing.T) {
	r := newSQLRepository(t)
	due := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := test.NewTestIntervalSchedule("def-1", 60, due)
	require.NoError(t, r.SaveSchedule(context.Background(), s))

	next := due.Add(time.Hour)
	const claimers = 4
	var wg sync.WaitGroup
	results := make([]error, claimers)
	for i := 0; i < claimers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.ClaimSchedule(context.Background(), s.ID, due, due, &next)
		}()
	}
	wg.Wait()

	won := 0
	for _, err := range results {
		if err == nil {
			won++
		}
	}
	assert.Equal(t, 1, won)
}

func TestUpdateVersionConflictMapsToErrConflict(t *testing.T) {
	r := newSQLRepository(t)
	inst := test.NewTestInstance("def-1", nil)
	require.NoError(t, r.SaveInstance(context.Background(), inst))

	fresh, err := r.FindInstanceByID(context.Background(), inst.ID)
	require.NoError(t, err)
	stale, err := r.FindInstanceByID(context.Background(), inst.ID)
	require.NoError(t, err)

	require.NoError(t, fresh.MarkAsRunning(time.Now()))
	require.NoError(t, r.UpdateInstance(context.Background(), fresh))

	require.NoError(t, stale.MarkAsRunning(time.Now()))
	err = r.UpdateInstance(context.Background(), stale)
	assert.ErrorIs(t, err, repo.ErrConflict)
	// The failed update must not advance the caller's version.
	assert.Equal(t, inst.Version, stale.Version)
}

func TestFindDueSchedulesQuery(t *testing.T) {
	r := newSQLRepository(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	early := test.NewTestIntervalSchedule("def-1", 60, now.Add(-time.Hour))
	late := test.NewTestIntervalSchedule("def-1", 60, now.Add(-time.Minute))
	future := test.NewTestIntervalSchedule("def-1", 60, now.Add(time.Minute))
	inactive := test.NewTestIntervalSchedule("def-1", 60, now.Add(-time.Hour))
	inactive.Deactivate()

	for _, s := range []*model.Schedule{early, late, future, inactive} {
		require.NoError(t, r.SaveSchedule(context.Background(), s))
	}

	due, err := r.FindDueSchedules(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)
}

func TestChunkAndRecordPersistence(t *testing.T) {
	r := newSQLRepository(t)
	inst := test.NewTestInstance("def-1", nil)
	require.NoError(t, r.SaveInstance(context.Background(), inst))

	chunks := []*model.Chunk{
		model.NewChunk(inst.ID, 0, 0, 2),
		model.NewChunk(inst.ID, 1, 2, 4),
	}
	require.NoError(t, r.SaveChunks(context.Background(), chunks))

	records := []*model.Record{
		model.NewRecord(inst.ID, chunks[0].ID, 1, model.Payload{"seq": 1}),
		model.NewRecord(inst.ID, chunks[0].ID, 0, model.Payload{"seq": 0}),
		model.NewRecord(inst.ID, chunks[1].ID, 2, model.Payload{"seq": 2}),
	}
	require.NoError(t, r.SaveRecords(context.Background(), records))

	gotChunks, err := r.FindChunksByInstanceID(context.Background(), inst.ID)
	require.NoError(t, err)
	require.Len(t, gotChunks, 2)
	assert.Equal(t, 0, gotChunks[0].ChunkIndex)
	assert.Equal(t, 1, gotChunks[1].ChunkIndex)

	gotRecords, err := r.FindRecordsByChunkID(context.Background(), chunks[0].ID)
	require.NoError(t, err)
	require.Len(t, gotRecords, 2)
	assert.Equal(t, 0, gotRecords[0].RecordIndex)
	assert.Equal(t, 1, gotRecords[1].RecordIndex)

	// Record status transitions survive the version-guarded update path.
	rec := gotRecords[0]
	require.NoError(t, rec.MarkAsProcessing())
	require.NoError(t, rec.MarkAsSuccess(model.Payload{"seq": 0, "ok": true}))
	require.NoError(t, r.UpdateRecord(context.Background(), rec))

	stored, err := r.FindRecordByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RecordStatusSuccess, stored.Status)
	ok, found := stored.Result.GetBool("ok")
	require.True(t, found)
	assert.True(t, ok)
}

func TestFindRecordsByInstanceAndStatus(t *testing.T) {
	r := newSQLRepository(t)
	inst := test.NewTestInstance("def-1", nil)
	require.NoError(t, r.SaveInstance(context.Background(), inst))
	c := model.NewChunk(inst.ID, 0, 0, 3)
	require.NoError(t, r.SaveChunk(context.Background(), c))

	records := []*model.Record{
		model.NewRecord(inst.ID, c.ID, 0, nil),
		model.NewRecord(inst.ID, c.ID, 1, nil),
		model.NewRecord(inst.ID, c.ID, 2, nil),
	}
	require.NoError(t, records[1].MarkAsProcessing())
	require.NoError(t, records[1].MarkAsSuccess(nil))
	require.NoError(t, r.SaveRecords(context.Background(), records))

	pending, err := r.FindRecordsByInstanceAndStatus(context.Background(), inst.ID, model.RecordStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 0, pending[0].RecordIndex)
	assert.Equal(t, 2, pending[1].RecordIndex)
}

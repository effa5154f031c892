// Package sql provides the GORM-backed implementation of the Repository
// interface. Optimistic locking uses a version column: updates are guarded by
// the version the caller read, and a zero-row update maps to ErrConflict.
package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	repo "github.com/tigerroll/swell/pkg/batch/core/domain/repository"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

const moduleName = "sql_repository"

// SQLRepository implements the repository.Repository interface on a GORM
// connection.
type SQLRepository struct {
	db *gorm.DB
}

// NewSQLRepository creates a new SQLRepository.
func NewSQLRepository(db *gorm.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Migrate creates or updates the engine's tables.
func (r *SQLRepository) Migrate() error {
	if err := r.db.AutoMigrate(entities()...); err != nil {
		return exception.NewBatchError(moduleName, "failed to migrate schema", err, false, false)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *SQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// update performs an optimistic-locked full-row update. The entity carries
// the incremented version; the WHERE clause matches the version the caller
// read.
func (r *SQLRepository) update(ctx context.Context, entity interface{}, id string, readVersion int) error {
	result := r.db.WithContext(ctx).
		Model(entity).
		Where("id = ? AND version = ?", id, readVersion).
		Select("*").
		Updates(entity)
	if result.Error != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to update row %s", id), result.Error, true, false)
	}
	if result.RowsAffected == 0 {
		return repo.ErrConflict
	}
	return nil
}

// --- JobDefinitionRepository ---

// SaveJobDefinition inserts a new job definition.
func (r *SQLRepository) SaveJobDefinition(ctx context.Context, def *model.JobDefinition) error {
	entity := fromDomainJobDefinition(def)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to save job definition %s", def.ID), err, true, false)
	}
	return nil
}

// UpdateJobDefinition updates an existing definition with a version guard.
func (r *SQLRepository) UpdateJobDefinition(ctx context.Context, def *model.JobDefinition) error {
	readVersion := def.Version
	def.Version++
	entity := fromDomainJobDefinition(def)
	if err := r.update(ctx, entity, def.ID, readVersion); err != nil {
		def.Version = readVersion
		return err
	}
	return nil
}

// FindJobDefinitionByID loads a definition by its identifier.
func (r *SQLRepository) FindJobDefinitionByID(ctx context.Context, id string) (*model.JobDefinition, error) {
	var entity JobDefinitionEntity
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrJobDefinitionNotFound
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to load job definition %s", id), err, true, false)
	}
	return toDomainJobDefinition(&entity), nil
}

// FindJobDefinitionByCode loads a definition by its unique code.
func (r *SQLRepository) FindJobDefinitionByCode(ctx context.Context, code string) (*model.JobDefinition, error) {
	var entity JobDefinitionEntity
	err := r.db.WithContext(ctx).First(&entity, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrJobDefinitionNotFound
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to load job definition by code '%s'", code), err, true, false)
	}
	return toDomainJobDefinition(&entity), nil
}

// FindActiveJobDefinitions lists all active definitions.
func (r *SQLRepository) FindActiveJobDefinitions(ctx context.Context) ([]*model.JobDefinition, error) {
	var rows []JobDefinitionEntity
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("create_time asc").Find(&rows).Error; err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to list active job definitions", err, true, false)
	}
	defs := make([]*model.JobDefinition, 0, len(rows))
	for i := range rows {
		defs = append(defs, toDomainJobDefinition(&rows[i]))
	}
	return defs, nil
}

// --- ScheduleRepository ---

// SaveSchedule inserts a new schedule.
func (r *SQLRepository) SaveSchedule(ctx context.Context, s *model.Schedule) error {
	entity := fromDomainSchedule(s)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to save schedule %s", s.ID), err, true, false)
	}
	return nil
}

// UpdateSchedule updates an existing schedule with a version guard.
func (r *SQLRepository) UpdateSchedule(ctx context.Context, s *model.Schedule) error {
	readVersion := s.Version
	s.Version++
	entity := fromDomainSchedule(s)
	if err := r.update(ctx, entity, s.ID, readVersion); err != nil {
		s.Version = readVersion
		return err
	}
	return nil
}

// FindScheduleByID loads a schedule by its identifier.
func (r *SQLRepository) FindScheduleByID(ctx context.Context, id string) (*model.Schedule, error) {
	var entity ScheduleEntity
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrScheduleNotFound
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to load schedule %s", id), err, true, false)
	}
	return toDomainSchedule(&entity), nil
}

// FindSchedulesByJobDefinitionID lists the schedules bound to a definition.
func (r *SQLRepository) FindSchedulesByJobDefinitionID(ctx context.Context, jobDefinitionID string) ([]*model.Schedule, error) {
	var rows []ScheduleEntity
	if err := r.db.WithContext(ctx).Where("job_definition_id = ?", jobDefinitionID).Order("create_time asc").Find(&rows).Error; err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to list schedules of definition %s", jobDefinitionID), err, true, false)
	}
	schedules := make([]*model.Schedule, 0, len(rows))
	for i := range rows {
		schedules = append(schedules, toDomainSchedule(&rows[i]))
	}
	return schedules, nil
}

// FindDueSchedules lists active schedules whose NextRunTime is at or before now.
func (r *SQLRepository) FindDueSchedules(ctx context.Context, now time.Time) ([]*model.Schedule, error) {
	var rows []ScheduleEntity
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND next_run_time IS NOT NULL AND next_run_time <= ?", true, now).
		Order("next_run_time asc").
		Find(&rows).Error
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to query due schedules", err, true, false)
	}
	due := make([]*model.Schedule, 0, len(rows))
	for i := range rows {
		due = append(due, toDomainSchedule(&rows[i]))
	}
	return due, nil
}

// ClaimSchedule atomically consumes one firing with a single conditional
// UPDATE. The WHERE clause matches the NextRunTime the claimer observed, so
// of any set of concurrent claimers exactly one affects a row; the rest get
// ErrConflict.
func (r *SQLRepository) ClaimSchedule(ctx context.Context, id string, expectedNextRun time.Time, firedAt time.Time, next *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ScheduleEntity{}).
		Where("id = ? AND next_run_time = ?", id, expectedNextRun).
		Updates(map[string]interface{}{
			"last_run_time": firedAt,
			"next_run_time": next,
			"last_updated":  firedAt,
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to claim schedule %s", id), result.Error, true, false)
	}
	if result.RowsAffected == 0 {
		return repo.ErrConflict
	}
	return nil
}

// --- InstanceRepository ---

// SaveInstance inserts a new instance.
func (r *SQLRepository) SaveInstance(ctx context.Context, inst *model.Instance) error {
	entity := fromDomainInstance(inst)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to save instance %s", inst.ID), err, true, false)
	}
	return nil
}

// UpdateInstance updates an existing instance with a version guard.
func (r *SQLRepository) UpdateInstance(ctx context.Context, inst *model.Instance) error {
	readVersion := inst.Version
	inst.Version++
	entity := fromDomainInstance(inst)
	if err := r.update(ctx, entity, inst.ID, readVersion); err != nil {
		inst.Version = readVersion
		return err
	}
	return nil
}

// FindInstanceByID loads an instance by its identifier.
func (r *SQLRepository) FindInstanceByID(ctx context.Context, id string) (*model.Instance, error) {
	var entity InstanceEntity
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrInstanceNotFound
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to load instance %s", id), err, true, false)
	}
	return toDomainInstance(&entity), nil
}

// FindInstancesByJobDefinitionID lists instances of a definition, newest first.
func (r *SQLRepository) FindInstancesByJobDefinitionID(ctx context.Context, jobDefinitionID string) ([]*model.Instance, error) {
	var rows []InstanceEntity
	if err := r.db.WithContext(ctx).Where("job_definition_id = ?", jobDefinitionID).Order("create_time desc").Find(&rows).Error; err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to list instances of definition %s", jobDefinitionID), err, true, false)
	}
	instances := make([]*model.Instance, 0, len(rows))
	for i := range rows {
		instances = append(instances, toDomainInstance(&rows[i]))
	}
	return instances, nil
}

// FindInstancesByStatus lists instances currently in the given status.
func (r *SQLRepository) FindInstancesByStatus(ctx context.Context, status model.InstanceStatus) ([]*model.Instance, error) {
	var rows []InstanceEntity
	if err := r.db.WithContext(ctx).Where("status = ?", status.String()).Order("create_time asc").Find(&rows).Error; err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to list instances in status %s", status), err, true, false)
	}
	instances := make([]*model.Instance, 0, len(rows))
	for i := range rows {
		instances = append(instances, toDomainInstance(&rows[i]))
	}
	return instances, nil
}

// --- ChunkRepository ---

// SaveChunk inserts a new chunk.
func (r *SQLRepository) SaveChunk(ctx context.Context, c *model.Chunk) error {
	entity := fromDomainChunk(c)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to save chunk %s", c.ID), err, true, false)
	}
	return nil
}

// SaveChunks inserts a batch of chunks.
func (r *SQLRepository) SaveChunks(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]*ChunkEntity, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, fromDomainChunk(c))
	}
	if err := r.db.WithContext(ctx).Create(rows).Error; err != nil {
		return exception.NewBatchError(moduleName, "failed to save chunk batch", err, true, false)
	}
	return nil
}

// UpdateChunk updates an existing chunk with a version guard.
func (r *SQLRepository) UpdateChunk(ctx context.Context, c *model.Chunk) error {
	readVersion := c.Version
	c.Version++
	entity := fromDomainChunk(c)
	if err := r.update(ctx, entity, c.ID, readVersion); err != nil {
		c.Version = readVersion
		return err
	}
	return nil
}

// FindChunkByID loads a chunk by its identifier.
func (r *SQLRepository) FindChunkByID(ctx context.Context, id string) (*model.Chunk, error) {
	var entity ChunkEntity
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrChunkNotFound
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to load chunk %s", id), err, true, false)
	}
	return toDomainChunk(&entity), nil
}

// FindChunksByInstanceID lists an instance's chunks ordered by ChunkIndex.
func (r *SQLRepository) FindChunksByInstanceID(ctx context.Context, instanceID string) ([]*model.Chunk, error) {
	var rows []ChunkEntity
	if err := r.db.WithContext(ctx).Where("instance_id = ?", instanceID).Order("chunk_index asc").Find(&rows).Error; err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to list chunks of instance %s", instanceID), err, true, false)
	}
	chunks := make([]*model.Chunk, 0, len(rows))
	for i := range rows {
		chunks = append(chunks, toDomainChunk(&rows[i]))
	}
	return chunks, nil
}

// --- RecordRepository ---

// SaveRecords inserts a batch of records in chunks of 500 rows.
func (r *SQLRepository) SaveRecords(ctx context.Context, records []*model.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]*RecordEntity, 0, len(records))
	for _, rec := range records {
		rows = append(rows, fromDomainRecord(rec))
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, 500).Error; err != nil {
		return exception.NewBatchError(moduleName, "failed to save record batch", err, true, false)
	}
	return nil
}

// UpdateRecord updates an existing record with a version guard.
func (r *SQLRepository) UpdateRecord(ctx context.Context, rec *model.Record) error {
	readVersion := rec.Version
	rec.Version++
	entity := fromDomainRecord(rec)
	if err := r.update(ctx, entity, rec.ID, readVersion); err != nil {
		rec.Version = readVersion
		return err
	}
	return nil
}

// FindRecordByID loads a record by its identifier.
func (r *SQLRepository) FindRecordByID(ctx context.Context, id string) (*model.Record, error) {
	var entity RecordEntity
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrRecordNotFound
	}
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to load record %s", id), err, true, false)
	}
	return toDomainRecord(&entity), nil
}

// FindRecordsByChunkID lists a chunk's records ordered by RecordIndex.
func (r *SQLRepository) FindRecordsByChunkID(ctx context.Context, chunkID string) ([]*model.Record, error) {
	var rows []RecordEntity
	if err := r.db.WithContext(ctx).Where("chunk_id = ?", chunkID).Order("record_index asc").Find(&rows).Error; err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to list records of chunk %s", chunkID), err, true, false)
	}
	records := make([]*model.Record, 0, len(rows))
	for i := range rows {
		records = append(records, toDomainRecord(&rows[i]))
	}
	return records, nil
}

// FindRecordsByInstanceAndStatus lists an instance's records in the given
// status, ordered by RecordIndex.
func (r *SQLRepository) FindRecordsByInstanceAndStatus(ctx context.Context, instanceID string, status model.RecordStatus) ([]*model.Record, error) {
	var rows []RecordEntity
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND status = ?", instanceID, status.String()).
		Order("record_index asc").
		Find(&rows).Error
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to list %s records of instance %s", status, instanceID), err, true, false)
	}
	records := make([]*model.Record, 0, len(rows))
	for i := range rows {
		records = append(records, toDomainRecord(&rows[i]))
	}
	return records, nil
}

var _ repo.Repository = (*SQLRepository)(nil)

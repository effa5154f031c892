// Package inmemory provides an in-memory implementation of the Repository
// interface. It stores all entities in maps within memory, suitable for
// testing and scenarios where persistence is not required.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	repo "github.com/tigerroll/swell/pkg/batch/core/domain/repository"
)

// InMemoryRepository is an in-memory implementation of the Repository
// interface. It holds all entities in in-memory maps. The compare-and-set
// semantics of ClaimSchedule and the Version guards of the update methods
// behave identically to the SQL implementation, so the scheduler's
// concurrency guarantees hold in tests too.
//
// Entities are cloned on the way in and on the way out, payload maps and
// time pointers included, so callers never share mutable state with the
// store.
type InMemoryRepository struct {
	definitions map[string]*model.JobDefinition
	schedules   map[string]*model.Schedule
	instances   map[string]*model.Instance
	chunks      map[string]*model.Chunk
	records     map[string]*model.Record
	mu          sync.RWMutex
}

// NewInMemoryRepository creates and initializes a new InMemoryRepository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		definitions: make(map[string]*model.JobDefinition),
		schedules:   make(map[string]*model.Schedule),
		instances:   make(map[string]*model.Instance),
		chunks:      make(map[string]*model.Chunk),
		records:     make(map[string]*model.Record),
	}
}

// Close releases resources used by the repository. As an in-memory
// repository, it holds no external resources, so this method always returns nil.
func (r *InMemoryRepository) Close() error {
	return nil
}

// --- JobDefinitionRepository ---

// SaveJobDefinition inserts a new job definition.
func (r *InMemoryRepository) SaveJobDefinition(ctx context.Context, def *model.JobDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.ID] = cloneDefinition(def)
	return nil
}

// UpdateJobDefinition updates an existing definition with a Version guard.
func (r *InMemoryRepository) UpdateJobDefinition(ctx context.Context, def *model.JobDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.definitions[def.ID]
	if !ok {
		return repo.ErrJobDefinitionNotFound
	}
	if stored.Version != def.Version {
		return repo.ErrConflict
	}
	cp := cloneDefinition(def)
	cp.Version++
	r.definitions[def.ID] = cp
	def.Version = cp.Version
	return nil
}

// FindJobDefinitionByID loads a definition by its identifier.
func (r *InMemoryRepository) FindJobDefinitionByID(ctx context.Context, id string) (*model.JobDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.definitions[id]
	if !ok {
		return nil, repo.ErrJobDefinitionNotFound
	}
	return cloneDefinition(stored), nil
}

// FindJobDefinitionByCode loads a definition by its unique code.
func (r *InMemoryRepository) FindJobDefinitionByCode(ctx context.Context, code string) (*model.JobDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, stored := range r.definitions {
		if stored.Code == code {
			return cloneDefinition(stored), nil
		}
	}
	return nil, repo.ErrJobDefinitionNotFound
}

// FindActiveJobDefinitions lists all active definitions.
func (r *InMemoryRepository) FindActiveJobDefinitions(ctx context.Context) ([]*model.JobDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*model.JobDefinition, 0)
	for _, stored := range r.definitions {
		if stored.IsActive {
			defs = append(defs, cloneDefinition(stored))
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].CreateTime.Before(defs[j].CreateTime) })
	return defs, nil
}

// --- ScheduleRepository ---

// SaveSchedule inserts a new schedule.
func (r *InMemoryRepository) SaveSchedule(ctx context.Context, s *model.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[s.ID] = cloneSchedule(s)
	return nil
}

// UpdateSchedule updates an existing schedule with a Version guard.
func (r *InMemoryRepository) UpdateSchedule(ctx context.Context, s *model.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.schedules[s.ID]
	if !ok {
		return repo.ErrScheduleNotFound
	}
	if stored.Version != s.Version {
		return repo.ErrConflict
	}
	cp := cloneSchedule(s)
	cp.Version++
	r.schedules[s.ID] = cp
	s.Version = cp.Version
	return nil
}

// FindScheduleByID loads a schedule by its identifier.
func (r *InMemoryRepository) FindScheduleByID(ctx context.Context, id string) (*model.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.schedules[id]
	if !ok {
		return nil, repo.ErrScheduleNotFound
	}
	return cloneSchedule(stored), nil
}

// FindSchedulesByJobDefinitionID lists the schedules bound to a definition.
func (r *InMemoryRepository) FindSchedulesByJobDefinitionID(ctx context.Context, jobDefinitionID string) ([]*model.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schedules := make([]*model.Schedule, 0)
	for _, stored := range r.schedules {
		if stored.JobDefinitionID == jobDefinitionID {
			schedules = append(schedules, cloneSchedule(stored))
		}
	}
	sort.Slice(schedules, func(i, j int) bool { return schedules[i].CreateTime.Before(schedules[j].CreateTime) })
	return schedules, nil
}

// FindDueSchedules lists active schedules whose NextRunTime is at or before now.
func (r *InMemoryRepository) FindDueSchedules(ctx context.Context, now time.Time) ([]*model.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	due := make([]*model.Schedule, 0)
	for _, stored := range r.schedules {
		if stored.IsDue(now) {
			due = append(due, cloneSchedule(stored))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRunTime.Before(*due[j].NextRunTime) })
	return due, nil
}

// ClaimSchedule atomically consumes one firing. The claim succeeds only when
// the stored NextRunTime still equals expectedNextRun; a losing claimer gets
// ErrConflict.
func (r *InMemoryRepository) ClaimSchedule(ctx context.Context, id string, expectedNextRun time.Time, firedAt time.Time, next *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.schedules[id]
	if !ok {
		return repo.ErrScheduleNotFound
	}
	if stored.NextRunTime == nil || !stored.NextRunTime.Equal(expectedNextRun) {
		return repo.ErrConflict
	}
	stored.MarkFired(firedAt, copyTime(next))
	stored.Version++
	return nil
}

// --- InstanceRepository ---

// SaveInstance inserts a new instance.
func (r *InMemoryRepository) SaveInstance(ctx context.Context, inst *model.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[inst.ID] = cloneInstance(inst)
	return nil
}

// UpdateInstance updates an existing instance with a Version guard.
func (r *InMemoryRepository) UpdateInstance(ctx context.Context, inst *model.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.instances[inst.ID]
	if !ok {
		return repo.ErrInstanceNotFound
	}
	if stored.Version != inst.Version {
		return repo.ErrConflict
	}
	cp := cloneInstance(inst)
	cp.Version++
	r.instances[inst.ID] = cp
	inst.Version = cp.Version
	return nil
}

// FindInstanceByID loads an instance by its identifier.
func (r *InMemoryRepository) FindInstanceByID(ctx context.Context, id string) (*model.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.instances[id]
	if !ok {
		return nil, repo.ErrInstanceNotFound
	}
	return cloneInstance(stored), nil
}

// FindInstancesByJobDefinitionID lists instances of a definition, newest first.
func (r *InMemoryRepository) FindInstancesByJobDefinitionID(ctx context.Context, jobDefinitionID string) ([]*model.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	instances := make([]*model.Instance, 0)
	for _, stored := range r.instances {
		if stored.JobDefinitionID == jobDefinitionID {
			instances = append(instances, cloneInstance(stored))
		}
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].CreateTime.After(instances[j].CreateTime) })
	return instances, nil
}

// FindInstancesByStatus lists instances currently in the given status.
func (r *InMemoryRepository) FindInstancesByStatus(ctx context.Context, status model.InstanceStatus) ([]*model.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	instances := make([]*model.Instance, 0)
	for _, stored := range r.instances {
		if stored.Status == status {
			instances = append(instances, cloneInstance(stored))
		}
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].CreateTime.Before(instances[j].CreateTime) })
	return instances, nil
}

// --- ChunkRepository ---

// SaveChunk inserts a new chunk.
func (r *InMemoryRepository) SaveChunk(ctx context.Context, c *model.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks[c.ID] = cloneChunk(c)
	return nil
}

// SaveChunks inserts a batch of chunks.
func (r *InMemoryRepository) SaveChunks(ctx context.Context, chunks []*model.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range chunks {
		r.chunks[c.ID] = cloneChunk(c)
	}
	return nil
}

// UpdateChunk updates an existing chunk with a Version guard.
func (r *InMemoryRepository) UpdateChunk(ctx context.Context, c *model.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.chunks[c.ID]
	if !ok {
		return repo.ErrChunkNotFound
	}
	if stored.Version != c.Version {
		return repo.ErrConflict
	}
	cp := cloneChunk(c)
	cp.Version++
	r.chunks[c.ID] = cp
	c.Version = cp.Version
	return nil
}

// FindChunkByID loads a chunk by its identifier.
func (r *InMemoryRepository) FindChunkByID(ctx context.Context, id string) (*model.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.chunks[id]
	if !ok {
		return nil, repo.ErrChunkNotFound
	}
	return cloneChunk(stored), nil
}

// FindChunksByInstanceID lists an instance's chunks ordered by ChunkIndex.
func (r *InMemoryRepository) FindChunksByInstanceID(ctx context.Context, instanceID string) ([]*model.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chunks := make([]*model.Chunk, 0)
	for _, stored := range r.chunks {
		if stored.InstanceID == instanceID {
			chunks = append(chunks, cloneChunk(stored))
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	return chunks, nil
}

// --- RecordRepository ---

// SaveRecords inserts a batch of records.
func (r *InMemoryRepository) SaveRecords(ctx context.Context, records []*model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.records[rec.ID] = cloneRecord(rec)
	}
	return nil
}

// UpdateRecord updates an existing record with a Version guard.
func (r *InMemoryRepository) UpdateRecord(ctx context.Context, rec *model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[rec.ID]
	if !ok {
		return repo.ErrRecordNotFound
	}
	if stored.Version != rec.Version {
		return repo.ErrConflict
	}
	cp := cloneRecord(rec)
	cp.Version++
	r.records[rec.ID] = cp
	rec.Version = cp.Version
	return nil
}

// FindRecordByID loads a record by its identifier.
func (r *InMemoryRepository) FindRecordByID(ctx context.Context, id string) (*model.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.records[id]
	if !ok {
		return nil, repo.ErrRecordNotFound
	}
	return cloneRecord(stored), nil
}

// FindRecordsByChunkID lists a chunk's records ordered by RecordIndex.
func (r *InMemoryRepository) FindRecordsByChunkID(ctx context.Context, chunkID string) ([]*model.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]*model.Record, 0)
	for _, stored := range r.records {
		if stored.ChunkID == chunkID {
			records = append(records, cloneRecord(stored))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RecordIndex < records[j].RecordIndex })
	return records, nil
}

// FindRecordsByInstanceAndStatus lists an instance's records in the given
// status, ordered by RecordIndex.
func (r *InMemoryRepository) FindRecordsByInstanceAndStatus(ctx context.Context, instanceID string, status model.RecordStatus) ([]*model.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]*model.Record, 0)
	for _, stored := range r.records {
		if stored.InstanceID == instanceID && stored.Status == status {
			records = append(records, cloneRecord(stored))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RecordIndex < records[j].RecordIndex })
	return records, nil
}

// --- clone helpers ---
//
// The struct copy alone would share payload maps and time pointers between
// the store and the caller, so each entity gets its own clone function.

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneDefinition(d *model.JobDefinition) *model.JobDefinition {
	cp := *d
	cp.Config = d.Config.Copy()
	return &cp
}

func cloneSchedule(s *model.Schedule) *model.Schedule {
	cp := *s
	cp.NextRunTime = copyTime(s.NextRunTime)
	cp.LastRunTime = copyTime(s.LastRunTime)
	return &cp
}

func cloneInstance(i *model.Instance) *model.Instance {
	cp := *i
	cp.Parameters = i.Parameters.Copy()
	cp.StartedAt = copyTime(i.StartedAt)
	cp.CompletedAt = copyTime(i.CompletedAt)
	return &cp
}

func cloneChunk(c *model.Chunk) *model.Chunk {
	cp := *c
	cp.StartedAt = copyTime(c.StartedAt)
	cp.CompletedAt = copyTime(c.CompletedAt)
	return &cp
}

func cloneRecord(rec *model.Record) *model.Record {
	cp := *rec
	cp.Input = rec.Input.Copy()
	cp.Result = rec.Result.Copy()
	return &cp
}

var _ repo.Repository = (*InMemoryRepository)(nil)

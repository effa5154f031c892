package repository

import (
	"errors"

	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

// Sentinel errors shared by all repository implementations.
var (
	// ErrJobDefinitionNotFound is returned when a job definition lookup misses.
	ErrJobDefinitionNotFound = errors.New("job definition not found")
	// ErrScheduleNotFound is returned when a schedule lookup misses.
	ErrScheduleNotFound = errors.New("schedule not found")
	// ErrInstanceNotFound is returned when an instance lookup misses.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrChunkNotFound is returned when a chunk lookup misses.
	ErrChunkNotFound = errors.New("chunk not found")
	// ErrRecordNotFound is returned when a record lookup misses.
	ErrRecordNotFound = errors.New("record not found")
	// ErrConflict is returned when an optimistic-lock or compare-and-set
	// update loses against a concurrent writer.
	ErrConflict = errors.New("conflicting concurrent update")
)

func init() {
	exception.RegisterErrorType("JobDefinitionNotFound", ErrJobDefinitionNotFound)
	exception.RegisterErrorType("ScheduleNotFound", ErrScheduleNotFound)
	exception.RegisterErrorType("InstanceNotFound", ErrInstanceNotFound)
	exception.RegisterErrorType("ChunkNotFound", ErrChunkNotFound)
	exception.RegisterErrorType("RecordNotFound", ErrRecordNotFound)
	exception.RegisterErrorType("RepositoryConflict", ErrConflict)
}

// Repository aggregates all entity repositories behind one handle. The
// engine's components depend on the narrow per-entity interfaces; wiring code
// depends on this aggregate.
type Repository interface {
	JobDefinitionRepository
	ScheduleRepository
	InstanceRepository
	ChunkRepository
	RecordRepository

	// Close releases the underlying storage resources.
	Close() error
}

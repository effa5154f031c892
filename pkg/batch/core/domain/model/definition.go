package model

import (
	"fmt"
	"time"

	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

// JobDefinition is the reusable declaration of a batch task: what entity it
// touches, how the work is partitioned, and which processor performs the
// per-record transformation. Definitions are long-lived; instances reference
// them and outlive edits to the optional fields.
type JobDefinition struct {
	ID         string
	Name       string
	Code       string
	EntityType string
	JobType    JobType
	// Config is an opaque configuration blob handed to the record processor.
	Config Payload
	// ChunkSize is the maximum number of records per chunk. Must be positive.
	ChunkSize int
	// MaxRetries is the per-record retry budget. Zero means no retries.
	MaxRetries int
	// TimeoutMinutes bounds a single instance's wall-clock run time.
	// Zero means no timeout.
	TimeoutMinutes int
	// ErrorRateThreshold is the tolerated fraction of error records in [0, 1]
	// before an instance is considered failed. Zero means strict completion:
	// any error record fails the instance.
	ErrorRateThreshold float64
	// Parallelism bounds concurrent chunk execution per instance.
	// Values below 2 mean sequential execution.
	Parallelism int
	// ProcessorName identifies the registered record processor, resolved once
	// at dispatch time.
	ProcessorName string
	IsActive      bool
	CreateTime    time.Time
	LastUpdated   time.Time
	Version       int
}

// NewJobDefinition creates a new JobDefinition and validates its
// configuration. Validation fails fast at creation time; an invalid
// definition never surfaces mid-run.
func NewJobDefinition(name, code, entityType string, jobType JobType, processorName string, chunkSize, maxRetries, timeoutMinutes int) (*JobDefinition, error) {
	now := time.Now()
	def := &JobDefinition{
		ID:             NewID(),
		Name:           name,
		Code:           code,
		EntityType:     entityType,
		JobType:        jobType,
		Config:         NewPayload(),
		ChunkSize:      chunkSize,
		MaxRetries:     maxRetries,
		TimeoutMinutes: timeoutMinutes,
		ProcessorName:  processorName,
		IsActive:       true,
		CreateTime:     now,
		LastUpdated:    now,
		Version:        0,
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// Validate checks the structural invariants of the definition.
func (d *JobDefinition) Validate() error {
	if d.Name == "" {
		return exception.NewBatchError("job_definition", "job name must not be empty", exception.ErrInvalidConfiguration, false, false)
	}
	if d.ChunkSize <= 0 {
		return exception.NewBatchError("job_definition", fmt.Sprintf("chunk size must be positive, got %d", d.ChunkSize), exception.ErrInvalidConfiguration, false, false)
	}
	if d.MaxRetries < 0 {
		return exception.NewBatchError("job_definition", fmt.Sprintf("max retries must not be negative, got %d", d.MaxRetries), exception.ErrInvalidConfiguration, false, false)
	}
	if d.TimeoutMinutes < 0 {
		return exception.NewBatchError("job_definition", fmt.Sprintf("timeout minutes must not be negative, got %d", d.TimeoutMinutes), exception.ErrInvalidConfiguration, false, false)
	}
	if d.ErrorRateThreshold < 0 || d.ErrorRateThreshold > 1 {
		return exception.NewBatchError("job_definition", fmt.Sprintf("error rate threshold must be within [0, 1], got %g", d.ErrorRateThreshold), exception.ErrInvalidConfiguration, false, false)
	}
	if d.ProcessorName == "" {
		return exception.NewBatchError("job_definition", "processor name must not be empty", exception.ErrInvalidConfiguration, false, false)
	}
	switch d.JobType {
	case JobTypeImport, JobTypeExport, JobTypeProcess, JobTypeSync:
	default:
		return exception.NewBatchError("job_definition", fmt.Sprintf("unknown job type '%s'", d.JobType), exception.ErrInvalidConfiguration, false, false)
	}
	return nil
}

// Timeout returns the instance timeout as a duration, or zero if unbounded.
func (d *JobDefinition) Timeout() time.Duration {
	if d.TimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(d.TimeoutMinutes) * time.Minute
}

// Deactivate soft-deletes the definition. Schedules owned by a deactivated
// definition stop firing on the next scheduler tick.
func (d *JobDefinition) Deactivate() {
	d.IsActive = false
	d.LastUpdated = time.Now()
}

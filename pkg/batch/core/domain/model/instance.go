package model

import (
	"fmt"
	"time"

	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

// Instance is one concrete execution (run) of a JobDefinition. It is created
// by the scheduler for a due firing or by a manual trigger (in which case
// ScheduleID is empty). Counters are monotonically non-decreasing and only
// consistent once all in-flight chunk updates have been applied; readers must
// treat them as eventually consistent until the instance is terminal.
type Instance struct {
	ID              string
	JobDefinitionID string
	// ScheduleID references the schedule that spawned this instance.
	// Empty for manual triggers.
	ScheduleID string
	Status     InstanceStatus
	// Parameters is the trigger-supplied parameter blob.
	Parameters       Payload
	TotalRecords     int
	ProcessedRecords int
	SuccessRecords   int
	ErrorRecords     int
	SkippedRecords   int
	RetryCount       int
	StartedAt        *time.Time
	CompletedAt      *time.Time
	ErrorMessage     string
	// Optional artifact locations. Opaque to the engine.
	InputLocation  string
	OutputLocation string
	ErrorLocation  string
	CreateTime     time.Time
	LastUpdated    time.Time
	Version        int
}

// NewInstance creates a new queued Instance for the given definition.
func NewInstance(jobDefinitionID, scheduleID string, params Payload) *Instance {
	now := time.Now()
	if params == nil {
		params = NewPayload()
	}
	return &Instance{
		ID:              NewID(),
		JobDefinitionID: jobDefinitionID,
		ScheduleID:      scheduleID,
		Status:          StatusQueued,
		Parameters:      params,
		CreateTime:      now,
		LastUpdated:     now,
		Version:         0,
	}
}

// TransitionTo safely transitions the instance status. Terminal states are
// write-once; transitioning out of one returns an error.
func (i *Instance) TransitionTo(next InstanceStatus) error {
	if !isValidInstanceTransition(i.Status, next) {
		return fmt.Errorf("Instance (ID: %s): invalid state transition: %s -> %s", i.ID, i.Status, next)
	}
	i.Status = next
	i.LastUpdated = time.Now()
	return nil
}

// MarkAsRunning transitions the instance to RUNNING and stamps StartedAt.
// at is supplied by the caller's injected clock.
func (i *Instance) MarkAsRunning(at time.Time) error {
	if err := i.TransitionTo(StatusRunning); err != nil {
		return err
	}
	started := at
	i.StartedAt = &started
	return nil
}

// MarkAsCompleted transitions the instance to COMPLETED and stamps
// CompletedAt.
func (i *Instance) MarkAsCompleted(at time.Time) error {
	if err := i.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	done := at
	i.CompletedAt = &done
	return nil
}

// MarkAsFailed transitions the instance to FAILED, stamps CompletedAt and
// records the failure message. Counters achieved before the failure are
// preserved.
func (i *Instance) MarkAsFailed(at time.Time, err error) error {
	if terr := i.TransitionTo(StatusFailed); terr != nil {
		return terr
	}
	done := at
	i.CompletedAt = &done
	if err != nil {
		i.ErrorMessage = exception.ExtractErrorMessage(err)
	}
	return nil
}

// MarkAsCancelled transitions the instance to CANCELLED and stamps
// CompletedAt.
func (i *Instance) MarkAsCancelled(at time.Time) error {
	if err := i.TransitionTo(StatusCancelled); err != nil {
		return err
	}
	done := at
	i.CompletedAt = &done
	return nil
}

// ApplyChunkCounters rolls a completed chunk's counters up into the instance.
// Instance.ProcessedRecords remains the sum over all chunks.
func (i *Instance) ApplyChunkCounters(c *Chunk) {
	i.ProcessedRecords += c.ProcessedRecords
	i.SuccessRecords += c.SuccessRecords
	i.ErrorRecords += c.ErrorRecords
	i.SkippedRecords += c.SkippedRecords
	i.RetryCount += c.RetryCount
	i.LastUpdated = time.Now()
}

// ErrorRate returns the fraction of error records over total records, zero
// when no records exist.
func (i *Instance) ErrorRate() float64 {
	if i.TotalRecords <= 0 {
		return 0
	}
	return float64(i.ErrorRecords) / float64(i.TotalRecords)
}

package model

import (
	"fmt"
	"time"

	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

// Chunk is one unit of work within an Instance, covering a contiguous slice
// of the instance's records. Chunks share the instance status vocabulary and
// the same transition rules.
type Chunk struct {
	ID         string
	InstanceID string
	// ChunkIndex is the zero-based position of this chunk within the instance.
	ChunkIndex int
	Status     InstanceStatus
	// StartOffset/EndOffset delimit the half-open record range [start, end)
	// this chunk covers within the instance's dataset.
	StartOffset      int
	EndOffset        int
	TotalRecords     int
	ProcessedRecords int
	SuccessRecords   int
	ErrorRecords     int
	SkippedRecords   int
	RetryCount       int
	StartedAt        *time.Time
	CompletedAt      *time.Time
	ErrorMessage     string
	CreateTime       time.Time
	LastUpdated      time.Time
	Version          int
}

// NewChunk creates a queued chunk covering the record range [start, end).
func NewChunk(instanceID string, chunkIndex, start, end int) *Chunk {
	now := time.Now()
	return &Chunk{
		ID:           NewID(),
		InstanceID:   instanceID,
		ChunkIndex:   chunkIndex,
		Status:       StatusQueued,
		StartOffset:  start,
		EndOffset:    end,
		TotalRecords: end - start,
		CreateTime:   now,
		LastUpdated:  now,
		Version:      0,
	}
}

// TransitionTo safely transitions the chunk status.
func (c *Chunk) TransitionTo(next InstanceStatus) error {
	if !isValidInstanceTransition(c.Status, next) {
		return fmt.Errorf("Chunk (ID: %s, Index: %d): invalid state transition: %s -> %s", c.ID, c.ChunkIndex, c.Status, next)
	}
	c.Status = next
	c.LastUpdated = time.Now()
	return nil
}

// MarkAsRunning transitions the chunk to RUNNING and stamps StartedAt.
func (c *Chunk) MarkAsRunning(at time.Time) error {
	if err := c.TransitionTo(StatusRunning); err != nil {
		return err
	}
	started := at
	c.StartedAt = &started
	return nil
}

// MarkAsCompleted transitions the chunk to COMPLETED and stamps CompletedAt.
func (c *Chunk) MarkAsCompleted(at time.Time) error {
	if err := c.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	done := at
	c.CompletedAt = &done
	return nil
}

// MarkAsFailed transitions the chunk to FAILED and records the failure
// message.
func (c *Chunk) MarkAsFailed(at time.Time, err error) error {
	if terr := c.TransitionTo(StatusFailed); terr != nil {
		return terr
	}
	done := at
	c.CompletedAt = &done
	if err != nil {
		c.ErrorMessage = exception.ExtractErrorMessage(err)
	}
	return nil
}

// MarkAsCancelled transitions the chunk to CANCELLED and stamps CompletedAt.
func (c *Chunk) MarkAsCancelled(at time.Time) error {
	if err := c.TransitionTo(StatusCancelled); err != nil {
		return err
	}
	done := at
	c.CompletedAt = &done
	return nil
}

// RecordFinished applies one finished record to the chunk's counters.
// ProcessedRecords always equals SuccessRecords + ErrorRecords +
// SkippedRecords.
func (c *Chunk) RecordFinished(status RecordStatus, retries int) {
	switch status {
	case RecordStatusSuccess:
		c.SuccessRecords++
	case RecordStatusError:
		c.ErrorRecords++
	case RecordStatusSkipped:
		c.SkippedRecords++
	default:
		return
	}
	c.ProcessedRecords++
	c.RetryCount += retries
	c.LastUpdated = time.Now()
}

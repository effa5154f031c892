package model

import (
	"fmt"
	"time"

	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

// Record is one item of work within a chunk. RecordIndex is its position in
// the instance's full dataset; the executor processes records of a chunk in
// ascending RecordIndex order.
type Record struct {
	ID         string
	ChunkID    string
	InstanceID string
	// RecordIndex is the zero-based position within the instance's dataset.
	RecordIndex int
	Status      RecordStatus
	// Input is the raw data handed to the processor; Result holds its output
	// for successful records.
	Input        Payload
	Result       Payload
	ErrorMessage string
	// RetryCount is the number of retries already consumed. A record that
	// failed twice and succeeded on the third attempt ends with RetryCount 2
	// and status SUCCESS.
	RetryCount  int
	CreateTime  time.Time
	LastUpdated time.Time
	Version     int
}

// NewRecord creates a pending record at the given dataset index.
func NewRecord(instanceID, chunkID string, recordIndex int, input Payload) *Record {
	now := time.Now()
	if input == nil {
		input = NewPayload()
	}
	return &Record{
		ID:          NewID(),
		ChunkID:     chunkID,
		InstanceID:  instanceID,
		RecordIndex: recordIndex,
		Status:      RecordStatusPending,
		Input:       input,
		CreateTime:  now,
		LastUpdated: now,
		Version:     0,
	}
}

// TransitionTo safely transitions the record status.
func (r *Record) TransitionTo(next RecordStatus) error {
	if !isValidRecordTransition(r.Status, next) {
		return fmt.Errorf("Record (ID: %s, Index: %d): invalid state transition: %s -> %s", r.ID, r.RecordIndex, r.Status, next)
	}
	r.Status = next
	r.LastUpdated = time.Now()
	return nil
}

// MarkAsProcessing transitions the record to PROCESSING for an attempt.
func (r *Record) MarkAsProcessing() error {
	return r.TransitionTo(RecordStatusProcessing)
}

// MarkAsSuccess finishes the record successfully, storing the processor's
// result.
func (r *Record) MarkAsSuccess(result Payload) error {
	if err := r.TransitionTo(RecordStatusSuccess); err != nil {
		return err
	}
	r.Result = result
	r.ErrorMessage = ""
	return nil
}

// MarkAsError finishes the record as a permanent failure, recording the
// final error message.
func (r *Record) MarkAsError(err error) error {
	if terr := r.TransitionTo(RecordStatusError); terr != nil {
		return terr
	}
	if err != nil {
		r.ErrorMessage = exception.ExtractErrorMessage(err)
	}
	return nil
}

// MarkAsSkipped finishes the record as intentionally not processed.
func (r *Record) MarkAsSkipped(reason string) error {
	if err := r.TransitionTo(RecordStatusSkipped); err != nil {
		return err
	}
	r.ErrorMessage = reason
	return nil
}

// ReturnForRetry puts a processing record back to PENDING after a retryable
// failure, consuming one unit of the retry budget. The same record row is
// reused; only RetryCount and the last error message change.
func (r *Record) ReturnForRetry(err error) error {
	if terr := r.TransitionTo(RecordStatusPending); terr != nil {
		return terr
	}
	r.RetryCount++
	if err != nil {
		r.ErrorMessage = exception.ExtractErrorMessage(err)
	}
	return nil
}

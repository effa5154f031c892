package model

// InstanceStatus represents the state of a run instance or chunk.
type InstanceStatus string

const (
	StatusQueued    InstanceStatus = "QUEUED"
	StatusRunning   InstanceStatus = "RUNNING"
	StatusCompleted InstanceStatus = "COMPLETED"
	StatusFailed    InstanceStatus = "FAILED"
	StatusCancelled InstanceStatus = "CANCELLED"
)

// String returns the string representation of the InstanceStatus.
func (s InstanceStatus) String() string {
	return string(s)
}

// IsTerminal checks whether the status represents a terminal state.
// Terminal states are write-once; no further transitions are permitted.
func (s InstanceStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// isValidInstanceTransition checks whether a state transition for an
// Instance or Chunk is valid.
func isValidInstanceTransition(current, next InstanceStatus) bool {
	switch current {
	case StatusQueued:
		// QUEUED can start running or be cancelled/failed before dispatch.
		return next == StatusRunning || next == StatusCancelled || next == StatusFailed
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	case StatusCompleted, StatusFailed, StatusCancelled:
		return false
	default:
		return false
	}
}

// RecordStatus represents the state of a single record within a chunk.
type RecordStatus string

const (
	RecordStatusPending    RecordStatus = "PENDING"
	RecordStatusProcessing RecordStatus = "PROCESSING"
	RecordStatusSuccess    RecordStatus = "SUCCESS"
	RecordStatusError      RecordStatus = "ERROR"
	RecordStatusSkipped    RecordStatus = "SKIPPED"
)

// String returns the string representation of the RecordStatus.
func (s RecordStatus) String() string {
	return string(s)
}

// IsTerminal checks whether the record status represents a finished state.
func (s RecordStatus) IsTerminal() bool {
	switch s {
	case RecordStatusSuccess, RecordStatusError, RecordStatusSkipped:
		return true
	default:
		return false
	}
}

// isValidRecordTransition checks whether a state transition for a Record is
// valid. PROCESSING may transition back to PENDING: retries reuse the same
// record row and increment its retry count rather than appending history.
func isValidRecordTransition(current, next RecordStatus) bool {
	switch current {
	case RecordStatusPending:
		return next == RecordStatusProcessing || next == RecordStatusSkipped
	case RecordStatusProcessing:
		return next == RecordStatusSuccess || next == RecordStatusError ||
			next == RecordStatusSkipped || next == RecordStatusPending
	case RecordStatusSuccess, RecordStatusError, RecordStatusSkipped:
		return false
	default:
		return false
	}
}

// ScheduleType represents the trigger kind of a schedule.
type ScheduleType string

const (
	ScheduleTypeCron     ScheduleType = "CRON"
	ScheduleTypeInterval ScheduleType = "INTERVAL"
	ScheduleTypeOneTime  ScheduleType = "ONE_TIME"
)

// String returns the string representation of the ScheduleType.
func (s ScheduleType) String() string {
	return string(s)
}

// JobType classifies the kind of work a job definition declares.
type JobType string

const (
	JobTypeImport  JobType = "IMPORT"
	JobTypeExport  JobType = "EXPORT"
	JobTypeProcess JobType = "PROCESS"
	JobTypeSync    JobType = "SYNC"
)

// String returns the string representation of the JobType.
func (t JobType) String() string {
	return string(t)
}

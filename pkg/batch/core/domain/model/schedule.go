package model

import (
	"fmt"
	"time"

	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

// Schedule is a time-based trigger bound to exactly one JobDefinition.
// The scheduler is the only writer of NextRunTime/LastRunTime; administrators
// toggle IsActive. NextRunTime is either nil (exhausted or inactive) or a
// time not earlier than the last computed dispatch.
type Schedule struct {
	ID              string
	JobDefinitionID string
	ScheduleType    ScheduleType
	// CronExpression is required iff ScheduleType is CRON.
	CronExpression string
	// IntervalMinutes is required iff ScheduleType is INTERVAL.
	IntervalMinutes int
	NextRunTime     *time.Time
	LastRunTime     *time.Time
	IsActive        bool
	CreateTime      time.Time
	LastUpdated     time.Time
	Version         int
}

// NewSchedule creates a new Schedule bound to the given JobDefinition and
// validates its structural invariants. For one-time schedules, runAt is the
// single firing time; for the other types it is ignored and the first
// NextRunTime is computed by the evaluator on the next scheduler tick.
func NewSchedule(jobDefinitionID string, scheduleType ScheduleType, cronExpression string, intervalMinutes int, runAt *time.Time) (*Schedule, error) {
	now := time.Now()
	s := &Schedule{
		ID:              NewID(),
		JobDefinitionID: jobDefinitionID,
		ScheduleType:    scheduleType,
		CronExpression:  cronExpression,
		IntervalMinutes: intervalMinutes,
		IsActive:        true,
		CreateTime:      now,
		LastUpdated:     now,
		Version:         0,
	}
	if scheduleType == ScheduleTypeOneTime {
		s.NextRunTime = runAt
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the schedule carries the fields its type requires.
// Cron expression parseability is verified by the evaluator at creation time
// through the schedule administration API.
func (s *Schedule) Validate() error {
	if s.JobDefinitionID == "" {
		return exception.NewBatchError("schedule", "schedule must reference a job definition", exception.ErrInvalidConfiguration, false, false)
	}
	switch s.ScheduleType {
	case ScheduleTypeCron:
		if s.CronExpression == "" {
			return exception.NewBatchError("schedule", "cron schedule requires a cron expression", exception.ErrInvalidConfiguration, false, false)
		}
	case ScheduleTypeInterval:
		if s.IntervalMinutes <= 0 {
			return exception.NewBatchError("schedule", fmt.Sprintf("interval schedule requires positive interval minutes, got %d", s.IntervalMinutes), exception.ErrInvalidConfiguration, false, false)
		}
	case ScheduleTypeOneTime:
		if s.NextRunTime == nil {
			return exception.NewBatchError("schedule", "one-time schedule requires a run time", exception.ErrInvalidConfiguration, false, false)
		}
	default:
		return exception.NewBatchError("schedule", fmt.Sprintf("unknown schedule type '%s'", s.ScheduleType), exception.ErrInvalidConfiguration, false, false)
	}
	return nil
}

// Interval returns the interval duration for INTERVAL schedules.
func (s *Schedule) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// IsDue reports whether the schedule has a computed next run time at or
// before now. Inactive schedules are never due.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.IsActive && s.NextRunTime != nil && !s.NextRunTime.After(now)
}

// MarkFired consumes a firing: LastRunTime records the firing time and
// NextRunTime advances to the evaluator's next eligible time (nil when the
// schedule is exhausted). A one-time schedule never fires twice because its
// NextRunTime becomes permanently nil once LastRunTime is set.
func (s *Schedule) MarkFired(firedAt time.Time, next *time.Time) {
	fired := firedAt
	s.LastRunTime = &fired
	s.NextRunTime = next
	s.LastUpdated = time.Now()
}

// Deactivate stops the schedule from firing. The current NextRunTime is
// cleared so that IsDue never selects it again.
func (s *Schedule) Deactivate() {
	s.IsActive = false
	s.NextRunTime = nil
	s.LastUpdated = time.Now()
}

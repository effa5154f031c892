// Package schedule computes firing times for schedules. The evaluator is a
// pure function of the schedule and a reference time; it never reads the wall
// clock and never mutates the schedule it is given.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

const moduleName = "schedule_evaluator"

// Evaluator computes the next eligible run time for a schedule. Cron
// expressions are evaluated in the configured timezone; interval and one-time
// schedules are timezone-agnostic.
type Evaluator struct {
	location *time.Location
}

// NewEvaluator creates an Evaluator that resolves cron expressions in the
// given timezone name. An empty name selects UTC.
func NewEvaluator(timezone string) (*Evaluator, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("unknown timezone '%s'", timezone), err, false, false)
	}
	return &Evaluator{location: loc}, nil
}

// NextRunTime computes the next time at or after ref that the schedule
// should fire. It returns nil when the schedule will never fire again:
// inactive schedules and exhausted one-time schedules.
//
// The computed time is strictly after ref for cron schedules (a firing at
// exactly ref belongs to the claim that consumed it). Interval schedules fire
// one full interval after the last firing, or after ref when they have never
// fired.
func (e *Evaluator) NextRunTime(s *model.Schedule, ref time.Time) (*time.Time, error) {
	if !s.IsActive {
		return nil, nil
	}

	switch s.ScheduleType {
	case model.ScheduleTypeCron:
		sched, err := parseCron(s.CronExpression)
		if err != nil {
			return nil, err
		}
		next := sched.Next(ref.In(e.location))
		if next.IsZero() {
			return nil, nil
		}
		return &next, nil

	case model.ScheduleTypeInterval:
		if s.IntervalMinutes <= 0 {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("interval schedule %s has non-positive interval %d", s.ID, s.IntervalMinutes), exception.ErrInvalidConfiguration, false, false)
		}
		// Anchored on the last firing: one interval after it, not after ref.
		// A slow tick shifts no firing; the dispatcher stamps LastRunTime at
		// claim time, so consumed firings always advance by a full interval.
		base := ref
		if s.LastRunTime != nil {
			base = *s.LastRunTime
		}
		next := base.Add(s.Interval())
		return &next, nil

	case model.ScheduleTypeOneTime:
		// One-time schedules fire exactly once. Once LastRunTime is set the
		// schedule is exhausted regardless of its stored NextRunTime.
		if s.LastRunTime != nil {
			return nil, nil
		}
		if s.NextRunTime == nil {
			return nil, nil
		}
		next := *s.NextRunTime
		return &next, nil

	default:
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("unknown schedule type '%s'", s.ScheduleType), exception.ErrInvalidConfiguration, false, false)
	}
}

// ValidateCronExpression parses the expression and reports whether it is
// usable. Called by the schedule administration API so that unparseable
// expressions are rejected at creation time instead of surfacing mid-tick.
func (e *Evaluator) ValidateCronExpression(expr string) error {
	_, err := parseCron(expr)
	return err
}

// parseCron parses a standard 5-field cron expression.
func parseCron(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("cannot parse cron expression '%s'", expr), fmt.Errorf("%w: %v", exception.ErrInvalidCronExpression, err), false, false)
	}
	return sched, nil
}

package repository

import (
	"context"
	"time"

	"github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

// ScheduleRepository persists schedules and provides the compare-and-set
// claim that keeps concurrent scheduler ticks from double-dispatching the
// same firing.
type ScheduleRepository interface {
	// SaveSchedule inserts a new schedule.
	SaveSchedule(ctx context.Context, s *model.Schedule) error
	// UpdateSchedule updates an existing schedule, guarded by its Version.
	UpdateSchedule(ctx context.Context, s *model.Schedule) error
	// FindScheduleByID loads a schedule by its identifier.
	FindScheduleByID(ctx context.Context, id string) (*model.Schedule, error)
	// FindSchedulesByJobDefinitionID lists the schedules bound to a
	// definition.
	FindSchedulesByJobDefinitionID(ctx context.Context, jobDefinitionID string) ([]*model.Schedule, error)
	// FindDueSchedules lists active schedules whose NextRunTime is at or
	// before now.
	FindDueSchedules(ctx context.Context, now time.Time) ([]*model.Schedule, error)
	// ClaimSchedule atomically consumes one firing: it sets LastRunTime to
	// firedAt and NextRunTime to next, but only if the stored NextRunTime
	// still equals expectedNextRun. Exactly one of any set of concurrent
	// claimers for the same firing succeeds; the rest receive ErrConflict.
	ClaimSchedule(ctx context.Context, id string, expectedNextRun time.Time, firedAt time.Time, next *time.Time) error
}

package model

import (
	"math"
	"time"
)

// Progress is a derived, read-only snapshot of an instance's advancement.
// It is never persisted; callers recompute it from the instance counters on
// demand.
type Progress struct {
	InstanceID       string
	Status           InstanceStatus
	TotalRecords     int
	ProcessedRecords int
	SuccessRecords   int
	ErrorRecords     int
	SkippedRecords   int
	RetryCount       int
	// Percent is in [0, 100]. Zero when TotalRecords is not yet known.
	Percent float64
	// Elapsed is the wall-clock run time so far, zero before the instance
	// starts.
	Elapsed      time.Duration
	ErrorMessage string
}

// ComputeProgress derives a Progress snapshot from the instance at the given
// observation time. The percentage is clamped to [0, 100] even if counter
// updates transiently overshoot the total.
func ComputeProgress(i *Instance, now time.Time) Progress {
	p := Progress{
		InstanceID:       i.ID,
		Status:           i.Status,
		TotalRecords:     i.TotalRecords,
		ProcessedRecords: i.ProcessedRecords,
		SuccessRecords:   i.SuccessRecords,
		ErrorRecords:     i.ErrorRecords,
		SkippedRecords:   i.SkippedRecords,
		RetryCount:       i.RetryCount,
		ErrorMessage:     i.ErrorMessage,
	}
	if i.TotalRecords > 0 {
		pct := float64(i.ProcessedRecords) / float64(i.TotalRecords) * 100
		p.Percent = math.Round(pct*100) / 100
		if p.Percent < 0 {
			p.Percent = 0
		}
		if p.Percent > 100 {
			p.Percent = 100
		}
	}
	if i.StartedAt != nil {
		end := now
		if i.CompletedAt != nil {
			end = *i.CompletedAt
		}
		if end.After(*i.StartedAt) {
			p.Elapsed = end.Sub(*i.StartedAt)
		}
	}
	return p
}

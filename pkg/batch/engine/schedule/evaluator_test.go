package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/swell/pkg/batch/engine/schedule"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
	"github.com/tigerroll/swell/pkg/batch/test"
)

func newEvaluator(t *testing.T) *schedule.Evaluator {
	t.Helper()
	ev, err := schedule.NewEvaluator("UTC")
	require.NoError(t, err)
	return ev
}

func TestNewEvaluatorRejectsUnknownTimezone(t *testing.T) {
	_, err := schedule.NewEvaluator("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestIntervalNextRunAnchorsOnLastFiring(t *testing.T) {
	ev := newEvaluator(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	s := test.NewTestIntervalSchedule("def-1", 60, base)
	s.LastRunTime = &base

	// Evaluated mid-interval: next firing is one interval after the last
	// firing, not after the evaluation time.
	next, err := ev.NextRunTime(s, base.Add(30*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, base.Add(60*time.Minute), *next)
}

func TestIntervalNextRunForNeverFiredSchedule(t *testing.T) {
	ev := newEvaluator(t)
	ref := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	s := test.NewTestIntervalSchedule("def-1", 15, ref)
	s.LastRunTime = nil

	next, err := ev.NextRunTime(s, ref)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, ref.Add(15*time.Minute), *next)
}

func TestOneTimeScheduleFiresExactlyOnce(t *testing.T) {
	ev := newEvaluator(t)
	runAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := test.NewTestOneTimeSchedule("def-1", runAt)

	// Before any firing the stored run time stands.
	next, err := ev.NextRunTime(s, runAt.Add(-time.Hour))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, runAt, *next)

	// Once fired, the schedule is exhausted forever.
	fired := runAt
	s.LastRunTime = &fired
	next, err = ev.NextRunTime(s, runAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestCronNextRunIsStrictlyAfterRef(t *testing.T) {
	ev := newEvaluator(t)
	ref := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// Top of every hour. A firing at exactly ref belongs to the claim that
	// consumed it, so the next one is an hour later.
	s := test.NewTestCronSchedule("def-1", "0 * * * *", ref)
	next, err := ev.NextRunTime(s, ref)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, ref.Add(time.Hour), next.UTC())
}

func TestCronEvaluatedInConfiguredTimezone(t *testing.T) {
	ev, err := schedule.NewEvaluator("Asia/Tokyo")
	require.NoError(t, err)
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// Daily at 09:00 Tokyo time.
	ref := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) // 09:00 JST
	s := test.NewTestCronSchedule("def-1", "0 9 * * *", ref)
	next, err := ev.NextRunTime(s, ref)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, loc).UTC(), next.UTC())
}

func TestInvalidCronExpressionIsClassified(t *testing.T) {
	ev := newEvaluator(t)

	err := ev.ValidateCronExpression("not a cron")
	require.Error(t, err)
	assert.True(t, exception.IsErrorOfType(err, "InvalidCronExpression"))
	assert.True(t, exception.IsBatchError(err))

	s := test.NewTestCronSchedule("def-1", "61 * * * *", time.Now())
	_, err = ev.NextRunTime(s, time.Now())
	require.Error(t, err)
	assert.True(t, exception.IsErrorOfType(err, "InvalidCronExpression"))
}

func TestInactiveScheduleNeverFires(t *testing.T) {
	ev := newEvaluator(t)
	s := test.NewTestIntervalSchedule("def-1", 5, time.Now())
	s.Deactivate()

	next, err := ev.NextRunTime(s, time.Now())
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestIntervalRejectsNonPositiveMinutes(t *testing.T) {
	ev := newEvaluator(t)
	s := test.NewTestIntervalSchedule("def-1", 5, time.Now())
	s.IntervalMinutes = 0

	_, err := ev.NextRunTime(s, time.Now())
	require.Error(t, err)
	assert.True(t, exception.IsErrorOfType(err, "InvalidConfiguration"))
}

func TestEvaluatorDoesNotMutateSchedule(t *testing.T) {
	ev := newEvaluator(t)
	due := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := test.NewTestIntervalSchedule("def-1", 30, due)
	before := *s

	_, err := ev.NextRunTime(s, due.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, before, *s)
}

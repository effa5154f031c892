package test

import (
	"time"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

// NewTestJobDefinition creates an active JobDefinition for testing with the
// pass-through processor and small defaults. Panics on invalid input so test
// setup stays flat.
func NewTestJobDefinition(name string) *model.JobDefinition {
	def, err := model.NewJobDefinition(name, name, "record", model.JobTypeProcess, "passThrough", 10, 2, 5)
	if err != nil {
		panic(err)
	}
	return def
}

// NewTestIntervalSchedule creates an active interval Schedule for testing,
// due at the given time.
func NewTestIntervalSchedule(jobDefinitionID string, intervalMinutes int, next time.Time) *model.Schedule {
	s, err := model.NewSchedule(jobDefinitionID, model.ScheduleTypeInterval, "", intervalMinutes, nil)
	if err != nil {
		panic(err)
	}
	s.NextRunTime = &next
	return s
}

// NewTestCronSchedule creates an active cron Schedule for testing, due at
// the given time.
func NewTestCronSchedule(jobDefinitionID, expression string, next time.Time) *model.Schedule {
	s, err := model.NewSchedule(jobDefinitionID, model.ScheduleTypeCron, expression, 0, nil)
	if err != nil {
		panic(err)
	}
	s.NextRunTime = &next
	return s
}

// NewTestOneTimeSchedule creates an active one-time Schedule firing at runAt.
func NewTestOneTimeSchedule(jobDefinitionID string, runAt time.Time) *model.Schedule {
	s, err := model.NewSchedule(jobDefinitionID, model.ScheduleTypeOneTime, "", 0, &runAt)
	if err != nil {
		panic(err)
	}
	return s
}

// NewTestInstance creates a queued Instance for testing.
func NewTestInstance(jobDefinitionID string, params map[string]interface{}) *model.Instance {
	p := model.NewPayload()
	for k, v := range params {
		p.Put(k, v)
	}
	return model.NewInstance(jobDefinitionID, "", p)
}

// NewRecordPayloads builds n record payloads with a "seq" field, the shape
// the parameter record source consumes.
func NewRecordPayloads(n int) []interface{} {
	out := make([]interface{}, n)
	for i := 0; i < n; i++ {
		out[i] = map[string]interface{}{"seq": i}
	}
	return out
}

// NewTestInstanceWithRecords creates a queued Instance whose parameters carry
// n inline records.
func NewTestInstanceWithRecords(jobDefinitionID string, n int) *model.Instance {
	return NewTestInstance(jobDefinitionID, map[string]interface{}{
		"records": NewRecordPayloads(n),
	})
}

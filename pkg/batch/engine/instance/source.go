// Package instance coordinates the full lifecycle of one run: planning,
// bounded-parallel chunk execution, timeout supervision, and the terminal
// status decision.
package instance

import (
	"context"
	"fmt"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

// RecordSource supplies the input payloads an instance will process. The
// returned slice order defines the dataset's record indices; the planner
// slices it into chunks without reordering.
type RecordSource interface {
	Load(ctx context.Context, def *model.JobDefinition, inst *model.Instance) ([]model.Payload, error)
}

// ParameterRecordSource reads the dataset from the instance's trigger
// parameters under the "records" key. It serves jobs whose callers supply
// the work inline, and is the default source in tests and examples.
type ParameterRecordSource struct{}

// NewParameterRecordSource creates a new ParameterRecordSource.
func NewParameterRecordSource() *ParameterRecordSource {
	return &ParameterRecordSource{}
}

// Load extracts the record list from inst.Parameters["records"]. A missing
// key yields an empty dataset, not an error.
func (s *ParameterRecordSource) Load(ctx context.Context, def *model.JobDefinition, inst *model.Instance) ([]model.Payload, error) {
	raw, ok := inst.Parameters.Get("records")
	if !ok {
		return []model.Payload{}, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, exception.NewBatchError(coordinatorModule, fmt.Sprintf("parameter 'records' must be a list, got %T", raw), exception.ErrInvalidConfiguration, false, false)
	}

	inputs := make([]model.Payload, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case map[string]interface{}:
			inputs = append(inputs, model.Payload(v))
		case model.Payload:
			inputs = append(inputs, v)
		default:
			return nil, exception.NewBatchError(coordinatorModule, fmt.Sprintf("parameter 'records' element %d must be an object, got %T", i, item), exception.ErrInvalidConfiguration, false, false)
		}
	}
	return inputs, nil
}

var _ RecordSource = (*ParameterRecordSource)(nil)

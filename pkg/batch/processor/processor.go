// Package processor defines the plugin contract for per-record business
// logic. Processors are registered by name; a job definition references one
// through its ProcessorName and the executor resolves it once at dispatch
// time.
package processor

import (
	"context"
	"errors"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

// ErrSkipRecord signals that a record should be skipped rather than treated
// as a failure. Processors return it (possibly wrapped) for inputs they
// intentionally decline; skipped records consume no retry budget.
var ErrSkipRecord = errors.New("skip record")

// ErrProcessorNotFound is returned when a job definition references an
// unregistered processor name.
var ErrProcessorNotFound = errors.New("record processor not found")

func init() {
	exception.RegisterErrorType("SkipRecord", ErrSkipRecord)
	exception.RegisterErrorType("ProcessorNotFound", ErrProcessorNotFound)
}

// RecordProcessor transforms one record's input payload into a result
// payload. Implementations must be safe for concurrent use: the executor
// calls Process from multiple chunk goroutines of the same instance.
//
// A nil error with a result payload marks the record successful. ErrSkipRecord
// (or an error whose IsSkippable flag is set) marks it skipped. Any other
// error marks the attempt failed; whether it is retried is decided by the
// retry policy, not the processor.
type RecordProcessor interface {
	// Name returns the registry name the processor is resolved by.
	Name() string
	// Process transforms a single record.
	Process(ctx context.Context, input model.Payload) (model.Payload, error)
}

// ConfigurableRecordProcessor is implemented by processors that accept
// per-job configuration from the job definition's Config payload. Configure
// is called once per instance, before the first Process call.
type ConfigurableRecordProcessor interface {
	RecordProcessor
	Configure(cfg model.Payload) error
}

// IsSkip reports whether the error signals an intentional skip.
func IsSkip(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSkipRecord) {
		return true
	}
	var be *exception.BatchError
	if errors.As(err, &be) && be.IsSkippable() {
		return true
	}
	return false
}

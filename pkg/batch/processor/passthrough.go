package processor

import (
	"context"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	"github.com/tigerroll/swell/pkg/batch/support/util/logger"
)

// PassThroughProcessor returns the input payload as the result unchanged.
// Useful for jobs whose work is entirely in chunk planning and bookkeeping,
// and as the default processor in tests.
type PassThroughProcessor struct{}

// NewPassThroughProcessor creates a new PassThroughProcessor.
func NewPassThroughProcessor() *PassThroughProcessor {
	return &PassThroughProcessor{}
}

// Name returns "passThrough".
func (p *PassThroughProcessor) Name() string {
	return "passThrough"
}

// Process returns the input as is.
func (p *PassThroughProcessor) Process(ctx context.Context, input model.Payload) (model.Payload, error) {
	logger.Debugf("PassThroughProcessor: processing input: %+v", input)
	return input, nil
}

var _ RecordProcessor = (*PassThroughProcessor)(nil)

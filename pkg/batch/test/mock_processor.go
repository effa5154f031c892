package test

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	processor "github.com/tigerroll/swell/pkg/batch/processor"
)

// MockRecordProcessor is a testify mock implementation of the
// processor.RecordProcessor interface.
type MockRecordProcessor struct {
	mock.Mock
}

// Name mocks the Name method.
func (m *MockRecordProcessor) Name() string {
	args := m.Called()
	return args.String(0)
}

// Process mocks the Process method.
func (m *MockRecordProcessor) Process(ctx context.Context, input model.Payload) (model.Payload, error) {
	args := m.Called(ctx, input)
	if out := args.Get(0); out != nil {
		return out.(model.Payload), args.Error(1)
	}
	return nil, args.Error(1)
}

var _ processor.RecordProcessor = (*MockRecordProcessor)(nil)

// FlakyProcessor fails each record a fixed number of times before
// succeeding, keyed by the record's "seq" field. Failures are retryable.
type FlakyProcessor struct {
	FailuresPerRecord int

	mu       sync.Mutex
	attempts map[string]int
}

// NewFlakyProcessor creates a FlakyProcessor that fails each record
// failuresPerRecord times.
func NewFlakyProcessor(failuresPerRecord int) *FlakyProcessor {
	return &FlakyProcessor{
		FailuresPerRecord: failuresPerRecord,
		attempts:          make(map[string]int),
	}
}

func (p *FlakyProcessor) Name() string { return "flaky" }

func (p *FlakyProcessor) Process(ctx context.Context, input model.Payload) (model.Payload, error) {
	key := fmt.Sprintf("%v", input["seq"])
	p.mu.Lock()
	p.attempts[key]++
	attempt := p.attempts[key]
	p.mu.Unlock()
	if attempt <= p.FailuresPerRecord {
		return nil, fmt.Errorf("transient failure on record %s (attempt %d)", key, attempt)
	}
	out := input.Copy()
	out.Put("processed", true)
	return out, nil
}

// Attempts returns how many times the record with the given seq value was
// processed.
func (p *FlakyProcessor) Attempts(seq interface{}) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[fmt.Sprintf("%v", seq)]
}

var _ processor.RecordProcessor = (*FlakyProcessor)(nil)

// ScriptedProcessor runs a per-record function, for tests that need precise
// control over individual outcomes.
type ScriptedProcessor struct {
	ProcessorName string
	Fn            func(ctx context.Context, input model.Payload) (model.Payload, error)
}

func (p *ScriptedProcessor) Name() string {
	if p.ProcessorName == "" {
		return "scripted"
	}
	return p.ProcessorName
}

func (p *ScriptedProcessor) Process(ctx context.Context, input model.Payload) (model.Payload, error) {
	return p.Fn(ctx, input)
}

var _ processor.RecordProcessor = (*ScriptedProcessor)(nil)

// SlowProcessor blocks on the context until it is cancelled, then returns the
// context error. Timeout and cancellation tests use it to pin records in
// flight.
type SlowProcessor struct{}

func (p *SlowProcessor) Name() string { return "slow" }

func (p *SlowProcessor) Process(ctx context.Context, input model.Payload) (model.Payload, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var _ processor.RecordProcessor = (*SlowProcessor)(nil)

package metrics

import (
	"context"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing.
// It integrates with tracing systems like OpenTelemetry, enabling
// visualization of instance and chunk execution flows.
type Tracer interface {
	// StartInstanceSpan starts a Span covering one Instance run.
	//
	// Returns a context with the new Span set and a function to end the Span.
	// It is recommended to call the returned function in a defer statement.
	StartInstanceSpan(ctx context.Context, inst *model.Instance) (context.Context, func())

	// StartChunkSpan starts a Span covering one Chunk execution.
	StartChunkSpan(ctx context.Context, c *model.Chunk) (context.Context, func())

	// RecordError records an error in the current Span.
	//
	// module: The name of the component where the error occurred
	// (e.g., "scheduler", "chunk_executor").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current Span.
	//
	// name: The name of the event (e.g., "record_retry", "chunk_planned").
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}

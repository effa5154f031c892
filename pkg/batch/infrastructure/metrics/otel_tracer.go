package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/swell/pkg/batch/core/metrics"
)

const tracerName = "github.com/tigerroll/swell/pkg/batch"

// OpenTelemetryTracer is an implementation of metrics.Tracer using
// OpenTelemetry. Spans are exported through whatever tracer provider the
// application installs globally; without one, the default no-op provider
// makes this tracer free.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a new instance of OpenTelemetryTracer.
func NewOpenTelemetryTracer() *OpenTelemetryTracer {
	return &OpenTelemetryTracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartInstanceSpan starts a new span covering one instance run.
func (t *OpenTelemetryTracer) StartInstanceSpan(ctx context.Context, inst *model.Instance) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "swell.instance",
		trace.WithAttributes(
			attribute.String("swell.instance.id", inst.ID),
			attribute.String("swell.job_definition.id", inst.JobDefinitionID),
		))
	return ctx, func() {
		span.SetAttributes(
			attribute.String("swell.instance.status", inst.Status.String()),
			attribute.Int("swell.instance.total_records", inst.TotalRecords),
			attribute.Int("swell.instance.error_records", inst.ErrorRecords),
		)
		span.End()
	}
}

// StartChunkSpan starts a new span covering one chunk execution.
func (t *OpenTelemetryTracer) StartChunkSpan(ctx context.Context, c *model.Chunk) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "swell.chunk",
		trace.WithAttributes(
			attribute.String("swell.chunk.id", c.ID),
			attribute.Int("swell.chunk.index", c.ChunkIndex),
			attribute.Int("swell.chunk.total_records", c.TotalRecords),
		))
	return ctx, func() {
		span.SetAttributes(attribute.String("swell.chunk.status", c.Status.String()))
		span.End()
	}
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, trace.WithAttributes(attribute.String("swell.module", module)))
	span.SetStatus(codes.Error, err.Error())
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", v)))
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)

package metrics

import (
	"go.uber.org/fx"

	metrics "github.com/tigerroll/swell/pkg/batch/core/metrics"
)

// Module is an Fx module that provides PrometheusRecorder and
// OpenTelemetryTracer as the engine's metrics backends.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewPrometheusRecorder,
			fx.As(fx.Self()),
			fx.As(new(metrics.MetricRecorder)),
		),
	),
	fx.Provide(
		fx.Annotate(
			NewOpenTelemetryTracer,
			fx.As(new(metrics.Tracer)),
		),
	),
)

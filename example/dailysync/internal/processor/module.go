package processor

import (
	"go.uber.org/fx"

	batchprocessor "github.com/tigerroll/swell/pkg/batch/processor"
)

// Module registers the dailysync processors into the engine registry.
var Module = fx.Options(
	fx.Invoke(func(registry *batchprocessor.Registry) error {
		return registry.Register(NewNormalizeEmailProcessor())
	}),
)

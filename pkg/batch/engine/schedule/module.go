package schedule

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/swell/pkg/batch/core/config"
)

// Module is an Fx module that provides the schedule evaluator.
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config) (*Evaluator, error) {
		return NewEvaluator(cfg.Swell.System.Timezone)
	}),
)

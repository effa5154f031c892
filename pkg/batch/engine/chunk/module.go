package chunk

import (
	"go.uber.org/fx"
)

// Module is an Fx module that provides the chunk planner and executor.
var Module = fx.Options(
	fx.Provide(NewPlanner),
	fx.Provide(NewExecutor),
)

package transfer

import "go.uber.org/fx"

// Module is an Fx module that provides the transfer Runner.
var Module = fx.Options(
	fx.Provide(NewRunner),
)

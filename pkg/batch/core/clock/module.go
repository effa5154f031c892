package clock

import (
	"go.uber.org/fx"
)

// Module is an Fx module that provides the system clock.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewSystemClock,
		fx.As(new(Clock)),
	)),
)

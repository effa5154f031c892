package usecase

import (
	"go.uber.org/fx"
)

// Module is the Fx module for the JobOperator.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewDefaultJobOperator,
		fx.As(new(JobOperator)),
	)),
)

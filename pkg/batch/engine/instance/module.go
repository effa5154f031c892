package instance

import (
	"go.uber.org/fx"
)

// Module is an Fx module that provides the instance Coordinator and the
// default record source. Applications override the source by providing their
// own RecordSource implementation.
var Module = fx.Options(
	fx.Provide(NewCoordinator),
	fx.Provide(fx.Annotate(
		NewParameterRecordSource,
		fx.As(new(RecordSource)),
	)),
)

package processor

import (
	"go.uber.org/fx"
)

// Module is an Fx module that provides the processor registry with the
// built-in pass-through processor pre-registered. Applications register
// their own processors with fx.Invoke hooks against *Registry.
var Module = fx.Options(
	fx.Provide(NewRegistry),
	fx.Invoke(func(r *Registry) error {
		return r.Register(NewPassThroughProcessor())
	}),
)

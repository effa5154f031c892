package processor

import (
	"github.com/mitchellh/mapstructure"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

// BindConfig decodes a job definition's Config payload into a processor's
// typed configuration struct. Field names are matched via `mapstructure`
// tags; numeric values arriving as JSON float64 are converted weakly.
func BindConfig(cfg model.Payload, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to build config decoder", err, false, false)
	}
	if err := decoder.Decode(map[string]interface{}(cfg)); err != nil {
		return exception.NewBatchError(moduleName, "failed to bind processor config", err, false, false)
	}
	return nil
}

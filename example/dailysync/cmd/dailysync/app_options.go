package main

import (
	"context"

	"go.uber.org/fx"

	clock "github.com/tigerroll/swell/pkg/batch/core/clock"
	usecase "github.com/tigerroll/swell/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/swell/pkg/batch/core/config"
	chunk "github.com/tigerroll/swell/pkg/batch/engine/chunk"
	instance "github.com/tigerroll/swell/pkg/batch/engine/instance"
	retry "github.com/tigerroll/swell/pkg/batch/engine/retry"
	schedule "github.com/tigerroll/swell/pkg/batch/engine/schedule"
	scheduler "github.com/tigerroll/swell/pkg/batch/engine/scheduler"
	transfer "github.com/tigerroll/swell/pkg/batch/engine/transfer"
	infraMetrics "github.com/tigerroll/swell/pkg/batch/infrastructure/metrics"
	repository "github.com/tigerroll/swell/pkg/batch/infrastructure/repository"
	batchprocessor "github.com/tigerroll/swell/pkg/batch/processor"
	logger "github.com/tigerroll/swell/pkg/batch/support/util/logger"

	appprocessor "github.com/tigerroll/swell/example/dailysync/internal/processor"
)

// GetApplicationOptions assembles the Fx options for the dailysync app.
func GetApplicationOptions(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) []fx.Option {
	return []fx.Option{
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
		),
		logger.Module,
		config.Module,
		clock.Module,
		infraMetrics.Module,
		repository.Module,
		schedule.Module,
		retry.Module,
		batchprocessor.Module,
		chunk.Module,
		instance.Module,
		scheduler.Module,
		transfer.Module,
		usecase.Module,
		appprocessor.Module,
		fx.Invoke(seedDemoJob),
		fx.Invoke(serveMetrics),
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	usecase "github.com/tigerroll/swell/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	infraMetrics "github.com/tigerroll/swell/pkg/batch/infrastructure/metrics"
	logger "github.com/tigerroll/swell/pkg/batch/support/util/logger"
)

//go:embed resources/application.yaml
var embeddedConfig []byte

// seedDemoJob creates the demo job definition and its interval schedule on
// startup, then triggers one manual instance with inline records so the
// engine has immediate work.
func seedDemoJob(lc fx.Lifecycle, operator usecase.JobOperator) {
	lc.Append(fx.StartHook(func(ctx context.Context) error {
		def, err := model.NewJobDefinition(
			"daily-user-sync", "daily_user_sync", "user",
			model.JobTypeSync, "normalizeEmail",
			100, 2, 10,
		)
		if err != nil {
			return err
		}
		def.ErrorRateThreshold = 0.05
		def.Parallelism = 2
		def.Config.Put("default_domain", "example.com")
		def.Config.Put("skip_missing", true)
		if err := operator.CreateJobDefinition(ctx, def); err != nil {
			return err
		}

		sched, err := model.NewSchedule(def.ID, model.ScheduleTypeInterval, "", 1, nil)
		if err != nil {
			return err
		}
		if err := operator.CreateSchedule(ctx, sched); err != nil {
			return err
		}

		params := model.NewPayload()
		params.Put("records", []interface{}{
			map[string]interface{}{"email": "  Ada.Lovelace@Example.COM "},
			map[string]interface{}{"email": "jdoe"},
			map[string]interface{}{"name": "no-email"},
		})
		inst, err := operator.TriggerInstance(ctx, def.ID, params)
		if err != nil {
			return err
		}
		logger.Infof("Demo instance %s triggered for job '%s'.", inst.ID, def.Name)
		return nil
	}))
}

// serveMetrics exposes the Prometheus registry on :9090/metrics.
func serveMetrics(lc fx.Lifecycle, recorder *infraMetrics.PrometheusRecorder) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(recorder.GetRegistry(), promhttp.HandlerOpts{}))
	server := &http.Server{Addr: ":9090", Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Errorf("Metrics server failed: %v", err)
				}
			}()
			logger.Infof("Metrics exposed on %s/metrics.", server.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Shutting down...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	fxApp := fx.New(GetApplicationOptions(ctx, envFilePath, embeddedConfig)...)
	fxApp.Run()
	if fxApp.Err() != nil {
		logger.Fatalf("Application run failed: %v", fxApp.Err())
	}
}

package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/swell/pkg/batch/core/metrics"
	logger "github.com/tigerroll/swell/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the
// metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Scheduler metrics
	dispatchCounter         *prometheus.CounterVec
	dispatchConflictCounter *prometheus.CounterVec

	// Instance metrics
	instanceDurationSeconds *prometheus.HistogramVec
	instanceStatusCounter   *prometheus.CounterVec

	// Chunk metrics
	chunkDurationSeconds *prometheus.HistogramVec
	chunkStatusCounter   *prometheus.CounterVec

	// Record metrics
	recordOutcomeCounter *prometheus.CounterVec
	recordRetryCounter   *prometheus.CounterVec

	// Free-form durations
	durationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		dispatchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swell_dispatch_total",
			Help: "Total number of scheduler dispatches.",
		}, []string{"job_name"}),
		dispatchConflictCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swell_dispatch_conflict_total",
			Help: "Total number of claim races lost to a concurrent tick.",
		}, []string{"job_name"}),
		instanceDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swell_instance_duration_seconds",
			Help:    "Duration of instance runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		instanceStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swell_instance_status_total",
			Help: "Total number of instances by terminal status.",
		}, []string{"status"}),
		chunkDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swell_chunk_duration_seconds",
			Help:    "Duration of chunk executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		chunkStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swell_chunk_status_total",
			Help: "Total number of chunks by terminal status.",
		}, []string{"status"}),
		recordOutcomeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swell_record_outcome_total",
			Help: "Total finished records by job and terminal status.",
		}, []string{"job_name", "status"}),
		recordRetryCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swell_record_retry_total",
			Help: "Total record retry attempts by job and reason.",
		}, []string{"job_name", "reason"}),
		durationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swell_operation_duration_seconds",
			Help:    "Duration of named engine operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
	}

	registry.MustRegister(r.dispatchCounter)
	registry.MustRegister(r.dispatchConflictCounter)
	registry.MustRegister(r.instanceDurationSeconds)
	registry.MustRegister(r.instanceStatusCounter)
	registry.MustRegister(r.chunkDurationSeconds)
	registry.MustRegister(r.chunkStatusCounter)
	registry.MustRegister(r.recordOutcomeCounter)
	registry.MustRegister(r.recordRetryCounter)
	registry.MustRegister(r.durationSeconds)

	return r
}

// GetRegistry returns the Prometheus registry, for exposing via an HTTP
// handler.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordDispatch records one successful scheduler dispatch.
func (r *PrometheusRecorder) RecordDispatch(ctx context.Context, jobName string) {
	r.dispatchCounter.WithLabelValues(jobName).Inc()
}

// RecordDispatchConflict records a lost claim race.
func (r *PrometheusRecorder) RecordDispatchConflict(ctx context.Context, jobName string) {
	r.dispatchConflictCounter.WithLabelValues(jobName).Inc()
}

// RecordInstanceStart records the start of an Instance.
func (r *PrometheusRecorder) RecordInstanceStart(ctx context.Context, inst *model.Instance) {
	r.instanceStatusCounter.WithLabelValues(inst.Status.String()).Inc()
	logger.Debugf("Metrics: instance %s started.", inst.ID)
}

// RecordInstanceEnd records the terminal outcome of an Instance.
func (r *PrometheusRecorder) RecordInstanceEnd(ctx context.Context, inst *model.Instance) {
	r.instanceStatusCounter.WithLabelValues(inst.Status.String()).Inc()
	if inst.StartedAt == nil || inst.CompletedAt == nil {
		return
	}
	duration := inst.CompletedAt.Sub(*inst.StartedAt).Seconds()
	r.instanceDurationSeconds.WithLabelValues(inst.Status.String()).Observe(duration)
	logger.Debugf("Metrics: instance %s ended %s. Duration: %.3fs", inst.ID, inst.Status, duration)
}

// RecordChunkStart records the start of a Chunk.
func (r *PrometheusRecorder) RecordChunkStart(ctx context.Context, c *model.Chunk) {
	r.chunkStatusCounter.WithLabelValues(c.Status.String()).Inc()
}

// RecordChunkEnd records the terminal outcome of a Chunk.
func (r *PrometheusRecorder) RecordChunkEnd(ctx context.Context, c *model.Chunk) {
	r.chunkStatusCounter.WithLabelValues(c.Status.String()).Inc()
	if c.StartedAt == nil || c.CompletedAt == nil {
		return
	}
	r.chunkDurationSeconds.WithLabelValues(c.Status.String()).Observe(c.CompletedAt.Sub(*c.StartedAt).Seconds())
}

// RecordRecordOutcome records one finished record.
func (r *PrometheusRecorder) RecordRecordOutcome(ctx context.Context, jobName string, status model.RecordStatus) {
	r.recordOutcomeCounter.WithLabelValues(jobName, status.String()).Inc()
}

// RecordRetry records one retry attempt.
func (r *PrometheusRecorder) RecordRetry(ctx context.Context, jobName string, reason string) {
	r.recordRetryCounter.WithLabelValues(jobName, reason).Inc()
}

// RecordDuration records the execution time of a named operation. Tags other
// than the name are dropped; Prometheus labels must be bounded.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.durationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)

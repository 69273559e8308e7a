package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
	logger "github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of metrics.MetricRecorder.
// All series live on a private registry exposed through Handler.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	jobDurationSeconds  *prometheus.HistogramVec
	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec
	stepReadCount       *prometheus.CounterVec
	stepWriteCount      *prometheus.CounterVec
	stepCommitCount     *prometheus.CounterVec
	stepRollbackCount   *prometheus.CounterVec
	transferBytes       *prometheus.CounterVec
	operationSeconds    *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a PrometheusRecorder with Go and process collectors registered.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "greentaxi_job_duration_seconds",
			Help:    "Duration of load and export jobs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"job_name", "status"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "greentaxi_step_duration_seconds",
			Help:    "Duration of chunk-oriented steps.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"job_name", "step_name", "status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greentaxi_step_status_total",
			Help: "Step executions by final status.",
		}, []string{"job_name", "step_name", "status"}),
		stepReadCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greentaxi_step_read_total",
			Help: "Records read by step.",
		}, []string{"step_name"}),
		stepWriteCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greentaxi_step_write_total",
			Help: "Records written by step.",
		}, []string{"step_name"}),
		stepCommitCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greentaxi_step_commit_total",
			Help: "Chunk commits by step.",
		}, []string{"step_name"}),
		stepRollbackCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greentaxi_step_rollback_total",
			Help: "Chunk rollbacks by step.",
		}, []string{"step_name"}),
		transferBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greentaxi_transfer_bytes_total",
			Help: "Bytes moved by fetches and exports.",
		}, []string{"name"}),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "greentaxi_operation_duration_seconds",
			Help:    "Duration of named operations such as compute and reload.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name", "outcome"}),
	}

	registry.MustRegister(
		r.jobDurationSeconds,
		r.stepDurationSeconds,
		r.stepStatusCounter,
		r.stepReadCount,
		r.stepWriteCount,
		r.stepCommitCount,
		r.stepRollbackCount,
		r.transferBytes,
		r.operationSeconds,
	)
	return r
}

// Registry returns the underlying registry.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	if execution.EndTime == nil {
		return
	}
	d := execution.Duration().Seconds()
	r.jobDurationSeconds.WithLabelValues(execution.JobName, execution.Status.String()).Observe(d)
	logger.Debugf("Metrics: job '%s' ended after %.3fs.", execution.JobName, d)
}

func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	logger.Debugf("Metrics: step '%s' started.", execution.StepName)
}

func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	status := execution.Status.String()
	r.stepStatusCounter.WithLabelValues(execution.JobName(), execution.StepName, status).Inc()
	if execution.EndTime != nil {
		r.stepDurationSeconds.WithLabelValues(execution.JobName(), execution.StepName, status).Observe(execution.Duration().Seconds())
	}
}

func (r *PrometheusRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.stepReadCount.WithLabelValues(stepName).Add(float64(count))
}

func (r *PrometheusRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.stepWriteCount.WithLabelValues(stepName).Add(float64(count))
}

func (r *PrometheusRecorder) RecordChunkCommit(ctx context.Context, stepName string, count int) {
	r.stepCommitCount.WithLabelValues(stepName).Inc()
}

func (r *PrometheusRecorder) RecordChunkRollback(ctx context.Context, stepName string) {
	r.stepRollbackCount.WithLabelValues(stepName).Inc()
}

func (r *PrometheusRecorder) RecordBytes(ctx context.Context, name string, n int64) {
	r.transferBytes.WithLabelValues(name).Add(float64(n))
}

// RecordDuration observes duration under name. The "outcome" tag, when present, becomes a label.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	outcome := tags["outcome"]
	if outcome == "" {
		outcome = "ok"
	}
	r.operationSeconds.WithLabelValues(name, outcome).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)

package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	config "github.com/tigerroll/greentaxi/pkg/batch/core/config"
	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
)

// OTelMetricRecorder pushes measurements to an OTLP collector. It is used by batch commands,
// which exit before a Prometheus scrape could happen.
type OTelMetricRecorder struct {
	provider *sdkmetric.MeterProvider

	itemsRead      metric.Int64Counter
	itemsWritten   metric.Int64Counter
	chunkCommits   metric.Int64Counter
	chunkRollbacks metric.Int64Counter
	transferBytes  metric.Int64Counter
	stepDuration   metric.Float64Histogram
	jobDuration    metric.Float64Histogram
	opDuration     metric.Float64Histogram
}

// NewOTelMetricRecorder creates a recorder exporting through the configured OTLP transport.
func NewOTelMetricRecorder(ctx context.Context, cfg config.MetricsConfig, serviceName string) (*OTelMetricRecorder, error) {
	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch cfg.Type {
	case "otlp-http":
		opts := []otlpmetrichttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	case "otlp-grpc":
		opts := []otlpmetricgrpc.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported metric exporter '%s'", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s metric exporter: %w", cfg.Type, err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))),
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	return newOTelMetricRecorder(provider)
}

func newOTelMetricRecorder(provider *sdkmetric.MeterProvider) (*OTelMetricRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OTelMetricRecorder{provider: provider}

	var err error
	if r.itemsRead, err = meter.Int64Counter("greentaxi.step.read", metric.WithDescription("Records read by step.")); err != nil {
		return nil, err
	}
	if r.itemsWritten, err = meter.Int64Counter("greentaxi.step.write", metric.WithDescription("Records written by step.")); err != nil {
		return nil, err
	}
	if r.chunkCommits, err = meter.Int64Counter("greentaxi.step.commit", metric.WithDescription("Chunk commits by step.")); err != nil {
		return nil, err
	}
	if r.chunkRollbacks, err = meter.Int64Counter("greentaxi.step.rollback", metric.WithDescription("Chunk rollbacks by step.")); err != nil {
		return nil, err
	}
	if r.transferBytes, err = meter.Int64Counter("greentaxi.transfer.bytes", metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if r.stepDuration, err = meter.Float64Histogram("greentaxi.step.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.jobDuration, err = meter.Float64Histogram("greentaxi.job.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.opDuration, err = meter.Float64Histogram("greentaxi.operation.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

// Shutdown flushes pending measurements and stops the provider.
func (r *OTelMetricRecorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

func (r *OTelMetricRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	r.jobDuration.Record(ctx, execution.Duration().Seconds(), metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	))
}

func (r *OTelMetricRecorder) RecordStepStart(context.Context, *model.StepExecution) {}

func (r *OTelMetricRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	r.stepDuration.Record(ctx, execution.Duration().Seconds(), metric.WithAttributes(
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	))
}

func (r *OTelMetricRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.itemsRead.Add(ctx, int64(count), metric.WithAttributes(attribute.String("step_name", stepName)))
}

func (r *OTelMetricRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.itemsWritten.Add(ctx, int64(count), metric.WithAttributes(attribute.String("step_name", stepName)))
}

func (r *OTelMetricRecorder) RecordChunkCommit(ctx context.Context, stepName string, count int) {
	r.chunkCommits.Add(ctx, 1, metric.WithAttributes(attribute.String("step_name", stepName)))
}

func (r *OTelMetricRecorder) RecordChunkRollback(ctx context.Context, stepName string) {
	r.chunkRollbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("step_name", stepName)))
}

func (r *OTelMetricRecorder) RecordBytes(ctx context.Context, name string, n int64) {
	r.transferBytes.Add(ctx, n, metric.WithAttributes(attribute.String("name", name)))
}

func (r *OTelMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := []attribute.KeyValue{attribute.String("name", name)}
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.opDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OTelMetricRecorder)(nil)

package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder discards every measurement.
type NoOpMetricRecorder struct{}

func NewNoOpMetricRecorder() MetricRecorder { return &NoOpMetricRecorder{} }

func (r *NoOpMetricRecorder) RecordJobEnd(context.Context, *model.JobExecution)     {}
func (r *NoOpMetricRecorder) RecordStepStart(context.Context, *model.StepExecution) {}
func (r *NoOpMetricRecorder) RecordStepEnd(context.Context, *model.StepExecution)   {}
func (r *NoOpMetricRecorder) RecordItemRead(context.Context, string, int)           {}
func (r *NoOpMetricRecorder) RecordItemWrite(context.Context, string, int)          {}
func (r *NoOpMetricRecorder) RecordChunkCommit(context.Context, string, int)        {}
func (r *NoOpMetricRecorder) RecordChunkRollback(context.Context, string)           {}
func (r *NoOpMetricRecorder) RecordBytes(context.Context, string, int64)            {}
func (r *NoOpMetricRecorder) RecordDuration(context.Context, string, time.Duration, map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer opens no spans.
type NoOpTracer struct{}

func NewNoOpTracer() Tracer { return &NoOpTracer{} }

func (t *NoOpTracer) StartJobSpan(ctx context.Context, _ *model.JobExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartStepSpan(ctx context.Context, _ *model.StepExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartSpan(ctx context.Context, _ string, _ map[string]interface{}) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(context.Context, string, error)                  {}
func (t *NoOpTracer) RecordEvent(context.Context, string, map[string]interface{}) {}

var _ Tracer = (*NoOpTracer)(nil)

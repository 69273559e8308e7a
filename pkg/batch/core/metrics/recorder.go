// Package metrics declares the metric and tracing hooks the batch engine and the dashboard
// report through. Implementations live in pkg/batch/infrastructure/metrics.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
)

// MetricRecorder is an interface for recording measurements from loads, fetches and
// dashboard computations. Implementations must be safe for concurrent use.
type MetricRecorder interface {
	// RecordJobEnd records the final status and duration of a job execution.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart records the start of a step execution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd records the final status, duration and counters of a step execution.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)
	// RecordItemRead adds count to the items read by stepName.
	RecordItemRead(ctx context.Context, stepName string, count int)
	// RecordItemWrite adds count to the items written by stepName.
	RecordItemWrite(ctx context.Context, stepName string, count int)
	// RecordChunkCommit records one committed chunk of count items.
	RecordChunkCommit(ctx context.Context, stepName string, count int)
	// RecordChunkRollback records one rolled back chunk.
	RecordChunkRollback(ctx context.Context, stepName string)
	// RecordBytes adds n to the byte counter of the named transfer (e.g. "fetch").
	RecordBytes(ctx context.Context, name string, n int64)
	// RecordDuration observes an arbitrary named duration, e.g. "compute".
	//
	// name: The measurement name.
	// duration: The observed duration.
	// tags: Optional labels. Implementations may restrict them to a fixed label set.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}

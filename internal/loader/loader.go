// Package loader runs one monthly load: read the landed CSV, cast it, and upsert it into
// green_taxi chunk by chunk. The source is deleted after success and quarantined on failure.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	appconfig "github.com/tigerroll/greentaxi/internal/config"
	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/internal/domain/schema"
	"github.com/tigerroll/greentaxi/internal/step/processor"
	"github.com/tigerroll/greentaxi/internal/step/reader"
	"github.com/tigerroll/greentaxi/internal/step/writer"
	"github.com/tigerroll/greentaxi/pkg/batch/adapter/storage"
	"github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	coreconfig "github.com/tigerroll/greentaxi/pkg/batch/core/config"
	"github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	"github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
	"github.com/tigerroll/greentaxi/pkg/batch/core/tx"
	"github.com/tigerroll/greentaxi/pkg/batch/engine/step/item"
	"github.com/tigerroll/greentaxi/pkg/batch/listener/logging"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

const (
	moduleName = "loader"
	// JobName is the name of load job executions.
	JobName  = "load"
	stepName = "loadStep"
)

// BatchLoader loads landed trip files into storage.
type BatchLoader struct {
	schema    *schema.Descriptor
	txManager tx.TransactionManager
	landing   storage.StorageConnection
	appCfg    *appconfig.AppConfig
	chunkSize int
	bulkSize  int
	loc       *time.Location

	recorder      metrics.MetricRecorder
	tracer        metrics.Tracer
	jobListeners  []port.JobExecutionListener
	stepListeners []port.StepExecutionListener
	chunkListener []port.ChunkListener
	preSteps      []port.Step
	log           *logger.Logger
}

// Option customizes a BatchLoader.
type Option func(*BatchLoader)

// WithMetrics sets the metric recorder and tracer.
func WithMetrics(recorder metrics.MetricRecorder, tracer metrics.Tracer) Option {
	return func(l *BatchLoader) {
		if recorder != nil {
			l.recorder = recorder
		}
		if tracer != nil {
			l.tracer = tracer
		}
	}
}

// WithJobListener registers a listener called before and after every load.
func WithJobListener(listener port.JobExecutionListener) Option {
	return func(l *BatchLoader) { l.jobListeners = append(l.jobListeners, listener) }
}

// WithPreStep runs step before the load step of every job, e.g. a schema migration.
// A failing pre-step fails the job without touching the landed source.
func WithPreStep(step port.Step) Option {
	return func(l *BatchLoader) { l.preSteps = append(l.preSteps, step) }
}

// WithChunkSize overrides the number of records per transaction.
func WithChunkSize(n int) Option {
	return func(l *BatchLoader) { l.chunkSize = n }
}

// NewBatchLoader creates a loader. The schema is validated here, once.
func NewBatchLoader(
	desc *schema.Descriptor,
	txManager tx.TransactionManager,
	landing storage.StorageConnection,
	appCfg *appconfig.AppConfig,
	batchCfg *coreconfig.BatchConfig,
	systemCfg *coreconfig.SystemConfig,
	opts ...Option,
) (*BatchLoader, error) {
	if err := desc.Validate(); err != nil {
		return nil, exception.NewBatchError(moduleName, "invalid trip schema", err, false, false)
	}
	loc := time.UTC
	if systemCfg != nil && systemCfg.Timezone != "" {
		l, err := time.LoadLocation(systemCfg.Timezone)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "unknown timezone "+systemCfg.Timezone, err, false, false)
		}
		loc = l
	}
	l := &BatchLoader{
		schema:        desc,
		txManager:     txManager,
		landing:       landing,
		appCfg:        appCfg,
		chunkSize:     batchCfg.ChunkSize,
		bulkSize:      batchCfg.BulkSize,
		loc:           loc,
		recorder:      metrics.NewNoOpMetricRecorder(),
		tracer:        metrics.NewNoOpTracer(),
		stepListeners: []port.StepExecutionListener{logging.NewLoggingStepListener()},
		chunkListener: []port.ChunkListener{logging.NewLoggingChunkListener()},
		log:           logger.Named(moduleName),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.chunkSize <= 0 {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("chunk size must be positive, got %d", l.chunkSize), nil, false, false)
	}
	return l, nil
}

// ChunkSize returns the number of records flushed per transaction.
func (l *BatchLoader) ChunkSize() int { return l.chunkSize }

// Load reads object from landing storage and upserts its records for year/month.
// The returned JobExecution is never nil and carries the step counters, including
// chunks committed before a failure.
func (l *BatchLoader) Load(ctx context.Context, object, year, month string) (je *model.JobExecution, err error) {
	je = model.NewJobExecution(JobName, map[string]string{"year": year, "month": month, "object": object})
	ctx, endSpan := l.tracer.StartJobSpan(ctx, je)
	defer endSpan()

	je.MarkAsStarted()
	for _, jl := range l.jobListeners {
		jl.BeforeJob(ctx, je)
	}

	var guard *SourceGuard
	defer func() {
		if err != nil {
			if guard != nil {
				if _, qerr := guard.Quarantine(context.WithoutCancel(ctx)); qerr != nil {
					err = multierror.Append(err, qerr)
				}
			}
			je.MarkAsFailed(err)
		} else {
			je.MarkAsCompleted()
		}
		l.recorder.RecordJobEnd(ctx, je)
		for _, jl := range l.jobListeners {
			jl.AfterJob(ctx, je)
		}
	}()

	for _, step := range l.preSteps {
		if err := step.Execute(ctx, je.NewStepExecution(step.StepName())); err != nil {
			return je, err
		}
	}

	guard = NewSourceGuard(l.landing, object, l.appCfg.Source.QuarantinePrefix)
	if err := l.run(ctx, je, object, year, month); err != nil {
		return je, err
	}
	if cerr := guard.Commit(ctx); cerr != nil {
		// The data is committed; a leftover source is only reported.
		l.log.Warnf("%v", cerr)
	}
	return je, nil
}

func (l *BatchLoader) run(ctx context.Context, je *model.JobExecution, object, year, month string) error {
	proc, err := processor.NewTripProcessor(l.schema, year, month, l.loc)
	if err != nil {
		return exception.NewBatchError(moduleName, "invalid load period", err, false, false)
	}
	rd := reader.NewCSVLineReader(l.landing, "", object, l.schema)
	wr := writer.NewTripWriter(l.schema, l.bulkSize)

	opts := []item.Option[reader.Line, entity.TripRecord]{
		item.WithMetrics[reader.Line, entity.TripRecord](l.recorder, l.tracer),
	}
	for _, sl := range l.stepListeners {
		opts = append(opts, item.WithStepListener[reader.Line, entity.TripRecord](sl))
	}
	for _, cl := range l.chunkListener {
		opts = append(opts, item.WithChunkListener[reader.Line, entity.TripRecord](cl))
	}
	step, err := item.NewChunkStep[reader.Line, entity.TripRecord](stepName, rd, proc, wr, l.chunkSize, l.txManager, opts...)
	if err != nil {
		return err
	}
	l.log.Infof("Loading %s for %s-%s in chunks of %d records.", l.landing.URI("", object), year, month, l.chunkSize)
	return step.Execute(ctx, je.NewStepExecution(stepName))
}

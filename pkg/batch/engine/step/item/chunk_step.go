// Package item implements the chunk-oriented step: read up to chunkSize items, process them,
// write them in one transaction, commit, repeat until the reader is exhausted.
package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	port "github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
	tx "github.com/tigerroll/greentaxi/pkg/batch/core/tx"
	exception "github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// ChunkStep drives a reader, processor and writer. Memory is bounded by chunkSize:
// at most one chunk of processed items is held at a time.
type ChunkStep[I, O any] struct {
	name      string                   // name is the step name recorded on the StepExecution.
	reader    port.ItemReader[I]       // reader supplies items until io.EOF.
	processor port.ItemProcessor[I, O] // processor converts each read item; an error fails the chunk.
	writer    port.ItemWriter[O]       // writer persists one chunk per transaction.
	chunkSize int                      // chunkSize is the commit interval.
	txManager tx.TransactionManager    // txManager begins, commits and rolls back chunk transactions.
	txOptions *sql.TxOptions           // txOptions are passed to every Begin; nil uses driver defaults.

	chunkListeners []port.ChunkListener         // chunkListeners are notified around every chunk.
	stepListeners  []port.StepExecutionListener // stepListeners are notified before and after the step.

	metricRecorder metrics.MetricRecorder // metricRecorder receives item, chunk and step metrics.
	tracer         metrics.Tracer         // tracer opens the step and chunk spans.
	log            *logger.Logger
}

// Option configures optional collaborators of a ChunkStep.
type Option[I, O any] func(*ChunkStep[I, O])

// WithChunkListener registers a chunk listener.
func WithChunkListener[I, O any](l port.ChunkListener) Option[I, O] {
	return func(s *ChunkStep[I, O]) { s.chunkListeners = append(s.chunkListeners, l) }
}

// WithStepListener registers a step listener.
func WithStepListener[I, O any](l port.StepExecutionListener) Option[I, O] {
	return func(s *ChunkStep[I, O]) { s.stepListeners = append(s.stepListeners, l) }
}

// WithMetrics sets the metric recorder and tracer.
func WithMetrics[I, O any](recorder metrics.MetricRecorder, tracer metrics.Tracer) Option[I, O] {
	return func(s *ChunkStep[I, O]) {
		if recorder != nil {
			s.metricRecorder = recorder
		}
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithTxOptions sets the options every chunk transaction begins with.
func WithTxOptions[I, O any](opts *sql.TxOptions) Option[I, O] {
	return func(s *ChunkStep[I, O]) { s.txOptions = opts }
}

// NewChunkStep creates a new instance of [ChunkStep].
//
// Parameters:
//
//	name: The step name.
//	reader: The [port.ItemReader] items are read from.
//	processor: The [port.ItemProcessor] applied to each item.
//	writer: The [port.ItemWriter] each chunk is written to.
//	chunkSize: The number of items per transaction. Must be positive.
//	txManager: The [tx.TransactionManager] chunk transactions are opened with.
//	opts: Optional listeners, metrics and transaction options.
//
// Returns:
//
//	A new [ChunkStep], or an error when chunkSize is not positive.
func NewChunkStep[I, O any](
	name string,
	reader port.ItemReader[I],
	processor port.ItemProcessor[I, O],
	writer port.ItemWriter[O],
	chunkSize int,
	txManager tx.TransactionManager,
	opts ...Option[I, O],
) (*ChunkStep[I, O], error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("step '%s': chunk size must be positive, got %d", name, chunkSize)
	}
	s := &ChunkStep[I, O]{
		name:           name,
		reader:         reader,
		processor:      processor,
		writer:         writer,
		chunkSize:      chunkSize,
		txManager:      txManager,
		metricRecorder: metrics.NewNoOpMetricRecorder(),
		tracer:         metrics.NewNoOpTracer(),
		log:            logger.Named(name),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StepName returns the step name.
func (s *ChunkStep[I, O]) StepName() string { return s.name }

// ChunkSize returns the configured chunk size.
func (s *ChunkStep[I, O]) ChunkSize() int { return s.chunkSize }

// Execute runs the step to completion or first failure and updates stepExecution.
// Chunks committed before a failure stay committed; the failing chunk is rolled back.
//
// Parameters:
//
//	ctx: The context for the step. Cancellation stops the step between items.
//	stepExecution: The [model.StepExecution] whose status and counters are updated.
//
// Returns:
//
//	The first read, process, write or commit error, joined with any reader or writer
//	Close error, or nil when the reader was exhausted.
func (s *ChunkStep[I, O]) Execute(ctx context.Context, stepExecution *model.StepExecution) (err error) {
	ctx, endSpan := s.tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()

	stepExecution.MarkAsStarted()
	s.metricRecorder.RecordStepStart(ctx, stepExecution)
	for _, l := range s.stepListeners {
		l.BeforeStep(ctx, stepExecution)
	}
	defer func() {
		if err != nil {
			s.tracer.RecordError(ctx, s.name, err)
			stepExecution.MarkAsFailed(err)
		} else {
			stepExecution.MarkAsCompleted()
		}
		s.metricRecorder.RecordStepEnd(ctx, stepExecution)
		for _, l := range s.stepListeners {
			l.AfterStep(ctx, stepExecution)
		}
		s.log.Infof("Step finished with status %s: read=%d written=%d commits=%d rollbacks=%d.",
			stepExecution.Status, stepExecution.ReadCount, stepExecution.WriteCount,
			stepExecution.CommitCount, stepExecution.RollbackCount)
	}()

	if err := s.reader.Open(ctx); err != nil {
		return exception.NewBatchError(s.name, "failed to open reader", err, false, false)
	}
	if err := s.writer.Open(ctx); err != nil {
		closeErr := s.reader.Close(ctx)
		return multierror.Append(exception.NewBatchError(s.name, "failed to open writer", err, false, false), closeErr).ErrorOrNil()
	}

	runErr := s.run(ctx, stepExecution)

	var result *multierror.Error
	if runErr != nil {
		result = multierror.Append(result, runErr)
	}
	if cerr := s.writer.Close(ctx); cerr != nil {
		result = multierror.Append(result, exception.NewBatchError(s.name, "failed to close writer", cerr, false, false))
	}
	if cerr := s.reader.Close(ctx); cerr != nil {
		result = multierror.Append(result, exception.NewBatchError(s.name, "failed to close reader", cerr, false, false))
	}
	if result == nil {
		return nil
	}
	if len(result.Errors) == 1 {
		return result.Errors[0]
	}
	return result
}

func (s *ChunkStep[I, O]) run(ctx context.Context, stepExecution *model.StepExecution) error {
	for {
		if err := ctx.Err(); err != nil {
			return exception.NewBatchError(s.name, "step interrupted", err, false, false)
		}

		items, eof, err := s.readChunk(ctx, stepExecution)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		if err := s.writeChunk(ctx, stepExecution, items); err != nil {
			return err
		}
		if eof {
			return nil
		}
	}
}

// readChunk reads and processes up to chunkSize items. eof reports that the reader is exhausted.
func (s *ChunkStep[I, O]) readChunk(ctx context.Context, stepExecution *model.StepExecution) ([]O, bool, error) {
	items := make([]O, 0, min(s.chunkSize, 4096))
	for len(items) < s.chunkSize {
		in, err := s.reader.Read(ctx)
		if errors.Is(err, port.ErrNoMoreItems) || errors.Is(err, io.EOF) {
			s.metricRecorder.RecordItemRead(ctx, s.name, len(items))
			return items, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		stepExecution.ReadCount++

		out, err := s.processor.Process(ctx, in)
		if err != nil {
			return nil, false, err
		}
		items = append(items, out)
	}
	s.metricRecorder.RecordItemRead(ctx, s.name, len(items))
	return items, false, nil
}

func (s *ChunkStep[I, O]) writeChunk(ctx context.Context, stepExecution *model.StepExecution, items []O) error {
	for _, l := range s.chunkListeners {
		l.BeforeChunk(ctx, stepExecution)
	}

	var opts []*sql.TxOptions
	if s.txOptions != nil {
		opts = append(opts, s.txOptions)
	}
	t, err := s.txManager.Begin(ctx, opts...)
	if err != nil {
		err = exception.NewBatchError(s.name, "failed to begin chunk transaction", err, false, true)
		s.notifyChunkError(ctx, stepExecution, err)
		return err
	}

	if err := s.writer.Write(ctx, t, items); err != nil {
		return s.rollback(ctx, stepExecution, t, err)
	}
	if err := s.txManager.Commit(t); err != nil {
		err = exception.NewBatchError(s.name, "failed to commit chunk", err, false, false)
		stepExecution.RollbackCount++
		s.metricRecorder.RecordChunkRollback(ctx, s.name)
		s.notifyChunkError(ctx, stepExecution, err)
		return err
	}

	stepExecution.WriteCount += len(items)
	stepExecution.CommitCount++
	s.metricRecorder.RecordItemWrite(ctx, s.name, len(items))
	s.metricRecorder.RecordChunkCommit(ctx, s.name, len(items))
	s.log.Debugf("Committed chunk %d with %d records.", stepExecution.CommitCount, len(items))
	for _, l := range s.chunkListeners {
		l.AfterChunk(ctx, stepExecution, len(items))
	}
	return nil
}

func (s *ChunkStep[I, O]) rollback(ctx context.Context, stepExecution *model.StepExecution, t tx.Tx, cause error) error {
	stepExecution.RollbackCount++
	s.metricRecorder.RecordChunkRollback(ctx, s.name)
	err := cause
	if rbErr := s.txManager.Rollback(t); rbErr != nil {
		s.log.Errorf("Rollback failed: %v", rbErr)
		err = multierror.Append(cause, fmt.Errorf("rollback: %w", rbErr))
	}
	s.notifyChunkError(ctx, stepExecution, err)
	return err
}

func (s *ChunkStep[I, O]) notifyChunkError(ctx context.Context, stepExecution *model.StepExecution, err error) {
	for _, l := range s.chunkListeners {
		l.AfterChunkError(ctx, stepExecution, err)
	}
}

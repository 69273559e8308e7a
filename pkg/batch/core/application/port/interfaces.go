// Package port declares the contracts between the chunk engine and the components it drives.
package port

import (
	"context"
	"errors"

	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/greentaxi/pkg/batch/core/tx"
)

// ErrNoMoreItems is returned by ItemReader.Read when the input is exhausted.
// Readers may return io.EOF instead; the engine accepts both.
var ErrNoMoreItems = errors.New("no more items")

// ItemReader produces items one at a time.
type ItemReader[O any] interface {
	// Open acquires the underlying resource.
	Open(ctx context.Context) error
	// Read returns the next item, or ErrNoMoreItems / io.EOF at the end of input.
	Read(ctx context.Context) (O, error)
	// Close releases the underlying resource.
	Close(ctx context.Context) error
}

// ItemProcessor converts one read item into one item to write.
type ItemProcessor[I, O any] interface {
	// Process converts item.
	//
	// ctx: The context for the operation.
	// item: The item returned by the reader.
	// Returns: The converted item, or an error that fails the current chunk and the step.
	Process(ctx context.Context, item I) (O, error)
}

// ItemWriter persists one chunk of items inside the chunk's transaction.
type ItemWriter[I any] interface {
	// Open prepares the writer before the first chunk.
	Open(ctx context.Context) error

	// Write persists items using tx. It is called once per chunk.
	//
	// ctx: The context for the operation.
	// tx: The chunk's transaction. Writers must not commit or roll it back.
	// items: The processed items of the chunk, in read order.
	// Returns: An error that rolls back the chunk and fails the step.
	Write(ctx context.Context, tx tx.Tx, items []I) error

	// Close flushes and releases the writer after the last chunk, also after a failure.
	Close(ctx context.Context) error
}

// ChunkListener observes chunk boundaries.
type ChunkListener interface {
	// BeforeChunk is called before the chunk transaction begins.
	BeforeChunk(ctx context.Context, stepExecution *model.StepExecution)
	// AfterChunk is called after a successful commit of written items.
	AfterChunk(ctx context.Context, stepExecution *model.StepExecution, written int)
	// AfterChunkError is called when the chunk failed with err, after any rollback.
	AfterChunkError(ctx context.Context, stepExecution *model.StepExecution, err error)
}

// StepExecutionListener observes the start and end of a step.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// JobExecutionListener observes the start and end of a job.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// Step is one executable unit of a job.
type Step interface {
	// StepName returns the name recorded on the step execution.
	StepName() string
	// Execute runs the step and records its status and counters on stepExecution.
	// Returns: The error that failed the step, or nil.
	Execute(ctx context.Context, stepExecution *model.StepExecution) error
}

// Tasklet performs a single non-chunked task, such as a schema migration.
type Tasklet interface {
	// Execute performs the task once. Returns: The error that fails the step, or nil.
	Execute(ctx context.Context, stepExecution *model.StepExecution) error
	// Close releases the tasklet's resources. It is called after Execute, also after a failure.
	Close(ctx context.Context) error
}

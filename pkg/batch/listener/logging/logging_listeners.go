// Package logging provides listeners that log job, step and chunk boundaries.
package logging

import (
	"context"

	port "github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// --- Job Execution Listener ---

type LoggingJobListener struct {
	log *logger.Logger
}

func NewLoggingJobListener() *LoggingJobListener {
	return &LoggingJobListener{log: logger.Named("job")}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.log.Infof("Job '%s' (ID: %s) starting with parameters %v.", jobExecution.JobName, jobExecution.ID, jobExecution.Parameters)
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	if jobExecution.Status == model.BatchStatusCompleted {
		l.log.Infof("Job '%s' (ID: %s) completed in %s.", jobExecution.JobName, jobExecution.ID, jobExecution.Duration())
		return
	}
	l.log.Errorf("Job '%s' (ID: %s) finished with status %s after %s: %v",
		jobExecution.JobName, jobExecution.ID, jobExecution.Status, jobExecution.Duration(), jobExecution.Err())
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Step Execution Listener ---

type LoggingStepListener struct {
	log *logger.Logger
}

func NewLoggingStepListener() *LoggingStepListener {
	return &LoggingStepListener{log: logger.Named("step")}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	l.log.Infof("Step '%s' of job '%s' starting.", stepExecution.StepName, stepExecution.JobName())
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	l.log.Infof("Step '%s' finished with status %s in %s (read=%d, written=%d).",
		stepExecution.StepName, stepExecution.Status, stepExecution.Duration(), stepExecution.ReadCount, stepExecution.WriteCount)
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)

// --- Chunk Listener ---

type LoggingChunkListener struct {
	log *logger.Logger
}

func NewLoggingChunkListener() *LoggingChunkListener {
	return &LoggingChunkListener{log: logger.Named("chunk")}
}

func (l *LoggingChunkListener) BeforeChunk(ctx context.Context, stepExecution *model.StepExecution) {
	l.log.Debugf("Step '%s': writing chunk %d.", stepExecution.StepName, stepExecution.CommitCount+1)
}

func (l *LoggingChunkListener) AfterChunk(ctx context.Context, stepExecution *model.StepExecution, written int) {
	l.log.Infof("Step '%s': flushed %d records (total %d).", stepExecution.StepName, written, stepExecution.WriteCount)
}

func (l *LoggingChunkListener) AfterChunkError(ctx context.Context, stepExecution *model.StepExecution, err error) {
	l.log.Errorf("Step '%s': chunk %d rolled back: %v", stepExecution.StepName, stepExecution.CommitCount+1, err)
}

var _ port.ChunkListener = (*LoggingChunkListener)(nil)

// Package model defines the execution records of batch runs.
package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the lifecycle state of a job or step execution.
type BatchStatus string

const (
	BatchStatusStarting  BatchStatus = "STARTING"
	BatchStatusStarted   BatchStatus = "STARTED"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusFailed    BatchStatus = "FAILED"
)

// String returns the status name.
func (s BatchStatus) String() string { return string(s) }

// IsFinished reports whether the status is terminal.
func (s BatchStatus) IsFinished() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// JobExecution records one run of a job such as "load 2019-01".
type JobExecution struct {
	ID         string
	JobName    string
	Parameters map[string]string
	Status     BatchStatus
	StartTime  time.Time
	EndTime    *time.Time
	Failures   []error

	StepExecutions []*StepExecution
}

// NewJobExecution creates a JobExecution in STARTING state with a fresh id.
func NewJobExecution(jobName string, params map[string]string) *JobExecution {
	if params == nil {
		params = map[string]string{}
	}
	return &JobExecution{
		ID:         uuid.NewString(),
		JobName:    jobName,
		Parameters: params,
		Status:     BatchStatusStarting,
		StartTime:  time.Now(),
	}
}

// NewStepExecution creates a step belonging to this job and registers it.
func (je *JobExecution) NewStepExecution(stepName string) *StepExecution {
	se := &StepExecution{
		ID:               uuid.NewString(),
		StepName:         stepName,
		JobExecution:     je,
		Status:           BatchStatusStarting,
		ExecutionContext: map[string]interface{}{},
	}
	je.StepExecutions = append(je.StepExecutions, se)
	return se
}

// MarkAsStarted sets the status to STARTED.
func (je *JobExecution) MarkAsStarted() {
	je.Status = BatchStatusStarted
	je.StartTime = time.Now()
}

// MarkAsCompleted sets the status to COMPLETED and stamps the end time.
func (je *JobExecution) MarkAsCompleted() {
	now := time.Now()
	je.Status = BatchStatusCompleted
	je.EndTime = &now
}

// MarkAsFailed sets the status to FAILED, records err and stamps the end time.
func (je *JobExecution) MarkAsFailed(err error) {
	now := time.Now()
	je.Status = BatchStatusFailed
	je.EndTime = &now
	if err != nil {
		je.Failures = append(je.Failures, err)
	}
}

// Duration returns the elapsed time, or zero while the job is running.
func (je *JobExecution) Duration() time.Duration {
	if je.EndTime == nil {
		return 0
	}
	return je.EndTime.Sub(je.StartTime)
}

// Err joins all recorded failures.
func (je *JobExecution) Err() error {
	return errors.Join(je.Failures...)
}

// StepExecution records the counters of one chunk-oriented step.
type StepExecution struct {
	ID           string
	StepName     string
	JobExecution *JobExecution
	Status       BatchStatus
	StartTime    time.Time
	EndTime      *time.Time

	ReadCount     int
	WriteCount    int
	CommitCount   int
	RollbackCount int
	Failures      []error

	// ExecutionContext carries values a step publishes for listeners (e.g. the source path).
	ExecutionContext map[string]interface{}
}

// JobName returns the owning job's name, or "" for a detached step.
func (se *StepExecution) JobName() string {
	if se.JobExecution == nil {
		return ""
	}
	return se.JobExecution.JobName
}

// MarkAsStarted sets the status to STARTED.
func (se *StepExecution) MarkAsStarted() {
	se.Status = BatchStatusStarted
	se.StartTime = time.Now()
}

// MarkAsCompleted sets the status to COMPLETED.
func (se *StepExecution) MarkAsCompleted() {
	now := time.Now()
	se.Status = BatchStatusCompleted
	se.EndTime = &now
}

// MarkAsFailed sets the status to FAILED and records err.
func (se *StepExecution) MarkAsFailed(err error) {
	now := time.Now()
	se.Status = BatchStatusFailed
	se.EndTime = &now
	if err != nil {
		se.Failures = append(se.Failures, err)
	}
}

// Duration returns the elapsed time, or zero while the step is running.
func (se *StepExecution) Duration() time.Duration {
	if se.EndTime == nil {
		return 0
	}
	return se.EndTime.Sub(se.StartTime)
}

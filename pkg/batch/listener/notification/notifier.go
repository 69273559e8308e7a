// Package notification announces finished jobs to other processes.
package notification

import (
	"context"
	"time"

	port "github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// Notifier delivers a job completion notice.
type Notifier interface {
	NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) error
	Close() error
}

// JobCompletedEvent is the payload published for a finished job.
type JobCompletedEvent struct {
	JobExecutionID string            `json:"job_execution_id"`
	JobName        string            `json:"job_name"`
	Status         string            `json:"status"`
	Parameters     map[string]string `json:"parameters"`
	WriteCount     int               `json:"write_count"`
	EndTime        time.Time         `json:"end_time"`
	Error          string            `json:"error,omitempty"`
}

// NewJobCompletedEvent summarizes execution.
func NewJobCompletedEvent(execution *model.JobExecution) JobCompletedEvent {
	ev := JobCompletedEvent{
		JobExecutionID: execution.ID,
		JobName:        execution.JobName,
		Status:         execution.Status.String(),
		Parameters:     execution.Parameters,
		EndTime:        time.Now(),
	}
	if execution.EndTime != nil {
		ev.EndTime = *execution.EndTime
	}
	for _, se := range execution.StepExecutions {
		ev.WriteCount += se.WriteCount
	}
	if err := execution.Err(); err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// LoggingNotifier only logs notifications.
type LoggingNotifier struct {
	log *logger.Logger
}

// NewLoggingNotifier creates a LoggingNotifier.
func NewLoggingNotifier() *LoggingNotifier {
	return &LoggingNotifier{log: logger.Named("notification")}
}

// NotifyJobCompletion logs a one-line summary.
func (n *LoggingNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) error {
	ev := NewJobCompletedEvent(execution)
	if execution.Status == model.BatchStatusCompleted {
		n.log.Infof("Job '%s' (ID: %s) finished with status %s, %d records written.", ev.JobName, ev.JobExecutionID, ev.Status, ev.WriteCount)
	} else {
		n.log.Warnf("Job '%s' (ID: %s) finished with status %s: %s", ev.JobName, ev.JobExecutionID, ev.Status, ev.Error)
	}
	return nil
}

func (n *LoggingNotifier) Close() error { return nil }

// NoOpNotifier discards notifications.
type NoOpNotifier struct{}

func (NoOpNotifier) NotifyJobCompletion(context.Context, *model.JobExecution) error { return nil }
func (NoOpNotifier) Close() error                                                   { return nil }

var (
	_ Notifier = (*LoggingNotifier)(nil)
	_ Notifier = NoOpNotifier{}
)

// NotificationListener sends a notification after every job. Delivery failures are logged
// and never change the job outcome.
type NotificationListener struct {
	notifier Notifier
	log      *logger.Logger
}

// NewNotificationListener wraps notifier as a JobExecutionListener.
func NewNotificationListener(notifier Notifier) *NotificationListener {
	return &NotificationListener{notifier: notifier, log: logger.Named("notification")}
}

func (l *NotificationListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {}

func (l *NotificationListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	if err := l.notifier.NotifyJobCompletion(ctx, jobExecution); err != nil {
		l.log.Warnf("Failed to send notification for job '%s' (ID: %s): %v", jobExecution.JobName, jobExecution.ID, err)
	}
}

var _ port.JobExecutionListener = (*NotificationListener)(nil)

// Package tasklet runs a single port.Tasklet as a step of a job.
package tasklet

import (
	"context"

	port "github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
	exception "github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// TaskletStep executes a tasklet once and records the outcome on the step execution.
type TaskletStep struct {
	name                   string                       // name is the step name recorded on the StepExecution.
	tasklet                port.Tasklet                 // tasklet is the unit of work run once per execution.
	stepExecutionListeners []port.StepExecutionListener // stepExecutionListeners are notified before and after the step.
	metricRecorder         metrics.MetricRecorder       // metricRecorder receives the step start and end.
	tracer                 metrics.Tracer               // tracer opens the step span.
	log                    *logger.Logger
}

// NewTaskletStep creates a new instance of [TaskletStep].
//
// Parameters:
//
//	name: The step name.
//	tasklet: The [port.Tasklet] to run.
//	stepExecutionListeners: Listeners notified around the step. May be nil.
//	metricRecorder: The [metrics.MetricRecorder] to use. Nil disables metrics.
//	tracer: The [metrics.Tracer] to use. Nil disables tracing.
//
// Returns:
//
//	A new [TaskletStep] instance.
func NewTaskletStep(
	name string,
	tasklet port.Tasklet,
	stepExecutionListeners []port.StepExecutionListener,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *TaskletStep {
	if metricRecorder == nil {
		metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &TaskletStep{
		name:                   name,
		tasklet:                tasklet,
		stepExecutionListeners: stepExecutionListeners,
		metricRecorder:         metricRecorder,
		tracer:                 tracer,
		log:                    logger.Named(name),
	}
}

// StepName returns the step name.
func (s *TaskletStep) StepName() string {
	return s.name
}

// Execute runs the tasklet and closes it. A close failure fails an otherwise successful step.
//
// Parameters:
//
//	ctx: The context for the tasklet.
//	stepExecution: The [model.StepExecution] marked started and then completed or failed.
//
// Returns:
//
//	The tasklet error, the close error, or nil.
func (s *TaskletStep) Execute(ctx context.Context, stepExecution *model.StepExecution) (err error) {
	ctx, end := s.tracer.StartStepSpan(ctx, stepExecution)
	defer end()

	stepExecution.MarkAsStarted()
	s.metricRecorder.RecordStepStart(ctx, stepExecution)
	for _, l := range s.stepExecutionListeners {
		l.BeforeStep(ctx, stepExecution)
	}

	err = s.tasklet.Execute(ctx, stepExecution)
	if closeErr := s.tasklet.Close(ctx); closeErr != nil {
		s.log.Errorf("Failed to close tasklet: %v", closeErr)
		if err == nil {
			err = closeErr
		}
	}

	if err != nil {
		err = exception.NewBatchError(s.name, "tasklet failed", err, false, false)
		s.tracer.RecordError(ctx, s.name, err)
		stepExecution.MarkAsFailed(err)
	} else {
		stepExecution.MarkAsCompleted()
	}
	s.metricRecorder.RecordStepEnd(ctx, stepExecution)
	for _, l := range s.stepExecutionListeners {
		l.AfterStep(ctx, stepExecution)
	}
	return err
}

var _ port.Step = (*TaskletStep)(nil)

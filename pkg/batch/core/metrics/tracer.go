package metrics

import (
	"context"

	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
)

// Tracer is an interface for opening spans around jobs, steps and named operations.
// Every Start method returns a derived context and a func that ends the span; the func
// must always be called, typically with defer.
type Tracer interface {
	// StartJobSpan opens the root span of a job execution.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())

	// StartStepSpan opens a span for a step execution, nested in the job span of ctx.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())

	// StartSpan opens a span for a named operation.
	//
	// ctx: The parent context.
	// name: The span name, e.g. "fetch" or "compute".
	// attributes: Span attributes. Values of unsupported types are rendered with fmt.
	// Returns: The context carrying the span and the func that ends it.
	StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func())

	// RecordError marks the span of ctx as failed with err, tagged with module.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent adds a named event to the span of ctx.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}

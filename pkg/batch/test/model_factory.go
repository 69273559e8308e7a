package test

import (
	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
)

// NewTestJobExecution creates a job execution with the given parameters.
func NewTestJobExecution(jobName string, params map[string]string) *model.JobExecution {
	if params == nil {
		params = map[string]string{}
	}
	return model.NewJobExecution(jobName, params)
}

// NewTestStepExecution creates a step belonging to a fresh job execution.
func NewTestStepExecution(jobName, stepName string) *model.StepExecution {
	return NewTestJobExecution(jobName, nil).NewStepExecution(stepName)
}

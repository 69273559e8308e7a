package tasklet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	"github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	"github.com/tigerroll/greentaxi/pkg/batch/engine/step/tasklet"
	testutil "github.com/tigerroll/greentaxi/pkg/batch/test"
)

type MockTasklet struct {
	mock.Mock
}

func (m *MockTasklet) Execute(ctx context.Context, se *model.StepExecution) error {
	return m.Called(ctx, se).Error(0)
}

func (m *MockTasklet) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type statusListener struct {
	before, after model.BatchStatus
}

func (l *statusListener) BeforeStep(_ context.Context, se *model.StepExecution) { l.before = se.Status }
func (l *statusListener) AfterStep(_ context.Context, se *model.StepExecution)  { l.after = se.Status }

func TestTaskletStep_Success(t *testing.T) {
	tl := new(MockTasklet)
	tl.On("Execute", mock.Anything, mock.Anything).Return(nil)
	tl.On("Close", mock.Anything).Return(nil)
	listener := &statusListener{}

	step := tasklet.NewTaskletStep("createTableStep", tl, []port.StepExecutionListener{listener}, nil, nil)
	se := testutil.NewTestStepExecution("load", step.StepName())

	require.NoError(t, step.Execute(context.Background(), se))
	assert.Equal(t, "createTableStep", step.StepName())
	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, model.BatchStatusStarted, listener.before)
	assert.Equal(t, model.BatchStatusCompleted, listener.after)
	tl.AssertExpectations(t)
}

func TestTaskletStep_ExecuteFailureStillCloses(t *testing.T) {
	cause := errors.New("table locked")
	tl := new(MockTasklet)
	tl.On("Execute", mock.Anything, mock.Anything).Return(cause)
	tl.On("Close", mock.Anything).Return(errors.New("close failed"))

	step := tasklet.NewTaskletStep("createTableStep", tl, nil, nil, nil)
	se := testutil.NewTestStepExecution("load", step.StepName())

	err := step.Execute(context.Background(), se)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.Len(t, se.Failures, 1)
	tl.AssertCalled(t, "Close", mock.Anything)
}

func TestTaskletStep_CloseFailureFailsStep(t *testing.T) {
	closeErr := errors.New("close failed")
	tl := new(MockTasklet)
	tl.On("Execute", mock.Anything, mock.Anything).Return(nil)
	tl.On("Close", mock.Anything).Return(closeErr)

	step := tasklet.NewTaskletStep("createTableStep", tl, nil, nil, nil)
	se := testutil.NewTestStepExecution("load", step.StepName())

	err := step.Execute(context.Background(), se)
	assert.ErrorIs(t, err, closeErr)
	assert.Equal(t, model.BatchStatusFailed, se.Status)
}

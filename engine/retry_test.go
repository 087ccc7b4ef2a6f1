package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence/inmem"
	"github.com/Neelbiehler/qryvanta-sub003/records"
	"github.com/stretchr/testify/require"
)

func testDefinition(maxAttempts int) model.WorkflowDefinition {
	return model.WorkflowDefinition{
		Tenant:      "acme",
		LogicalName: "onboarding",
		DisplayName: "Onboarding",
		TriggerType: model.TRIGGER_TYPE_MANUAL,
		MaxAttempts: maxAttempts,
		IsEnabled:   true,
		Steps: []model.Step{
			{Type: model.STEP_TYPE_LOG_MESSAGE, Message: "start"},
			{Type: model.STEP_TYPE_CREATE_RECORD, EntityLogicalName: "task", Data: map[string]any{"title": "x"}},
		},
	}
}

func newController(creator records.Creator, ledger *inmem.InMemRunLedger) *RetryController {
	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	eng := NewExecutionEngine(NewActionExecutor(creator))
	return NewRetryController(eng, ledger, 5*time.Second, clock)
}

func runOnce(t *testing.T, creator records.Creator, maxAttempts int) (*model.ExecutionRun, []model.ExecutionAttempt) {
	t.Helper()
	ledger := inmem.NewInMemRunLedger()
	def := testDefinition(maxAttempts)
	run := newTestRun(map[string]any{})
	require.NoError(t, ledger.CreateRun(context.Background(), *run))
	require.NoError(t, newController(creator, ledger).Run(context.Background(), def, run))

	stored, err := ledger.GetRun(context.Background(), run.Id)
	require.NoError(t, err)
	attempts, err := ledger.GetAttempts(context.Background(), run.Id)
	require.NoError(t, err)
	return stored, attempts
}

func TestRetryController(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"succeeds on first attempt":         testFirstAttemptSuccess,
		"succeeds after transient failures": testEventualSuccess,
		"dead letters after exhaustion":     testDeadLetter,
	} {
		t.Run(scenario, fn)
	}
}

func testFirstAttemptSuccess(t *testing.T) {
	run, attempts := runOnce(t, &scriptedCreator{}, 3)

	require.Equal(t, model.RUN_STATUS_SUCCEEDED, run.Status)
	require.Equal(t, 1, run.Attempts)
	require.NotNil(t, run.FinishedAt)
	require.Empty(t, run.DeadLetterReason)
	require.Len(t, attempts, 1)
	require.Equal(t, model.ATTEMPT_STATUS_SUCCEEDED, attempts[0].Status)
	require.Equal(t, 1, attempts[0].AttemptNumber)
}

func testEventualSuccess(t *testing.T) {
	creator := &scriptedCreator{
		failuresLeft: 2,
		failWith:     records.CreateError{Code: records.ERROR_CODE_TRANSIENT, Message: "downstream unavailable"},
	}
	run, attempts := runOnce(t, creator, 3)

	require.Equal(t, model.RUN_STATUS_SUCCEEDED, run.Status)
	require.Equal(t, 3, run.Attempts)
	require.Len(t, attempts, 3)
	require.Equal(t, model.ATTEMPT_STATUS_FAILED, attempts[0].Status)
	require.Equal(t, model.ATTEMPT_STATUS_FAILED, attempts[1].Status)
	require.Equal(t, model.ATTEMPT_STATUS_SUCCEEDED, attempts[2].Status)
	for i, attempt := range attempts {
		require.Equal(t, i+1, attempt.AttemptNumber)
	}
}

func testDeadLetter(t *testing.T) {
	creator := &scriptedCreator{
		failuresLeft: 3,
		failWith:     records.CreateError{Code: records.ERROR_CODE_TRANSIENT, Message: "downstream unavailable"},
	}
	run, attempts := runOnce(t, creator, 3)

	require.Equal(t, model.RUN_STATUS_DEAD_LETTERED, run.Status)
	require.Equal(t, 3, run.Attempts)
	require.NotNil(t, run.FinishedAt)
	require.Len(t, attempts, 3)
	for i, attempt := range attempts {
		require.Equal(t, i+1, attempt.AttemptNumber)
		require.Equal(t, model.ATTEMPT_STATUS_FAILED, attempt.Status)
		require.NotEmpty(t, attempt.ErrorMessage)
	}
	// the dead letter reason is the last attempt's error, naming the step
	require.Equal(t, attempts[2].ErrorMessage, run.DeadLetterReason)
	require.Contains(t, run.DeadLetterReason, "step 1")
	require.Contains(t, run.DeadLetterReason, "downstream unavailable")
}

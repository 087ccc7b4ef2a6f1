package engine

import (
	"context"
	"fmt"

	"github.com/Neelbiehler/qryvanta-sub003/analytics"
	"github.com/Neelbiehler/qryvanta-sub003/model"
)

// ExecutionEngine walks a definition's step graph depth-first, left to
// right, dispatching linear steps to the action executor and following
// exactly one branch of each condition. The first failing step fails the
// whole attempt; side effects already executed are not undone.
type ExecutionEngine struct {
	executor *ActionExecutor
}

func NewExecutionEngine(executor *ActionExecutor) *ExecutionEngine {
	return &ExecutionEngine{executor: executor}
}

// ExecuteGraph runs one attempt over the definition's root sequence. An
// empty root sequence succeeds immediately.
func (e *ExecutionEngine) ExecuteGraph(ctx context.Context, def *model.WorkflowDefinition, run *model.ExecutionRun, attempt int) error {
	return e.executeSequence(ctx, def.Steps, "", run, attempt)
}

func (e *ExecutionEngine) executeSequence(ctx context.Context, steps []model.Step, pathPrefix string, run *model.ExecutionRun, attempt int) error {
	for i, step := range steps {
		stepPath := fmt.Sprintf("%s%d", pathPrefix, i)
		if err := ctx.Err(); err != nil {
			return StepError{StepPath: stepPath, Message: fmt.Sprintf("attempt deadline exceeded: %v", err)}
		}
		if err := e.executeStep(ctx, step, stepPath, run, attempt); err != nil {
			analytics.RecordStepFailure(run.Tenant, run.WorkflowLogicalName, run.Id, stepPath, attempt, err.Error())
			return err
		}
		analytics.RecordStepSuccess(run.Tenant, run.WorkflowLogicalName, run.Id, stepPath, attempt)
	}
	return nil
}

func (e *ExecutionEngine) executeStep(ctx context.Context, step model.Step, stepPath string, run *model.ExecutionRun, attempt int) error {
	if step.Type == model.STEP_TYPE_CONDITION {
		if EvaluateCondition(step, run.TriggerPayload) {
			return e.executeSequence(ctx, step.Then, stepPath+".then.", run, attempt)
		}
		return e.executeSequence(ctx, step.Else, stepPath+".else.", run, attempt)
	}
	return e.executor.ExecuteStep(ctx, run, step, stepPath, attempt)
}

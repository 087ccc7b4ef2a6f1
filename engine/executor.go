package engine

import (
	"context"
	"fmt"

	"github.com/Neelbiehler/qryvanta-sub003/analytics"
	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/records"
	"github.com/Neelbiehler/qryvanta-sub003/util"
	"go.uber.org/zap"
)

// StepError carries the failing step's path and cause; the retry
// controller surfaces its message as the attempt's error_message.
type StepError struct {
	StepPath string
	Message  string
}

func (e StepError) Error() string {
	return fmt.Sprintf("step %s: %s", e.StepPath, e.Message)
}

type ActionExecutor struct {
	recordCreator records.Creator
}

func NewActionExecutor(recordCreator records.Creator) *ActionExecutor {
	return &ActionExecutor{recordCreator: recordCreator}
}

// ExecuteStep runs one linear step. Condition steps have no direct side
// effect and are handled by the execution engine's traversal.
func (ex *ActionExecutor) ExecuteStep(ctx context.Context, run *model.ExecutionRun, step model.Step, stepPath string, attempt int) error {
	switch step.Type {
	case model.STEP_TYPE_LOG_MESSAGE:
		logger.Info("workflow log_message",
			zap.String("tenant", run.Tenant),
			zap.String("workflow", run.WorkflowLogicalName),
			zap.String("runId", run.Id),
			zap.String("message", step.Message))
		analytics.RecordLogMessage(run.Tenant, run.WorkflowLogicalName, run.Id, stepPath, step.Message)
		return nil
	case model.STEP_TYPE_CREATE_RECORD:
		data := util.ResolveParams(run.TriggerPayload, step.Data)
		idempotencyKey := fmt.Sprintf("%s/%s/%d", run.Id, stepPath, attempt)
		recordId, err := ex.recordCreator.Create(ctx, run.Tenant, step.EntityLogicalName, data, idempotencyKey)
		if err != nil {
			return StepError{StepPath: stepPath, Message: err.Error()}
		}
		logger.Debug("runtime record created",
			zap.String("runId", run.Id),
			zap.String("entity", step.EntityLogicalName),
			zap.String("recordId", recordId))
		return nil
	default:
		return StepError{StepPath: stepPath, Message: fmt.Sprintf("unknown step type %s", step.Type)}
	}
}

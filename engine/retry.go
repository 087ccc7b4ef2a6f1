package engine

import (
	"context"
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

type Clock func() time.Time

// RetryController drives a run to a terminal status: it executes the step
// graph up to the definition's MaxAttempts, appending one ledger attempt
// per try. Attempt-to-attempt retries are immediate. A run succeeds on
// the first successful attempt and dead-letters with the last attempt's
// error once attempts are exhausted.
type RetryController struct {
	engine         *ExecutionEngine
	ledger         persistence.RunLedger
	attemptTimeout time.Duration
	clock          Clock
}

func NewRetryController(engine *ExecutionEngine, ledger persistence.RunLedger, attemptTimeout time.Duration, clock Clock) *RetryController {
	if clock == nil {
		clock = time.Now
	}
	return &RetryController{
		engine:         engine,
		ledger:         ledger,
		attemptTimeout: attemptTimeout,
		clock:          clock,
	}
}

// Run executes all attempts for one run. The definition is the snapshot
// taken at trigger-match time; concurrent edits never affect it.
func (rc *RetryController) Run(ctx context.Context, def model.WorkflowDefinition, run *model.ExecutionRun) error {
	for attemptNumber := 1; attemptNumber <= def.MaxAttempts; attemptNumber++ {
		attemptCtx, cancel := context.WithTimeout(ctx, rc.attemptTimeout)
		execErr := rc.engine.ExecuteGraph(attemptCtx, &def, run, attemptNumber)
		cancel()

		now := rc.clock()
		run.Attempts = attemptNumber
		attempt := model.ExecutionAttempt{
			RunId:         run.Id,
			AttemptNumber: attemptNumber,
			ExecutedAt:    now,
		}
		if execErr == nil {
			attempt.Status = model.ATTEMPT_STATUS_SUCCEEDED
			run.Status = model.RUN_STATUS_SUCCEEDED
			run.FinishedAt = &now
		} else {
			attempt.Status = model.ATTEMPT_STATUS_FAILED
			attempt.ErrorMessage = execErr.Error()
			if attemptNumber == def.MaxAttempts {
				run.Status = model.RUN_STATUS_DEAD_LETTERED
				run.DeadLetterReason = execErr.Error()
				run.FinishedAt = &now
			}
		}
		if err := rc.recordAttempt(ctx, *run, attempt); err != nil {
			return err
		}
		if execErr == nil {
			logger.Info("run succeeded",
				zap.String("runId", run.Id),
				zap.String("workflow", run.WorkflowLogicalName),
				zap.Int("attempts", attemptNumber))
			return nil
		}
		logger.Warn("attempt failed",
			zap.String("runId", run.Id),
			zap.String("workflow", run.WorkflowLogicalName),
			zap.Int("attempt", attemptNumber),
			zap.Int("maxAttempts", def.MaxAttempts),
			zap.Error(execErr))
	}
	logger.Error("run dead-lettered",
		zap.String("runId", run.Id),
		zap.String("workflow", run.WorkflowLogicalName),
		zap.String("reason", run.DeadLetterReason))
	return nil
}

// recordAttempt must not silently drop a ledger write; transient storage
// failures are retried with bounded fibonacci backoff.
func (rc *RetryController) recordAttempt(ctx context.Context, run model.ExecutionRun, attempt model.ExecutionAttempt) error {
	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := rc.ledger.RecordAttempt(ctx, run, attempt); err != nil {
			if _, ok := err.(persistence.StorageLayerError); ok {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		logger.Error("ledger write failed after retries",
			zap.String("runId", run.Id),
			zap.Int("attempt", attempt.AttemptNumber),
			zap.Error(err))
	}
	return err
}

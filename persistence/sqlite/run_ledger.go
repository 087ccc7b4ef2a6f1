package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
)

var _ persistence.RunLedger = new(sqliteRunLedger)

type sqliteRunLedger struct {
	db *sql.DB
}

func NewSqliteRunLedger(db *sql.DB) *sqliteRunLedger {
	return &sqliteRunLedger{db: db}
}

func (rl *sqliteRunLedger) CreateRun(ctx context.Context, run model.ExecutionRun) error {
	payload, err := json.Marshal(run.TriggerPayload)
	if err != nil {
		return err
	}
	_, err = rl.db.ExecContext(ctx, `
		INSERT INTO workflow_execution_runs
			(id, tenant_id, workflow_logical_name, trigger_type,
			 trigger_entity_logical_name, trigger_payload, status, attempts,
			 dead_letter_reason, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		run.Id, run.Tenant, run.WorkflowLogicalName, string(run.TriggerType),
		run.TriggerEntityLogicalName, string(payload), string(run.Status),
		run.Attempts, nullString(run.DeadLetterReason), run.StartedAt, run.FinishedAt)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rl *sqliteRunLedger) GetRun(ctx context.Context, runId string) (*model.ExecutionRun, error) {
	row := rl.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, workflow_logical_name, trigger_type,
		       trigger_entity_logical_name, trigger_payload, status, attempts,
		       dead_letter_reason, started_at, finished_at
		FROM workflow_execution_runs WHERE id = ?`, runId)
	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, persistence.NotFoundError{Kind: "run", Key: runId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return run, nil
}

func (rl *sqliteRunLedger) ListRuns(ctx context.Context, tenant string, workflowLogicalName string, limit int, offset int) ([]model.ExecutionRun, error) {
	query := `
		SELECT id, tenant_id, workflow_logical_name, trigger_type,
		       trigger_entity_logical_name, trigger_payload, status, attempts,
		       dead_letter_reason, started_at, finished_at
		FROM workflow_execution_runs WHERE tenant_id = ?`
	args := []any{tenant}
	if workflowLogicalName != "" {
		query += ` AND workflow_logical_name = ?`
		args = append(args, workflowLogicalName)
	}
	query += ` ORDER BY started_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := rl.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defer rows.Close()
	var runs []model.ExecutionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func (rl *sqliteRunLedger) GetAttempts(ctx context.Context, runId string) ([]model.ExecutionAttempt, error) {
	rows, err := rl.db.QueryContext(ctx, `
		SELECT run_id, attempt_number, status, error_message, executed_at
		FROM workflow_execution_attempts WHERE run_id = ? ORDER BY attempt_number`,
		runId)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defer rows.Close()
	var attempts []model.ExecutionAttempt
	for rows.Next() {
		var attempt model.ExecutionAttempt
		var errMsg sql.NullString
		if err := rows.Scan(&attempt.RunId, &attempt.AttemptNumber, &attempt.Status,
			&errMsg, &attempt.ExecutedAt); err != nil {
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		attempt.ErrorMessage = errMsg.String
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// RecordAttempt inserts the attempt row and applies the run transition in
// one transaction so an attempt is never recorded without its run update.
func (rl *sqliteRunLedger) RecordAttempt(ctx context.Context, run model.ExecutionRun, attempt model.ExecutionAttempt) error {
	tx, err := rl.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow_execution_attempts
			(run_id, attempt_number, status, error_message, executed_at)
		VALUES (?,?,?,?,?)`,
		attempt.RunId, attempt.AttemptNumber, string(attempt.Status),
		nullString(attempt.ErrorMessage), attempt.ExecutedAt)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE workflow_execution_runs
		SET status = ?, attempts = ?, dead_letter_reason = ?, finished_at = ?
		WHERE id = ?`,
		string(run.Status), run.Attempts, nullString(run.DeadLetterReason),
		run.FinishedAt, run.Id)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if err := tx.Commit(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func scanRun(row rowScanner) (*model.ExecutionRun, error) {
	var run model.ExecutionRun
	var triggerEntity, deadLetterReason sql.NullString
	var payload string
	var finishedAt sql.NullTime
	err := row.Scan(&run.Id, &run.Tenant, &run.WorkflowLogicalName, &run.TriggerType,
		&triggerEntity, &payload, &run.Status, &run.Attempts, &deadLetterReason,
		&run.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	run.TriggerEntityLogicalName = triggerEntity.String
	run.DeadLetterReason = deadLetterReason.String
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(payload), &run.TriggerPayload); err != nil {
		return nil, err
	}
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package model

import "time"

type RunStatus string

const RUN_STATUS_RUNNING RunStatus = "running"
const RUN_STATUS_SUCCEEDED RunStatus = "succeeded"
const RUN_STATUS_DEAD_LETTERED RunStatus = "dead_lettered"

type AttemptStatus string

const ATTEMPT_STATUS_SUCCEEDED AttemptStatus = "succeeded"
const ATTEMPT_STATUS_FAILED AttemptStatus = "failed"

// ExecutionRun is one row per triggered invocation. Status is terminal
// once it leaves running; FinishedAt is set iff the status is terminal.
type ExecutionRun struct {
	Id                       string         `json:"id"`
	Tenant                   string         `json:"tenant"`
	WorkflowLogicalName      string         `json:"workflow_logical_name"`
	TriggerType              TriggerType    `json:"trigger_type"`
	TriggerEntityLogicalName string         `json:"trigger_entity_logical_name,omitempty"`
	TriggerPayload           map[string]any `json:"trigger_payload"`
	Status                   RunStatus      `json:"status"`
	Attempts                 int            `json:"attempts"`
	DeadLetterReason         string         `json:"dead_letter_reason,omitempty"`
	StartedAt                time.Time      `json:"started_at"`
	FinishedAt               *time.Time     `json:"finished_at,omitempty"`
}

// ExecutionAttempt is one row per try of a run's step graph, keyed by
// (run id, attempt number). Attempt numbers start at 1 with no gaps.
type ExecutionAttempt struct {
	RunId         string        `json:"run_id"`
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	ExecutedAt    time.Time     `json:"executed_at"`
}

package model

import "time"

type TriggerType string

const TRIGGER_TYPE_MANUAL TriggerType = "manual"
const TRIGGER_TYPE_SCHEDULE_TICK TriggerType = "schedule_tick"
const TRIGGER_TYPE_RECORD_CREATED TriggerType = "runtime_record_created"

func ValidTriggerType(t TriggerType) bool {
	switch t {
	case TRIGGER_TYPE_MANUAL, TRIGGER_TYPE_SCHEDULE_TICK, TRIGGER_TYPE_RECORD_CREATED:
		return true
	}
	return false
}

type StepType string

const STEP_TYPE_LOG_MESSAGE StepType = "log_message"
const STEP_TYPE_CREATE_RECORD StepType = "create_runtime_record"
const STEP_TYPE_CONDITION StepType = "condition"

type Operator string

const OP_EQ Operator = "eq"
const OP_NEQ Operator = "neq"
const OP_GT Operator = "gt"
const OP_GTE Operator = "gte"
const OP_LT Operator = "lt"
const OP_LTE Operator = "lte"
const OP_CONTAINS Operator = "contains"
const OP_EXISTS Operator = "exists"

func ValidOperator(op Operator) bool {
	switch op {
	case OP_EQ, OP_NEQ, OP_GT, OP_GTE, OP_LT, OP_LTE, OP_CONTAINS, OP_EXISTS:
		return true
	}
	return false
}

// Step is a tagged variant. Type selects which fields are meaningful:
// log_message uses Message, create_runtime_record uses EntityLogicalName
// and Data, condition uses FieldPath/Operator/ComparisonValue and the
// Then/Else child sequences. Built top-down from JSON, a step graph is a
// finite tree with no back references.
type Step struct {
	Type              StepType       `json:"type"`
	Message           string         `json:"message,omitempty"`
	EntityLogicalName string         `json:"entity_logical_name,omitempty"`
	Data              map[string]any `json:"data,omitempty"`
	FieldPath         string         `json:"field_path,omitempty"`
	Operator          Operator       `json:"operator,omitempty"`
	ComparisonValue   any            `json:"comparison_value,omitempty"`
	Then              []Step         `json:"then,omitempty"`
	Else              []Step         `json:"else,omitempty"`
}

const MIN_ATTEMPTS int = 1
const MAX_ATTEMPTS int = 10

type WorkflowDefinition struct {
	Tenant                   string      `json:"tenant"`
	LogicalName              string      `json:"logical_name"`
	DisplayName              string      `json:"display_name"`
	Description              string      `json:"description,omitempty"`
	TriggerType              TriggerType `json:"trigger_type"`
	TriggerEntityLogicalName string      `json:"trigger_entity_logical_name,omitempty"`
	Steps                    []Step      `json:"steps"`
	MaxAttempts              int         `json:"max_attempts"`
	IsEnabled                bool        `json:"is_enabled"`
	CreatedAt                time.Time   `json:"created_at,omitempty"`
	UpdatedAt                time.Time   `json:"updated_at,omitempty"`
}

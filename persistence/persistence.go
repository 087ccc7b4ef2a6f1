package persistence

import (
	"context"
	"fmt"

	"github.com/Neelbiehler/qryvanta-sub003/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type NotFoundError struct {
	Kind string
	Key  string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

func IsNotFound(err error) bool {
	_, ok := err.(NotFoundError)
	return ok
}

// DefinitionStorage stores workflow definitions keyed by (tenant, logical name).
type DefinitionStorage interface {
	Save(def model.WorkflowDefinition) error
	Get(tenant string, logicalName string) (*model.WorkflowDefinition, error)
	List(tenant string) ([]model.WorkflowDefinition, error)
	Delete(tenant string, logicalName string) error
}

// RunLedger is the durable store for execution runs and their attempt
// rows. Implementations must serialize writes per run: RecordAttempt
// appends the attempt row and applies the run's attempts/status/finished_at
// transition as one atomic unit.
type RunLedger interface {
	CreateRun(ctx context.Context, run model.ExecutionRun) error
	GetRun(ctx context.Context, runId string) (*model.ExecutionRun, error)
	ListRuns(ctx context.Context, tenant string, workflowLogicalName string, limit int, offset int) ([]model.ExecutionRun, error)
	GetAttempts(ctx context.Context, runId string) ([]model.ExecutionAttempt, error)
	RecordAttempt(ctx context.Context, run model.ExecutionRun, attempt model.ExecutionAttempt) error
}

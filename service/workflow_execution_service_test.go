package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/engine"
	"github.com/Neelbiehler/qryvanta-sub003/metadata"
	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence/inmem"
	"github.com/Neelbiehler/qryvanta-sub003/trigger"
	"github.com/stretchr/testify/require"
)

// gatedCreator holds every create call until released.
type gatedCreator struct {
	release chan struct{}
}

func (c *gatedCreator) Create(ctx context.Context, tenant string, entityLogicalName string, data map[string]any, idempotencyKey string) (string, error) {
	select {
	case <-c.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "rec-1", nil
}

func waitForStatus(t *testing.T, ledger *inmem.InMemRunLedger, runId string, status model.RunStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, err := ledger.GetRun(context.Background(), runId)
		require.NoError(t, err)
		if run.Status == status {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s never reached status %s", runId, status)
}

func TestRunsExecuteConcurrently(t *testing.T) {
	wg := &sync.WaitGroup{}
	storage := inmem.NewInMemDefinitionStorage()
	ledger := inmem.NewInMemRunLedger()
	creator := &gatedCreator{release: make(chan struct{})}

	metadataService := metadata.NewService(storage)
	controller := engine.NewRetryController(
		engine.NewExecutionEngine(engine.NewActionExecutor(creator)),
		ledger, 5*time.Second, nil)
	svc := NewWorkflowExecutionService(
		metadataService, trigger.NewMatcher(storage), ledger, controller,
		4, 2, 10*time.Minute, nil, wg)
	svc.Start()
	t.Cleanup(func() { svc.Stop() })

	blocked := model.WorkflowDefinition{
		Tenant: "acme", LogicalName: "blocked", DisplayName: "Blocked",
		TriggerType: model.TRIGGER_TYPE_MANUAL, MaxAttempts: 1, IsEnabled: true,
		Steps: []model.Step{
			{Type: model.STEP_TYPE_CREATE_RECORD, EntityLogicalName: "task", Data: map[string]any{"title": "x"}},
		},
	}
	quick := model.WorkflowDefinition{
		Tenant: "acme", LogicalName: "quick", DisplayName: "Quick",
		TriggerType: model.TRIGGER_TYPE_MANUAL, MaxAttempts: 1, IsEnabled: true,
		Steps: []model.Step{
			{Type: model.STEP_TYPE_LOG_MESSAGE, Message: "hello"},
		},
	}
	require.NoError(t, metadataService.Save(blocked))
	require.NoError(t, metadataService.Save(quick))

	blockedId, err := svc.StartWorkflow("acme", "blocked", nil)
	require.NoError(t, err)
	quickId, err := svc.StartWorkflow("acme", "quick", nil)
	require.NoError(t, err)

	// the quick run must finish while the blocked run is still in flight
	waitForStatus(t, ledger, quickId, model.RUN_STATUS_SUCCEEDED)
	run, err := ledger.GetRun(context.Background(), blockedId)
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_RUNNING, run.Status)

	close(creator.release)
	waitForStatus(t, ledger, blockedId, model.RUN_STATUS_SUCCEEDED)
}

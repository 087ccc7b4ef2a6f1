package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/records"
	"github.com/stretchr/testify/require"
)

// scriptedCreator fails the first failuresLeft calls, then succeeds.
type scriptedCreator struct {
	mu           sync.Mutex
	failuresLeft int
	failWith     error
	calls        int
	created      []map[string]any
}

func (c *scriptedCreator) Create(ctx context.Context, tenant string, entityLogicalName string, data map[string]any, idempotencyKey string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.failuresLeft > 0 {
		c.failuresLeft--
		return "", c.failWith
	}
	c.created = append(c.created, data)
	return "rec-1", nil
}

func newTestRun(payload map[string]any) *model.ExecutionRun {
	return &model.ExecutionRun{
		Id:                  "run-1",
		Tenant:              "acme",
		WorkflowLogicalName: "onboarding",
		TriggerType:         model.TRIGGER_TYPE_MANUAL,
		TriggerPayload:      payload,
		Status:              model.RUN_STATUS_RUNNING,
	}
}

func TestExecuteGraph(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"linear steps succeed":                   testLinearSuccess,
		"empty root succeeds":                    testEmptyRoot,
		"fails fast at first failure":            testFailFast,
		"condition takes exactly one branch":     testConditionBranches,
		"serialized graph traverses identically": testGraphRoundTrip,
	} {
		t.Run(scenario, fn)
	}
}

func testLinearSuccess(t *testing.T) {
	creator := &scriptedCreator{}
	eng := NewExecutionEngine(NewActionExecutor(creator))
	def := &model.WorkflowDefinition{
		Steps: []model.Step{
			{Type: model.STEP_TYPE_LOG_MESSAGE, Message: "start"},
			{Type: model.STEP_TYPE_CREATE_RECORD, EntityLogicalName: "task", Data: map[string]any{"title": "x"}},
		},
	}
	err := eng.ExecuteGraph(context.Background(), def, newTestRun(map[string]any{}), 1)
	require.NoError(t, err)
	require.Equal(t, 1, creator.calls)
	require.Equal(t, map[string]any{"title": "x"}, creator.created[0])
}

func testEmptyRoot(t *testing.T) {
	eng := NewExecutionEngine(NewActionExecutor(&scriptedCreator{}))
	def := &model.WorkflowDefinition{Steps: nil}
	err := eng.ExecuteGraph(context.Background(), def, newTestRun(map[string]any{}), 1)
	require.NoError(t, err)
}

func testFailFast(t *testing.T) {
	creator := &scriptedCreator{
		failuresLeft: 1,
		failWith:     records.CreateError{Code: records.ERROR_CODE_TRANSIENT, Message: "connection reset"},
	}
	eng := NewExecutionEngine(NewActionExecutor(creator))
	def := &model.WorkflowDefinition{
		Steps: []model.Step{
			{Type: model.STEP_TYPE_CREATE_RECORD, EntityLogicalName: "task", Data: map[string]any{"title": "a"}},
			{Type: model.STEP_TYPE_CREATE_RECORD, EntityLogicalName: "task", Data: map[string]any{"title": "b"}},
		},
	}
	err := eng.ExecuteGraph(context.Background(), def, newTestRun(map[string]any{}), 1)
	require.Error(t, err)
	stepErr, ok := err.(StepError)
	require.True(t, ok)
	require.Equal(t, "0", stepErr.StepPath)
	require.Contains(t, stepErr.Message, "connection reset")
	// the second step never ran
	require.Equal(t, 1, creator.calls)
}

func conditionDefinition() *model.WorkflowDefinition {
	return &model.WorkflowDefinition{
		Steps: []model.Step{
			{
				Type:            model.STEP_TYPE_CONDITION,
				FieldPath:       "status",
				Operator:        model.OP_EQ,
				ComparisonValue: "open",
				Then: []model.Step{
					{Type: model.STEP_TYPE_CREATE_RECORD, EntityLogicalName: "task", Data: map[string]any{"path": "open"}},
				},
				Else: []model.Step{
					{Type: model.STEP_TYPE_CREATE_RECORD, EntityLogicalName: "task", Data: map[string]any{"path": "closed"}},
				},
			},
		},
	}
}

func testConditionBranches(t *testing.T) {
	cases := map[string]struct {
		payload map[string]any
		want    string
	}{
		"then branch on match":    {map[string]any{"status": "open"}, "open"},
		"else branch on mismatch": {map[string]any{"status": "closed"}, "closed"},
		"else branch on absent":   {map[string]any{}, "closed"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			creator := &scriptedCreator{}
			eng := NewExecutionEngine(NewActionExecutor(creator))
			err := eng.ExecuteGraph(context.Background(), conditionDefinition(), newTestRun(tc.payload), 1)
			require.NoError(t, err)
			// exactly one branch ran, never both, never zero
			require.Equal(t, 1, creator.calls)
			require.Equal(t, tc.want, creator.created[0]["path"])
		})
	}
}

func testGraphRoundTrip(t *testing.T) {
	def := conditionDefinition()
	data, err := json.Marshal(def)
	require.NoError(t, err)
	var decoded model.WorkflowDefinition
	require.NoError(t, json.Unmarshal(data, &decoded))

	payload := map[string]any{"status": "open"}
	original := &scriptedCreator{}
	restored := &scriptedCreator{}
	require.NoError(t, NewExecutionEngine(NewActionExecutor(original)).ExecuteGraph(context.Background(), def, newTestRun(payload), 1))
	require.NoError(t, NewExecutionEngine(NewActionExecutor(restored)).ExecuteGraph(context.Background(), &decoded, newTestRun(payload), 1))
	require.Equal(t, original.created, restored.created)
}

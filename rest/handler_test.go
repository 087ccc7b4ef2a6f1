package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/engine"
	"github.com/Neelbiehler/qryvanta-sub003/metadata"
	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence/inmem"
	"github.com/Neelbiehler/qryvanta-sub003/records"
	"github.com/Neelbiehler/qryvanta-sub003/service"
	"github.com/Neelbiehler/qryvanta-sub003/trigger"
	"github.com/stretchr/testify/require"
)

type testStack struct {
	server  *httptest.Server
	creator *records.InMemCreator
	token   string
}

func newTestStack(t *testing.T, apiToken string) *testStack {
	t.Helper()
	wg := &sync.WaitGroup{}
	storage := inmem.NewInMemDefinitionStorage()
	ledger := inmem.NewInMemRunLedger()
	creator := records.NewInMemCreator()

	metadataService := metadata.NewService(storage)
	executor := engine.NewActionExecutor(creator)
	execEngine := engine.NewExecutionEngine(executor)
	controller := engine.NewRetryController(execEngine, ledger, 5*time.Second, nil)
	executionService := service.NewWorkflowExecutionService(
		metadataService, trigger.NewMatcher(storage), ledger, controller,
		4, 2, 10*time.Minute, nil, wg)
	executionService.Start()
	t.Cleanup(func() { executionService.Stop() })

	eventListener := trigger.NewRecordEventListener(1*time.Minute, executionService)
	srv, err := NewServer(0, metadataService, executionService, eventListener, ledger, apiToken)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return &testStack{server: ts, creator: creator, token: apiToken}
}

func (ts *testStack) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("X-Tenant-ID", "acme")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func manualDefinition(name string) model.WorkflowDefinition {
	return model.WorkflowDefinition{
		LogicalName: name,
		DisplayName: "Test " + name,
		TriggerType: model.TRIGGER_TYPE_MANUAL,
		MaxAttempts: 2,
		IsEnabled:   true,
		Steps: []model.Step{
			{Type: model.STEP_TYPE_LOG_MESSAGE, Message: "hello {$.status}"},
			{
				Type:              model.STEP_TYPE_CREATE_RECORD,
				EntityLogicalName: "task",
				Data:              map[string]any{"subject": "follow up on {$.status}"},
			},
		},
	}
}

func waitForTerminalRun(t *testing.T, ts *testStack, runId string) model.ExecutionRun {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp := ts.do(t, http.MethodGet, "/workflows/runs/"+runId, nil)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			time.Sleep(10 * time.Millisecond)
			continue
		}
		run := decodeBody[model.ExecutionRun](t, resp)
		if run.Status != model.RUN_STATUS_RUNNING {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s did not reach a terminal status", runId)
	return model.ExecutionRun{}
}

func TestWorkflowLifecycle(t *testing.T) {
	ts := newTestStack(t, "")

	resp := ts.do(t, http.MethodPost, "/workflows", manualDefinition("onboarding"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/workflows/onboarding", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	def := decodeBody[model.WorkflowDefinition](t, resp)
	require.Equal(t, "acme", def.Tenant)
	require.Len(t, def.Steps, 2)

	resp = ts.do(t, http.MethodPost, "/workflows/onboarding/execute", map[string]any{"status": "open"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	accepted := decodeBody[map[string]string](t, resp)
	runId := accepted["run_id"]
	require.NotEmpty(t, runId)

	run := waitForTerminalRun(t, ts, runId)
	require.Equal(t, model.RUN_STATUS_SUCCEEDED, run.Status)
	require.Equal(t, 1, run.Attempts)
	require.NotNil(t, run.FinishedAt)

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/workflows/runs/%s/attempts", runId), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	attempts := decodeBody[[]model.ExecutionAttempt](t, resp)
	require.Len(t, attempts, 1)
	require.Equal(t, model.ATTEMPT_STATUS_SUCCEEDED, attempts[0].Status)

	created := ts.creator.Records("acme", "task")
	require.Len(t, created, 1)
	require.Equal(t, "follow up on open", created[0]["subject"])

	resp = ts.do(t, http.MethodGet, "/workflows/runs?workflow_logical_name=onboarding", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	runs := decodeBody[[]model.ExecutionRun](t, resp)
	require.Len(t, runs, 1)
	require.Equal(t, runId, runs[0].Id)

	// a zero limit falls back to the default page size
	resp = ts.do(t, http.MethodGet, "/workflows/runs?limit=0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	runs = decodeBody[[]model.ExecutionRun](t, resp)
	require.Len(t, runs, 1)

	resp = ts.do(t, http.MethodDelete, "/workflows/onboarding", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = ts.do(t, http.MethodGet, "/workflows/onboarding", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestExecuteRejections(t *testing.T) {
	ts := newTestStack(t, "")

	resp := ts.do(t, http.MethodPost, "/workflows/missing/execute", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	disabled := manualDefinition("disabled-flow")
	disabled.IsEnabled = false
	resp = ts.do(t, http.MethodPost, "/workflows", disabled)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/workflows/disabled-flow/execute", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	invalid := manualDefinition("bad-flow")
	invalid.MaxAttempts = 99
	resp = ts.do(t, http.MethodPost, "/workflows", invalid)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRecordCreatedEventEndpoint(t *testing.T) {
	ts := newTestStack(t, "")

	def := manualDefinition("on-invoice")
	def.TriggerType = model.TRIGGER_TYPE_RECORD_CREATED
	def.TriggerEntityLogicalName = "invoice"
	resp := ts.do(t, http.MethodPost, "/workflows", def)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	event := map[string]any{
		"event_id":            "evt-1",
		"entity_logical_name": "invoice",
		"record_id":           "rec-1",
		"data":                map[string]any{"status": "posted"},
	}
	resp = ts.do(t, http.MethodPost, "/events/record-created", event)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	first := decodeBody[struct {
		RunIds    []string `json:"run_ids"`
		Duplicate bool     `json:"duplicate"`
	}](t, resp)
	require.False(t, first.Duplicate)
	require.Len(t, first.RunIds, 1)

	run := waitForTerminalRun(t, ts, first.RunIds[0])
	require.Equal(t, model.RUN_STATUS_SUCCEEDED, run.Status)
	require.Equal(t, model.TRIGGER_TYPE_RECORD_CREATED, run.TriggerType)

	resp = ts.do(t, http.MethodPost, "/events/record-created", event)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	second := decodeBody[struct {
		RunIds    []string `json:"run_ids"`
		Duplicate bool     `json:"duplicate"`
	}](t, resp)
	require.True(t, second.Duplicate)
	require.Empty(t, second.RunIds)

	resp = ts.do(t, http.MethodPost, "/events/record-created", map[string]any{"event_id": "evt-2"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestReconcileConflicts(t *testing.T) {
	ts := newTestStack(t, "")

	resp := ts.do(t, http.MethodPost, "/workflows", manualDefinition("onboarding"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/workflows/onboarding/execute", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	accepted := decodeBody[map[string]string](t, resp)
	waitForTerminalRun(t, ts, accepted["run_id"])

	// terminal runs cannot be reconciled
	resp = ts.do(t, http.MethodPost, "/workflows/runs/"+accepted["run_id"]+"/reconcile", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/workflows/runs/missing/reconcile", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAuthToken(t *testing.T) {
	ts := newTestStack(t, "secret-token")

	req, err := http.NewRequest(http.MethodGet, ts.server.URL+"/workflows", nil)
	require.NoError(t, err)
	req.Header.Set("X-Tenant-ID", "acme")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/engine"
	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/metadata"
	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
	"github.com/Neelbiehler/qryvanta-sub003/trigger"
	"github.com/Neelbiehler/qryvanta-sub003/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrWorkflowDisabled = errors.New("workflow is disabled")
var ErrRunNotStale = errors.New("run is not stale")
var ErrRunNotRunning = errors.New("run is not in running state")

type runTask struct {
	def model.WorkflowDefinition
	run model.ExecutionRun
}

// WorkflowExecutionService accepts trigger events, opens a ledger run per
// matched definition and hands each run to the worker pool, where the
// retry controller drives it to a terminal status. Runs are independent
// units of work: the pool executes them concurrently, while the steps
// within one run stay sequential. The trigger source only ever observes
// "run accepted"; outcomes are visible through the run history queries.
type WorkflowExecutionService struct {
	metadataService metadata.Service
	matcher         *trigger.Matcher
	ledger          persistence.RunLedger
	controller      *engine.RetryController
	worker          *util.Worker
	clock           engine.Clock
	staleAfter      time.Duration
}

var _ trigger.Dispatcher = new(WorkflowExecutionService)

func NewWorkflowExecutionService(
	metadataService metadata.Service,
	matcher *trigger.Matcher,
	ledger persistence.RunLedger,
	controller *engine.RetryController,
	capacity int,
	concurrency int,
	staleAfter time.Duration,
	clock engine.Clock,
	wg *sync.WaitGroup,
) *WorkflowExecutionService {
	if clock == nil {
		clock = time.Now
	}
	s := &WorkflowExecutionService{
		metadataService: metadataService,
		matcher:         matcher,
		ledger:          ledger,
		controller:      controller,
		clock:           clock,
		staleAfter:      staleAfter,
	}
	s.worker = util.NewWorker("run-executor", wg, s.handleTask, capacity, concurrency)
	return s
}

func (s *WorkflowExecutionService) Start() {
	s.worker.Start()
}

func (s *WorkflowExecutionService) Stop() error {
	s.worker.Stop()
	return nil
}

// StartWorkflow handles a manual trigger for one named definition.
func (s *WorkflowExecutionService) StartWorkflow(tenant string, logicalName string, payload map[string]any) (string, error) {
	def, err := s.metadataService.Get(tenant, logicalName)
	if err != nil {
		return "", err
	}
	if !def.IsEnabled {
		return "", ErrWorkflowDisabled
	}
	event := model.TriggerEvent{
		Tenant:  tenant,
		Type:    model.TRIGGER_TYPE_MANUAL,
		Payload: payload,
	}
	return s.createAndEnqueue(*def, event)
}

// DispatchEvent matches the event against enabled definitions and starts
// a run per match.
func (s *WorkflowExecutionService) DispatchEvent(event model.TriggerEvent) ([]string, error) {
	matched, err := s.matcher.Match(event)
	if err != nil {
		return nil, err
	}
	runIds := make([]string, 0, len(matched))
	for _, def := range matched {
		runId, err := s.createAndEnqueue(def, event)
		if err != nil {
			return runIds, err
		}
		runIds = append(runIds, runId)
	}
	return runIds, nil
}

func (s *WorkflowExecutionService) createAndEnqueue(def model.WorkflowDefinition, event model.TriggerEvent) (string, error) {
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	run := model.ExecutionRun{
		Id:                       uuid.New().String(),
		Tenant:                   def.Tenant,
		WorkflowLogicalName:      def.LogicalName,
		TriggerType:              event.Type,
		TriggerEntityLogicalName: event.EntityLogicalName,
		TriggerPayload:           payload,
		Status:                   model.RUN_STATUS_RUNNING,
		StartedAt:                s.clock(),
	}
	if err := s.ledger.CreateRun(context.Background(), run); err != nil {
		return "", err
	}
	logger.Info("run accepted",
		zap.String("runId", run.Id),
		zap.String("workflow", def.LogicalName),
		zap.String("trigger", string(event.Type)))
	s.worker.Sender() <- runTask{def: def, run: run}
	return run.Id, nil
}

func (s *WorkflowExecutionService) handleTask(task util.Task) error {
	t, ok := task.(runTask)
	if !ok {
		return fmt.Errorf("unexpected task type %T", task)
	}
	return s.controller.Run(context.Background(), t.def, &t.run)
}

// Reconcile dead-letters a run left in running past the staleness
// threshold, e.g. after a process crash mid-execution. Operator driven;
// there is no automatic timeout.
func (s *WorkflowExecutionService) Reconcile(runId string) (*model.ExecutionRun, error) {
	run, err := s.ledger.GetRun(context.Background(), runId)
	if err != nil {
		return nil, err
	}
	if run.Status != model.RUN_STATUS_RUNNING {
		return nil, ErrRunNotRunning
	}
	now := s.clock()
	if now.Sub(run.StartedAt) < s.staleAfter {
		return nil, ErrRunNotStale
	}
	reason := "stale run reconciled by operator"
	run.Attempts = run.Attempts + 1
	run.Status = model.RUN_STATUS_DEAD_LETTERED
	run.DeadLetterReason = reason
	run.FinishedAt = &now
	attempt := model.ExecutionAttempt{
		RunId:         run.Id,
		AttemptNumber: run.Attempts,
		Status:        model.ATTEMPT_STATUS_FAILED,
		ErrorMessage:  reason,
		ExecutedAt:    now,
	}
	if err := s.ledger.RecordAttempt(context.Background(), *run, attempt); err != nil {
		return nil, err
	}
	logger.Info("stale run reconciled", zap.String("runId", run.Id))
	return run, nil
}

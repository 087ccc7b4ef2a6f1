package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
)

var _ persistence.DefinitionStorage = new(InMemDefinitionStorage)

type InMemDefinitionStorage struct {
	mu   sync.RWMutex
	defs map[string]map[string]model.WorkflowDefinition
}

func NewInMemDefinitionStorage() *InMemDefinitionStorage {
	return &InMemDefinitionStorage{
		defs: make(map[string]map[string]model.WorkflowDefinition),
	}
}

func (s *InMemDefinitionStorage) Save(def model.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defs[def.Tenant] == nil {
		s.defs[def.Tenant] = make(map[string]model.WorkflowDefinition)
	}
	s.defs[def.Tenant][def.LogicalName] = def
	return nil
}

func (s *InMemDefinitionStorage) Get(tenant string, logicalName string) (*model.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[tenant][logicalName]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "workflow definition", Key: logicalName}
	}
	return &def, nil
}

func (s *InMemDefinitionStorage) List(tenant string) ([]model.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs := make([]model.WorkflowDefinition, 0, len(s.defs[tenant]))
	for _, def := range s.defs[tenant] {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].LogicalName < defs[j].LogicalName })
	return defs, nil
}

func (s *InMemDefinitionStorage) Delete(tenant string, logicalName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.defs[tenant], logicalName)
	return nil
}

var _ persistence.RunLedger = new(InMemRunLedger)

type InMemRunLedger struct {
	mu       sync.Mutex
	runs     map[string]model.ExecutionRun
	attempts map[string][]model.ExecutionAttempt
}

func NewInMemRunLedger() *InMemRunLedger {
	return &InMemRunLedger{
		runs:     make(map[string]model.ExecutionRun),
		attempts: make(map[string][]model.ExecutionAttempt),
	}
}

func (l *InMemRunLedger) CreateRun(ctx context.Context, run model.ExecutionRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[run.Id] = run
	return nil
}

func (l *InMemRunLedger) GetRun(ctx context.Context, runId string) (*model.ExecutionRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	run, ok := l.runs[runId]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "run", Key: runId}
	}
	return &run, nil
}

func (l *InMemRunLedger) ListRuns(ctx context.Context, tenant string, workflowLogicalName string, limit int, offset int) ([]model.ExecutionRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var runs []model.ExecutionRun
	for _, run := range l.runs {
		if run.Tenant != tenant {
			continue
		}
		if workflowLogicalName != "" && run.WorkflowLogicalName != workflowLogicalName {
			continue
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if offset >= len(runs) {
		return nil, nil
	}
	runs = runs[offset:]
	if limit < len(runs) {
		runs = runs[:limit]
	}
	return runs, nil
}

func (l *InMemRunLedger) GetAttempts(ctx context.Context, runId string) ([]model.ExecutionAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	attempts := make([]model.ExecutionAttempt, len(l.attempts[runId]))
	copy(attempts, l.attempts[runId])
	return attempts, nil
}

func (l *InMemRunLedger) RecordAttempt(ctx context.Context, run model.ExecutionRun, attempt model.ExecutionAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[run.Id] = append(l.attempts[run.Id], attempt)
	l.runs[run.Id] = run
	return nil
}

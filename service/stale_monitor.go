package service

import (
	"context"
	"sync"
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/engine"
	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
	"github.com/Neelbiehler/qryvanta-sub003/util"
	"go.uber.org/zap"
)

const STALE_SCAN_PAGE_SIZE int = 500

// StaleRunMonitor periodically scans the ledger for runs stuck in the
// running state past the staleness threshold, typically left behind by a
// process crash mid-execution. It only reports; dead-lettering a stale
// run stays an operator decision through the reconcile endpoint.
type StaleRunMonitor struct {
	ledger     persistence.RunLedger
	tenants    []string
	staleAfter time.Duration
	clock      engine.Clock
	tickWorker *util.TickWorker
}

func NewStaleRunMonitor(
	ledger persistence.RunLedger,
	tenants []string,
	staleAfter time.Duration,
	scanInterval int,
	stop chan struct{},
	wg *sync.WaitGroup,
	clock engine.Clock,
) *StaleRunMonitor {
	if clock == nil {
		clock = time.Now
	}
	m := &StaleRunMonitor{
		ledger:     ledger,
		tenants:    tenants,
		staleAfter: staleAfter,
		clock:      clock,
	}
	if scanInterval > 0 {
		m.tickWorker = util.NewTickWorker("stale-run-monitor", scanInterval, stop, m.Sweep, wg)
	}
	return m
}

func (m *StaleRunMonitor) Start() {
	if m.tickWorker != nil {
		m.tickWorker.Start()
	}
}

// Sweep logs every stale running run across the served tenants.
func (m *StaleRunMonitor) Sweep() {
	now := m.clock()
	stale := 0
	for _, tenant := range m.tenants {
		runs, err := m.ledger.ListRuns(context.Background(), tenant, "", STALE_SCAN_PAGE_SIZE, 0)
		if err != nil {
			logger.Error("stale run scan failed", zap.String("tenant", tenant), zap.Error(err))
			continue
		}
		for _, run := range runs {
			if run.Status != model.RUN_STATUS_RUNNING {
				continue
			}
			age := now.Sub(run.StartedAt)
			if age < m.staleAfter {
				continue
			}
			stale++
			logger.Warn("run is stale, reconcile to dead-letter it",
				zap.String("runId", run.Id),
				zap.String("workflow", run.WorkflowLogicalName),
				zap.Duration("age", age))
		}
	}
	if stale > 0 {
		logger.Info("stale run scan finished", zap.Int("staleRuns", stale))
	}
}

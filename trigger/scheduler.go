package trigger

import (
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler emits schedule_tick events on a cron spec, one per configured
// tenant. Ticks carry only a timestamp.
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	tenants    []string
	dispatcher Dispatcher
}

func NewScheduler(spec string, tenants []string, dispatcher Dispatcher) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		spec:       spec,
		tenants:    tenants,
		dispatcher: dispatcher,
	}
}

func (s *Scheduler) Start() error {
	if s.spec == "" {
		logger.Info("no schedule spec configured, scheduler disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.spec, s.tick)
	if err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("scheduler started", zap.String("spec", s.spec), zap.Strings("tenants", s.tenants))
	return nil
}

func (s *Scheduler) Stop() error {
	s.cron.Stop()
	return nil
}

func (s *Scheduler) tick() {
	now := time.Now().UTC()
	for _, tenant := range s.tenants {
		event := model.TriggerEvent{
			Tenant:  tenant,
			Type:    model.TRIGGER_TYPE_SCHEDULE_TICK,
			Payload: map[string]any{"timestamp": now.Format(time.RFC3339)},
		}
		runIds, err := s.dispatcher.DispatchEvent(event)
		if err != nil {
			logger.Error("error dispatching schedule tick", zap.String("tenant", tenant), zap.Error(err))
			continue
		}
		if len(runIds) > 0 {
			logger.Info("schedule tick dispatched", zap.String("tenant", tenant), zap.Int("runs", len(runIds)))
		}
	}
}

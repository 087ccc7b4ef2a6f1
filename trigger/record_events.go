package trigger

import (
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/model"
	c "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// RecordEventListener consumes runtime-record-created notifications.
// Delivery is at least once; event ids seen within the dedupe TTL are
// acknowledged without starting runs. A duplicate arriving after the TTL
// window starts duplicate runs, which the contract tolerates.
type RecordEventListener struct {
	dedupe     *c.Cache
	dispatcher Dispatcher
}

func NewRecordEventListener(dedupeTTL time.Duration, dispatcher Dispatcher) *RecordEventListener {
	return &RecordEventListener{
		dedupe:     c.New(dedupeTTL, 2*dedupeTTL),
		dispatcher: dispatcher,
	}
}

// OnRecordCreated returns the started run ids and whether the event was a
// duplicate.
func (l *RecordEventListener) OnRecordCreated(event model.RecordCreatedEvent) ([]string, bool, error) {
	if event.EventId != "" {
		if err := l.dedupe.Add(event.EventId, struct{}{}, c.DefaultExpiration); err != nil {
			logger.Info("duplicate record-created event ignored",
				zap.String("eventId", event.EventId),
				zap.String("entity", event.EntityLogicalName))
			return nil, true, nil
		}
	}
	triggerEvent := model.TriggerEvent{
		Tenant:            event.Tenant,
		Type:              model.TRIGGER_TYPE_RECORD_CREATED,
		EntityLogicalName: event.EntityLogicalName,
		Payload: map[string]any{
			"entity_logical_name": event.EntityLogicalName,
			"record_id":           event.RecordId,
			"data":                event.Data,
		},
	}
	runIds, err := l.dispatcher.DispatchEvent(triggerEvent)
	if err != nil {
		return nil, false, err
	}
	return runIds, false, nil
}

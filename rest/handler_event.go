package rest

import (
	"encoding/json"
	"net/http"

	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/model"
	"go.uber.org/zap"
)

// HandleRecordCreatedEvent is the intake for runtime-record-created
// notifications. Duplicate event ids within the dedupe window are
// acknowledged without starting runs.
func (s *Server) HandleRecordCreatedEvent(w http.ResponseWriter, r *http.Request) {
	var event model.RecordCreatedEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid event body")
		return
	}
	defer r.Body.Close()
	if event.EntityLogicalName == "" {
		respondWithError(w, http.StatusBadRequest, "entity_logical_name is required")
		return
	}
	if event.Tenant == "" {
		event.Tenant = tenantFromRequest(r)
	}
	runIds, duplicate, err := s.eventListener.OnRecordCreated(event)
	if err != nil {
		logger.Error("error consuming record-created event", zap.String("eventId", event.EventId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error consuming event")
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]any{
		"run_ids":   runIds,
		"duplicate": duplicate,
	})
}

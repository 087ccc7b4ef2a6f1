package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
	"github.com/Neelbiehler/qryvanta-sub003/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const DEFAULT_RUN_PAGE_SIZE int = 50
const MAX_RUN_PAGE_SIZE int = 500

// HandleExecuteWorkflow is the manual trigger. The run is accepted and
// executed asynchronously; outcomes are observed via run history.
func (s *Server) HandleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	logicalName := vars["logical_name"]
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid trigger payload")
		return
	}
	defer r.Body.Close()
	runId, err := s.executionService.StartWorkflow(tenantFromRequest(r), logicalName, payload)
	if err != nil {
		if persistence.IsNotFound(err) || errors.Is(err, service.ErrWorkflowDisabled) {
			respondWithError(w, http.StatusNotFound, "workflow does not exist or is disabled")
			return
		}
		logger.Error("error executing workflow", zap.String("name", logicalName), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error executing workflow")
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]string{"run_id": runId})
}

func (s *Server) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseIntParam(query.Get("limit"), DEFAULT_RUN_PAGE_SIZE)
	if limit > MAX_RUN_PAGE_SIZE {
		limit = MAX_RUN_PAGE_SIZE
	}
	offset := parseIntParam(query.Get("offset"), 0)
	runs, err := s.ledger.ListRuns(r.Context(), tenantFromRequest(r), query.Get("workflow_logical_name"), limit, offset)
	if err != nil {
		logger.Error("error listing runs", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error listing runs")
		return
	}
	respondWithJSON(w, http.StatusOK, runs)
}

func (s *Server) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runId := vars["run_id"]
	run, err := s.ledger.GetRun(r.Context(), runId)
	if err != nil {
		if persistence.IsNotFound(err) {
			respondWithError(w, http.StatusNotFound, "run does not exist")
			return
		}
		logger.Error("error fetching run", zap.String("runId", runId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error fetching run")
		return
	}
	respondWithJSON(w, http.StatusOK, run)
}

func (s *Server) HandleGetAttempts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runId := vars["run_id"]
	attempts, err := s.ledger.GetAttempts(r.Context(), runId)
	if err != nil {
		logger.Error("error fetching attempts", zap.String("runId", runId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error fetching attempts")
		return
	}
	respondWithJSON(w, http.StatusOK, attempts)
}

func (s *Server) HandleReconcileRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runId := vars["run_id"]
	run, err := s.executionService.Reconcile(runId)
	if err != nil {
		switch {
		case persistence.IsNotFound(err):
			respondWithError(w, http.StatusNotFound, "run does not exist")
		case errors.Is(err, service.ErrRunNotRunning), errors.Is(err, service.ErrRunNotStale):
			respondWithError(w, http.StatusConflict, err.Error())
		default:
			logger.Error("error reconciling run", zap.String("runId", runId), zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "error reconciling run")
		}
		return
	}
	respondWithJSON(w, http.StatusOK, run)
}

// parseIntParam falls back for anything non-positive so a zero limit can
// never produce a silently empty page; a zero offset and fallback agree.
func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return fallback
	}
	return val
}

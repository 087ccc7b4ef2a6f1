package rest

import (
	"encoding/json"
	"net/http"

	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var def model.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()
	def.Tenant = tenantFromRequest(r)
	if err := s.metadataService.Save(def); err != nil {
		logger.Error("error creating workflow definition", zap.String("name", def.LogicalName), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, "created")
}

func (s *Server) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	logicalName := vars["logical_name"]
	def, err := s.metadataService.Get(tenantFromRequest(r), logicalName)
	if err != nil {
		if persistence.IsNotFound(err) {
			respondWithError(w, http.StatusNotFound, "workflow does not exist")
			return
		}
		logger.Error("error fetching workflow definition", zap.String("name", logicalName), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error fetching workflow")
		return
	}
	respondWithJSON(w, http.StatusOK, def)
}

func (s *Server) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	defs, err := s.metadataService.List(tenantFromRequest(r))
	if err != nil {
		logger.Error("error listing workflow definitions", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error listing workflows")
		return
	}
	respondWithJSON(w, http.StatusOK, defs)
}

func (s *Server) HandleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	logicalName := vars["logical_name"]
	if err := s.metadataService.Delete(tenantFromRequest(r), logicalName); err != nil {
		logger.Error("error deleting workflow definition", zap.String("name", logicalName), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error deleting workflow")
		return
	}
	respondOK(w, "deleted")
}

package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/metadata"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
	"github.com/Neelbiehler/qryvanta-sub003/service"
	"github.com/Neelbiehler/qryvanta-sub003/trigger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const DEFAULT_TENANT string = "default"

type Server struct {
	http.Server
	Port             int
	metadataService  metadata.Service
	executionService *service.WorkflowExecutionService
	eventListener    *trigger.RecordEventListener
	ledger           persistence.RunLedger
	apiToken         string
}

func NewServer(httpPort int, metadataService metadata.Service, executionService *service.WorkflowExecutionService, eventListener *trigger.RecordEventListener, ledger persistence.RunLedger, apiToken string) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr: fmt.Sprintf(":%d", httpPort),
		},
		Port:             httpPort,
		metadataService:  metadataService,
		executionService: executionService,
		eventListener:    eventListener,
		ledger:           ledger,
		apiToken:         apiToken,
	}

	router := mux.NewRouter()
	router.HandleFunc("/workflows/runs", s.HandleListRuns).Methods(http.MethodGet)
	router.HandleFunc("/workflows/runs/{run_id}", s.HandleGetRun).Methods(http.MethodGet)
	router.HandleFunc("/workflows/runs/{run_id}/attempts", s.HandleGetAttempts).Methods(http.MethodGet)
	router.HandleFunc("/workflows/runs/{run_id}/reconcile", s.HandleReconcileRun).Methods(http.MethodPost)
	router.HandleFunc("/workflows/{logical_name}/execute", s.HandleExecuteWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/workflows/{logical_name}", s.HandleGetWorkflow).Methods(http.MethodGet)
	router.HandleFunc("/workflows/{logical_name}", s.HandleDeleteWorkflow).Methods(http.MethodDelete)
	router.HandleFunc("/workflows", s.HandleCreateWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/workflows", s.HandleListWorkflows).Methods(http.MethodGet)
	router.HandleFunc("/events/record-created", s.HandleRecordCreatedEvent).Methods(http.MethodPost)
	router.Use(loggingMiddleware)
	router.Use(s.authMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server")
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.Method + " " + r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

// authMiddleware enforces the static API token when one is configured.
// Real authorization lives in the external access-control layer.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+s.apiToken {
				respondWithError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func tenantFromRequest(r *http.Request) string {
	tenant := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
	if tenant == "" {
		return DEFAULT_TENANT
	}
	return tenant
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message string) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": message})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lei/runci/internal/models"
	"github.com/lei/runci/internal/service"
)

// Handlers contains HTTP handler functions
type Handlers struct {
	service *service.Service
}

// NewHandlers creates a new handlers instance
func NewHandlers(svc *service.Service) *Handlers {
	return &Handlers{service: svc}
}

// Health handles health check requests
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.service.HealthCheck(r.Context()))
}

// HandleEvent handles POST /v1/events
func (h *Handlers) HandleEvent(w http.ResponseWriter, r *http.Request) {
	log := GetLogger(r.Context())

	var req struct {
		Kind models.EventKind `json:"kind"`
		Ref  string           `json:"ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if log != nil {
			log.Warn("invalid request body", "error", err)
		}
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Kind {
	case models.EventPush, models.EventPullRequest:
	default:
		respondError(w, r, http.StatusBadRequest, "kind must be push or pull_request")
		return
	}

	run, err := h.service.HandleEvent(r.Context(), models.Event{Kind: req.Kind, Ref: req.Ref})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if run == nil {
		// No trigger rule matched: a normal outcome, not an error
		json.NewEncoder(w).Encode(map[string]interface{}{
			"dispatched": false,
		})
		return
	}

	if log != nil {
		log.Info("run dispatched", "run_id", run.RunID, "kind", req.Kind, "ref", req.Ref)
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"dispatched": true,
		"run":        run,
	})
}

// GetPipeline handles GET /v1/pipeline
func (h *Handlers) GetPipeline(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"pipeline": h.service.Pipeline(),
	})
}

// ListRuns handles GET /v1/runs
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.ListRuns(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	search := r.URL.Query().Get("search")
	status := parseStatusParam(r.URL.Query().Get("status"))
	runs = FilterRuns(runs, search, status)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runs": runs,
	})
}

// GetRun handles GET /v1/runs/{run_id}
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	run, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run": run,
	})
}

// CancelRun handles POST /v1/runs/{run_id}/cancel
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	log := GetLogger(r.Context())
	runID := chi.URLParam(r, "run_id")

	if err := h.service.CancelRun(r.Context(), runID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if log != nil {
		log.Info("run canceled", "run_id", runID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		respondError(w, r, http.StatusNotFound, "run not found")
	case errors.Is(err, service.ErrRunFinished):
		respondError(w, r, http.StatusConflict, "run already finished")
	default:
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// respondError writes a JSON error response with logging
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	log := GetLogger(r.Context())
	requestID := GetRequestID(r.Context())

	if log != nil {
		log.Error("returning error response",
			"status", status,
			"message", message,
			"request_id", requestID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"message":    message,
			"code":       status,
			"request_id": requestID,
		},
	})
}

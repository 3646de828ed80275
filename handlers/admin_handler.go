// handlers/admin_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gewnthar/samsync/logging"
	"github.com/gewnthar/samsync/services"
)

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, r *http.Request, code int, message string) {
	log := logging.FromContext(r.Context())
	if code >= http.StatusInternalServerError {
		log.Error("API error", "status", code, "message", message, "path", r.URL.Path)
	} else {
		log.Debug("API error", "status", code, "message", message, "path", r.URL.Path)
	}
	respondWithJSON(w, r, code, map[string]string{"error": message})
}

// ListCheckpoints returns the checkpoint of every scope.
// GET /api/admin/checkpoints
func (h *Handler) ListCheckpoints(w http.ResponseWriter, r *http.Request) {
	cps, err := h.store.ListCheckpoints(r.Context())
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "failed to list checkpoints")
		return
	}
	respondWithJSON(w, r, http.StatusOK, cps)
}

// ListExports returns the recorded version of every downloaded export.
// GET /api/admin/exports
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	versions, err := h.store.ListExportVersions(r.Context())
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "failed to list export versions")
		return
	}
	respondWithJSON(w, r, http.StatusOK, versions)
}

// TriggerIncremental runs an incremental update and returns its report.
// POST /api/admin/sync/incremental?region=AFRICA&lookback_days=7
//
// The run is synchronous. A run already in progress answers 409.
func (h *Handler) TriggerIncremental(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		respondWithError(w, r, http.StatusServiceUnavailable, "sync is not enabled on this server")
		return
	}

	req := services.IncrementalRequest{Region: r.URL.Query().Get("region")}
	if v := r.URL.Query().Get("lookback_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			respondWithError(w, r, http.StatusBadRequest, "lookback_days must be a positive integer")
			return
		}
		req.LookbackDays = days
	}

	report, err := h.syncer.RunIncremental(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrRunInProgress):
		respondWithError(w, r, http.StatusConflict, err.Error())
		return
	case errors.Is(err, services.ErrInvalidRegion):
		respondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		respondWithError(w, r, http.StatusInternalServerError, "incremental update failed: "+err.Error())
		return
	}

	code := http.StatusOK
	if report.Failed() {
		code = http.StatusBadGateway
	}
	respondWithJSON(w, r, code, report)
}

package handlers

import (
	"net/http"

	"tour-synthesis-service/internal/api/dto"
)

// HealthHandler reports liveness and the id of the run in progress.
type HealthHandler struct {
	RunID string
}

func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.HealthResponse{Status: "ok", RunID: h.RunID})
}

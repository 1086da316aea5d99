package handlers

import (
	"log"
	"net/http"
	"strings"

	"tour-synthesis-service/internal/api/dto"
	"tour-synthesis-service/internal/ports"
)

// RunHandler exposes the per-geography attempts recorded for a run.
type RunHandler struct {
	Runs ports.RunHistory
	// Run listed when the request names none.
	DefaultRunID string
}

func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		runID = h.DefaultRunID
	}
	if runID == "" {
		writeError(w, r, http.StatusBadRequest, "run_id is required")
		return
	}

	recs, err := h.Runs.ListRuns(r.Context(), runID)
	if err != nil {
		log.Printf("list runs failed: run_id=%s err=%v", runID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListRunsResponse{
		RunID: runID,
		Runs:  make([]dto.RunResponse, 0, len(recs)),
	}
	for _, rec := range recs {
		res.Runs = append(res.Runs, dto.RunResponse{
			RunID:       rec.RunID,
			State:       rec.State,
			Geography:   rec.Geography,
			Attempt:     rec.Attempt,
			Status:      rec.Status,
			Partitions:  rec.Partitions,
			Travelers:   rec.Travelers,
			Resolved:    rec.Resolved,
			Unresolved:  rec.Unresolved,
			MissingGeo:  rec.MissingGeo,
			DurationMs:  rec.Duration.Milliseconds(),
			Error:       rec.Error,
			CompletedAt: rec.CompletedAt,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

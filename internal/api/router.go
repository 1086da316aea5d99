package api

import (
	"net/http"

	"tour-synthesis-service/internal/api/handlers"
	"tour-synthesis-service/internal/ports"
)

// NewRouter wires the run status handlers and returns an http.Handler.
// runID is the run in progress; /runs lists it unless another is requested.
func NewRouter(runs ports.RunHistory, runID string) http.Handler {
	mux := http.NewServeMux()

	health := &handlers.HealthHandler{RunID: runID}
	runHandler := &handlers.RunHandler{Runs: runs, DefaultRunID: runID}

	mux.HandleFunc("/health", health.Get)
	mux.HandleFunc("/runs", runHandler.List)

	return loggingMiddleware(mux)
}

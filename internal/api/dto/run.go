package dto

import "time"

type RunResponse struct {
	RunID       string    `json:"run_id"`
	State       string    `json:"state"`
	Geography   string    `json:"geography"`
	Attempt     int       `json:"attempt"`
	Status      string    `json:"status"`
	Partitions  int       `json:"partitions"`
	Travelers   int       `json:"travelers"`
	Resolved    int       `json:"resolved"`
	Unresolved  int       `json:"unresolved"`
	MissingGeo  int       `json:"missing_geo"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

type ListRunsResponse struct {
	RunID string        `json:"run_id"`
	Runs  []RunResponse `json:"runs"`
}

type HealthResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id,omitempty"`
}

package ports

import (
	"context"
	"time"
)

// Outcome of one attempt at running a geography through every pass.
type RunRecord struct {
	RunID       string
	State       string
	Geography   string
	Attempt     int
	Status      string
	Partitions  int
	Travelers   int
	Resolved    int
	Unresolved  int
	MissingGeo  int
	Duration    time.Duration
	Error       string
	CompletedAt time.Time
}

// Port: persistence for per-geography run outcomes.
type RunLedger interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// Port: read access to recorded run outcomes.
type RunHistory interface {
	ListRuns(ctx context.Context, runID string) ([]RunRecord, error)
}

package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

const (
	RunIDKey     ctxKey = "run_id"
	GeographyKey ctxKey = "geo"
)

// WithRun tags ctx with the run id used in timing lines.
func WithRun(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithGeography tags ctx with the state/geography being processed.
func WithGeography(ctx context.Context, geo string) context.Context {
	return context.WithValue(ctx, GeographyKey, geo)
}

func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	runID, _ := ctx.Value(RunIDKey).(string)
	geo, _ := ctx.Value(GeographyKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Printf("run_id=%s geo=%s op=%s dur=%dms err=%v", runID, geo, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("run_id=%s geo=%s op=%s dur=%dms", runID, geo, name, dur.Milliseconds())
	}
}

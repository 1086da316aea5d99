package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tour-synthesis-service/internal/platform/db"
	"tour-synthesis-service/internal/ports"
)

// SQL-backed record of geography run attempts.
type SQLRunLedger struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLRunLedger(sqlDB *sql.DB, dialect db.Dialect) *SQLRunLedger {
	return &SQLRunLedger{DB: sqlDB, Dialect: dialect}
}

var (
	_ ports.RunLedger  = (*SQLRunLedger)(nil)
	_ ports.RunHistory = (*SQLRunLedger)(nil)
)

func (l *SQLRunLedger) RecordRun(ctx context.Context, rec ports.RunRecord) error {
	if l.DB == nil {
		return errors.New("run ledger: db is nil")
	}
	if strings.TrimSpace(rec.RunID) == "" {
		return errors.New("record run: run id is required")
	}
	if rec.State == "" || rec.Geography == "" {
		return errors.New("record run: state and geography are required")
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now().UTC()
	}

	q := fmt.Sprintf(`
	INSERT INTO geography_runs (
		run_id,
		state,
		geography,
		attempt,
		status,
		partitions,
		travelers,
		resolved,
		unresolved,
		missing_geo,
		duration_ms,
		error,
		completed_at
	)
	VALUES (%s);
	`, l.Dialect.Binds(13))

	_, err := l.DB.ExecContext(ctx, q,
		rec.RunID,
		rec.State,
		rec.Geography,
		rec.Attempt,
		rec.Status,
		rec.Partitions,
		rec.Travelers,
		rec.Resolved,
		rec.Unresolved,
		rec.MissingGeo,
		rec.Duration.Milliseconds(),
		rec.Error,
		rec.CompletedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record run %s %s/%s attempt=%d: %w", rec.RunID, rec.State, rec.Geography, rec.Attempt, err)
	}
	return nil
}

// Return every attempt recorded for a run, ordered by geography and attempt.
func (l *SQLRunLedger) ListRuns(ctx context.Context, runID string) ([]ports.RunRecord, error) {
	if l.DB == nil {
		return nil, errors.New("run ledger: db is nil")
	}

	q := fmt.Sprintf(`
	SELECT state, geography, attempt, status, partitions, travelers,
		resolved, unresolved, missing_geo, duration_ms, error, completed_at
	FROM geography_runs
	WHERE run_id = %s
	ORDER BY state, geography, attempt;
	`, l.Dialect.Bind(1))
	rows, err := l.DB.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("list runs: query geography_runs table: %w", err)
	}
	defer rows.Close()

	var out []ports.RunRecord
	for rows.Next() {
		rec := ports.RunRecord{RunID: runID}
		var durMs, completedMs int64
		if err := rows.Scan(&rec.State, &rec.Geography, &rec.Attempt, &rec.Status, &rec.Partitions, &rec.Travelers,
			&rec.Resolved, &rec.Unresolved, &rec.MissingGeo, &durMs, &rec.Error, &completedMs); err != nil {
			return nil, fmt.Errorf("list runs: scan row: %w", err)
		}
		rec.Duration = time.Duration(durMs) * time.Millisecond
		rec.CompletedAt = time.UnixMilli(completedMs).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: row iteration: %w", err)
	}
	return out, nil
}

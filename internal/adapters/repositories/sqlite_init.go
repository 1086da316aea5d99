package repositories

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"tour-synthesis-service/internal/platform/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Initialize the catalog and run-ledger schema.
func InitSchema(ctx context.Context, sqlDB *sql.DB, dialect db.Dialect) error {
	if sqlDB == nil {
		return errors.New("init schema: DB is nil")
	}
	if err := db.ApplyMigrations(ctx, sqlDB, dialect, migrationFS, "migrations"); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

type PlaceSeed struct {
	Name     string  `json:"name"`
	County   string  `json:"county"`
	State    string  `json:"state"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Industry string  `json:"industry"`
	Patrons  int     `json:"patrons"`
}

// Populate the places table from a JSON file.
func SeedFromJSON(ctx context.Context, sqlDB *sql.DB, dialect db.Dialect, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed places: read %q: %w", jsonPath, err)
	}

	var data []PlaceSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed places: parse json: %w", err)
	}

	rows := make([]PlaceSeed, 0, len(data))
	for i, item := range data {
		item.Name = strings.TrimSpace(item.Name)
		item.County = strings.TrimSpace(item.County)
		item.State = strings.TrimSpace(item.State)
		item.Industry = strings.TrimSpace(item.Industry)
		if item.Name == "" || item.County == "" || item.State == "" {
			return 0, fmt.Errorf("seed places: item at index %d: name, county and state are required", i+1)
		}
		if item.Industry == "" {
			return 0, fmt.Errorf("seed places: item %q at index %d: industry cannot be empty", item.Name, i+1)
		}
		if item.Patrons < 0 {
			return 0, fmt.Errorf("seed places: item %q at index %d: negative patrons %d", item.Name, i+1, item.Patrons)
		}
		rows = append(rows, item)
	}

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed places: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
	INSERT INTO places (
		name,
		county,
		state,
		lat,
		lon,
		industry,
		patrons
	)
	VALUES (%s)
	ON CONFLICT (state, county, industry, name) DO UPDATE
	SET lat = excluded.lat,
		lon = excluded.lon,
		patrons = excluded.patrons;
	`, dialect.Binds(7))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("seed places: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range rows {
		if _, err := stmt.ExecContext(ctx, p.Name, p.County, p.State, p.Lat, p.Lon, p.Industry, p.Patrons); err != nil {
			return 0, fmt.Errorf("seed places: insert %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed places: commit tx: %w", err)
	}

	return len(rows), nil
}

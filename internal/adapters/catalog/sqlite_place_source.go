package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tour-synthesis-service/internal/domain"
	"tour-synthesis-service/internal/platform/obs"
	"tour-synthesis-service/internal/ports"
)

// SQLite backed catalog of candidate destinations.
type SqlitePlaceSource struct {
	DB *sql.DB
}

func NewSqlitePlaceSource(db *sql.DB) *SqlitePlaceSource {
	return &SqlitePlaceSource{DB: db}
}

var _ ports.PlaceSource = (*SqlitePlaceSource)(nil)

// Fetch every place in one county, ordered for a stable draw order.
func (s *SqlitePlaceSource) PlacesInCounty(ctx context.Context, state, county string) (_ []domain.Place, err error) {
	defer obs.Time(ctx, "catalog.sqlite.PlacesInCounty")(&err)

	if s.DB == nil {
		return nil, errors.New("place source: db is nil")
	}

	state, county = strings.TrimSpace(state), strings.TrimSpace(county)
	if county == "" {
		return nil, errors.New("places in county: county must not be empty")
	}

	q := `
	SELECT
		name,
		county,
		state,
		lat,
		lon,
		industry,
		patrons
	FROM places
	WHERE state = ?
		AND county = ?
	ORDER BY industry, name;
	`
	rows, err := s.DB.QueryContext(ctx, q, state, county)
	if err != nil {
		return nil, fmt.Errorf("places in county: query places table: %w", err)
	}
	defer rows.Close()

	return scanPlaces(rows)
}

// Fetch the place name -> county mapping for one state.
func (s *SqlitePlaceSource) PlaceCounties(ctx context.Context, state string) (map[string]string, error) {
	if s.DB == nil {
		return nil, errors.New("place source: db is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT DISTINCT name, county
	FROM places
	WHERE state = ?;
	`, strings.TrimSpace(state))
	if err != nil {
		return nil, fmt.Errorf("place counties: query places table: %w", err)
	}
	defer rows.Close()

	return scanCounties(rows)
}

func scanPlaces(rows *sql.Rows) ([]domain.Place, error) {
	places := make([]domain.Place, 0, 64)
	for rows.Next() {
		var p domain.Place
		if err := rows.Scan(&p.Name, &p.County, &p.State, &p.Lat, &p.Lon, &p.Industry, &p.Patrons); err != nil {
			return nil, fmt.Errorf("places in county: scan row: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("places in county: row iteration: %w", err)
	}
	return places, nil
}

func scanCounties(rows *sql.Rows) (map[string]string, error) {
	out := make(map[string]string)
	for rows.Next() {
		var name, county string
		if err := rows.Scan(&name, &county); err != nil {
			return nil, fmt.Errorf("place counties: scan row: %w", err)
		}
		out[name] = county
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("place counties: row iteration: %w", err)
	}
	return out, nil
}

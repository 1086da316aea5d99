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

// SQLPlaceSource is a Postgres-backed catalog of candidate destinations.
type SQLPlaceSource struct {
	DB *sql.DB
}

func NewSQLPlaceSource(db *sql.DB) *SQLPlaceSource {
	return &SQLPlaceSource{DB: db}
}

var _ ports.PlaceSource = (*SQLPlaceSource)(nil)

func (s *SQLPlaceSource) PlacesInCounty(ctx context.Context, state, county string) (_ []domain.Place, err error) {
	defer obs.Time(ctx, "catalog.sql.PlacesInCounty")(&err)

	if s.DB == nil {
		return nil, errors.New("place source: db is nil")
	}

	state, county = strings.TrimSpace(state), strings.TrimSpace(county)
	if county == "" {
		return nil, errors.New("places in county: county must not be empty")
	}

	q := `
	SELECT name, county, state, lat, lon, industry, patrons
	FROM places
	WHERE state = $1
		AND county = $2
	ORDER BY industry, name;
	`
	rows, err := s.DB.QueryContext(ctx, q, state, county)
	if err != nil {
		return nil, fmt.Errorf("places in county: query places table: %w", err)
	}
	defer rows.Close()

	return scanPlaces(rows)
}

func (s *SQLPlaceSource) PlaceCounties(ctx context.Context, state string) (map[string]string, error) {
	if s.DB == nil {
		return nil, errors.New("place source: db is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT DISTINCT name, county
	FROM places
	WHERE state = $1;
	`, strings.TrimSpace(state))
	if err != nil {
		return nil, fmt.Errorf("place counties: query places table: %w", err)
	}
	defer rows.Close()

	return scanCounties(rows)
}

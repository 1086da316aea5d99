package ports

import (
	"context"
	"tour-synthesis-service/internal/domain"
)

// Port: a boundary for loading catalog places.
type PlaceSource interface {
	// Retrieve every candidate destination in a county.
	PlacesInCounty(ctx context.Context, state, county string) ([]domain.Place, error)
	// Retrieve the place name -> county mapping for a state.
	PlaceCounties(ctx context.Context, state string) (map[string]string, error)
}

package ports

import "tour-synthesis-service/internal/domain"

// Contract for the geography service: grid discretisation, cell distance
// and place-name lookups.
type GeographyIndex interface {
	// Return the grid cell containing lat/lon.
	GridCell(lat, lon float64) domain.Cell
	// Return the distance between two cells in kilometres.
	Distance(a, b domain.Cell) float64
	// Resolve a place name to its county identifier within a state.
	CountyForPlaceName(name, state string) (string, bool)
}

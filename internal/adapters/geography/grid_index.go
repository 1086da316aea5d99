package geography

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/golang/geo/s2"

	"tour-synthesis-service/internal/domain"
	"tour-synthesis-service/internal/ports"
)

const (
	earthRadiusKm = 6371.0088
	kmPerDegree   = 111.32
	// Default grid resolution when none is configured.
	DefaultCellKm = 1.0
)

// GridIndex discretises lat/long onto a regular degree grid and measures
// great-circle distances between cell centres.
// Safe for concurrent use once place counties are loaded.
type GridIndex struct {
	cellDeg float64

	mu       sync.RWMutex
	counties map[string]string // state|lower(name) -> county
}

// Option is a functional option for configuring a GridIndex.
type Option func(*GridIndex)

// WithPlaceCounties registers place name -> county lookups for a state.
func WithPlaceCounties(state string, names map[string]string) Option {
	return func(g *GridIndex) {
		g.addCounties(state, names)
	}
}

func NewGridIndex(cellKm float64, opts ...Option) *GridIndex {
	if cellKm <= 0 {
		cellKm = DefaultCellKm
	}
	g := &GridIndex{
		cellDeg:  cellKm / kmPerDegree,
		counties: make(map[string]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ ports.GeographyIndex = (*GridIndex)(nil)

// Load the place name -> county mapping for each state from the catalog.
func (g *GridIndex) LoadPlaceCounties(ctx context.Context, src ports.PlaceSource, states []string) error {
	for _, st := range states {
		names, err := src.PlaceCounties(ctx, st)
		if err != nil {
			return fmt.Errorf("load place counties: state %q: %w", st, err)
		}
		g.addCounties(st, names)
	}
	return nil
}

func (g *GridIndex) addCounties(state string, names map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name, county := range names {
		g.counties[countyKey(name, state)] = county
	}
}

func (g *GridIndex) GridCell(lat, lon float64) domain.Cell {
	return domain.Cell{
		X: int(math.Floor(lon / g.cellDeg)),
		Y: int(math.Floor(lat / g.cellDeg)),
	}
}

// Distance returns the great-circle distance between the centres of a and b.
func (g *GridIndex) Distance(a, b domain.Cell) float64 {
	if a == b {
		return 0
	}
	return g.center(a).Distance(g.center(b)).Radians() * earthRadiusKm
}

func (g *GridIndex) CountyForPlaceName(name, state string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.counties[countyKey(name, state)]
	return c, ok
}

func (g *GridIndex) center(c domain.Cell) s2.LatLng {
	lat := (float64(c.Y) + 0.5) * g.cellDeg
	lon := (float64(c.X) + 0.5) * g.cellDeg
	return s2.LatLngFromDegrees(lat, lon)
}

func countyKey(name, state string) string {
	return strings.TrimSpace(state) + "|" + strings.ToLower(strings.TrimSpace(name))
}

package catalog

import (
	"context"
	"sync"

	"tour-synthesis-service/internal/domain"
)

// In-memory place source used by tests and small fixtures.
// Loads counts how many times each county was fetched.
type MemoryPlaceSource struct {
	mu     sync.Mutex
	places map[string][]domain.Place
	Loads  map[string]int
}

func NewMemoryPlaceSource(places []domain.Place) *MemoryPlaceSource {
	m := &MemoryPlaceSource{
		places: make(map[string][]domain.Place),
		Loads:  make(map[string]int),
	}
	for _, p := range places {
		k := p.State + "|" + p.County
		m.places[k] = append(m.places[k], p)
	}
	return m
}

func (m *MemoryPlaceSource) PlacesInCounty(ctx context.Context, state, county string) ([]domain.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := state + "|" + county
	m.Loads[k]++
	out := make([]domain.Place, len(m.places[k]))
	copy(out, m.places[k])
	return out, nil
}

func (m *MemoryPlaceSource) PlaceCounties(ctx context.Context, state string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for _, ps := range m.places {
		for _, p := range ps {
			if p.State == state {
				out[p.Name] = p.County
			}
		}
	}
	return out, nil
}

// LoadCount returns how often a county was fetched.
func (m *MemoryPlaceSource) LoadCount(state, county string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Loads[state+"|"+county]
}

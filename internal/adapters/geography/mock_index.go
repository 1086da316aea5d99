package geography

import (
	"fmt"
	"math"

	"tour-synthesis-service/internal/domain"
)

type MockPair struct {
	From, To domain.Cell
	Km       float64
}

// MockIndex maps lat/lon straight onto integer cells and measures Euclidean
// cell distance unless a pair override is registered.
type MockIndex struct {
	pairs    map[string]float64
	Counties map[string]string
}

func NewMockIndex(pairs []MockPair) *MockIndex {
	m := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		m[pairKey(p.From, p.To)] = p.Km
		m[pairKey(p.To, p.From)] = p.Km
	}
	return &MockIndex{pairs: m, Counties: map[string]string{}}
}

func (m *MockIndex) GridCell(lat, lon float64) domain.Cell {
	return domain.Cell{X: int(math.Floor(lon)), Y: int(math.Floor(lat))}
}

func (m *MockIndex) Distance(a, b domain.Cell) float64 {
	if km, ok := m.pairs[pairKey(a, b)]; ok {
		return km
	}
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func (m *MockIndex) CountyForPlaceName(name, state string) (string, bool) {
	c, ok := m.Counties[countyKey(name, state)]
	return c, ok
}

// SetCounty registers a place name lookup.
func (m *MockIndex) SetCounty(name, state, county string) {
	m.Counties[countyKey(name, state)] = county
}

func pairKey(a, b domain.Cell) string {
	return fmt.Sprintf("%d,%d|%d,%d", a.X, a.Y, b.X, b.Y)
}

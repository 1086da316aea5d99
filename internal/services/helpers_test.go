package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"

	"tour-synthesis-service/internal/adapters/catalog"
	"tour-synthesis-service/internal/adapters/geography"
	"tour-synthesis-service/internal/domain"
	"tour-synthesis-service/internal/ports"
)

const (
	testState  = "13"
	testCounty = "121"
)

func testPlaces() []domain.Place {
	return []domain.Place{
		{Name: "Foundry", County: testCounty, State: testState, Lat: 33.2, Lon: -84.8, Industry: "332", Patrons: 120},
		{Name: "Clinic", County: testCounty, State: testState, Lat: 33.6, Lon: -84.1, Industry: "621", Patrons: 40},
		{Name: "Grocer", County: testCounty, State: testState, Lat: 33.7, Lon: -84.4, Industry: "445", Patrons: 60},
		{Name: "Diner", County: testCounty, State: testState, Lat: 34.1, Lon: -84.2, Industry: "722", Patrons: 25},
	}
}

func testTraveler(row int64, pattern int) domain.Traveler {
	return domain.Traveler{
		RowID:         row,
		State:         testState,
		County:        testCounty,
		Tract:         "001100",
		Block:         "2001",
		HouseholdID:   fmt.Sprintf("hh-%d", row),
		HouseholdType: "1",
		Lat:           33.75,
		Lon:           -84.39,
		PersonID:      fmt.Sprintf("p-%d", row),
		Age:           34,
		Sex:           "F",
		Pattern:       pattern,
		Home:          domain.Location{Name: "HOME", County: testCounty, Lat: 33.75, Lon: -84.39},
		Work:          domain.Location{Name: "Foundry", County: testCounty, Lat: 33.2, Lon: -84.8, Industry: "332"},
		School:        domain.Location{Name: "Midtown High", County: testCounty, Lat: 33.78, Lon: -84.38},
	}
}

// Upstream traveler record for testTraveler(_, pattern).
func inputRow(pattern int) string {
	return strings.Join([]string{
		testState, testCounty, "001100", "2001", "hh", "1", "33.75", "-84.39", "p", "34", "F", fmt.Sprint(pattern),
		"Foundry", testCounty, "33.2", "-84.8", "332",
		"Midtown High", testCounty, "33.78", "-84.38",
	}, ",")
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 7))
}

func newTestCache(places []domain.Place, seed uint64) (*DistributionCache, *catalog.MemoryPlaceSource) {
	src := catalog.NewMemoryPlaceSource(places)
	return NewDistributionCache(src, geography.NewMockIndex(nil), newRand(seed), nil), src
}

func anchoredOther(prev, next domain.StopType, origin domain.Location) domain.Stop {
	s := domain.Stop{Type: domain.StopOther, Prev: prev, Next: next, Segment: 2, RowID: 1}
	s.Anchor(origin)
	return s
}

type sliceStops struct {
	stops []domain.Stop
	i     int
}

func (s *sliceStops) NextStop() (domain.Stop, error) {
	if s.i >= len(s.stops) {
		return domain.Stop{}, io.EOF
	}
	s.i++
	return s.stops[s.i-1], nil
}

type sliceTravelers struct {
	travelers []domain.Traveler
	i         int
}

func (s *sliceTravelers) NextTraveler() (domain.Traveler, error) {
	if s.i >= len(s.travelers) {
		return domain.Traveler{}, io.EOF
	}
	s.i++
	return s.travelers[s.i-1], nil
}

// Place source failing the first n loads.
type flakyPlaceSource struct {
	ports.PlaceSource
	mu    sync.Mutex
	fails int
}

func (f *flakyPlaceSource) PlacesInCounty(ctx context.Context, state, county string) ([]domain.Place, error) {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return nil, errors.New("catalog unavailable")
	}
	f.mu.Unlock()
	return f.PlaceSource.PlacesInCounty(ctx, state, county)
}

type memoryLedger struct {
	mu   sync.Mutex
	recs []ports.RunRecord
}

func (m *memoryLedger) RecordRun(_ context.Context, rec ports.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

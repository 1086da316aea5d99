package services

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-synthesis-service/internal/adapters/geography"
	"tour-synthesis-service/internal/domain"
)

var workOrigin = domain.Location{Name: "Foundry", County: testCounty, Lat: 33.2, Lon: -84.8, Industry: "332", Cell: domain.Cell{X: -85, Y: 33}}

func TestResolverWorkDetourUsesCommuterBucket(t *testing.T) {
	places := []domain.Place{
		{Name: "Foundry", County: testCounty, State: testState, Lat: 33.2, Lon: -84.8, Industry: "332", Patrons: 500},
		{Name: "Diner", County: testCounty, State: testState, Lat: 33.4, Lon: -84.6, Industry: "722", Patrons: 5},
	}

	count := func(prev, next domain.StopType) int {
		cache, _ := newTestCache(places, 42)
		r := NewStopResolver(testState, cache)
		diner := 0
		for range 1000 {
			s := anchoredOther(prev, next, workOrigin)
			ok, err := r.Resolve(context.Background(), &s)
			require.NoError(t, err)
			require.True(t, ok)
			if s.Destination.Name == "Diner" {
				diner++
			}
		}
		return diner
	}

	assert.Greater(t, count(domain.StopWork, domain.StopWork), 990)
	assert.Less(t, count(domain.StopHome, domain.StopWork), 1000)
}

func TestResolverNeverDrawsZeroWeightIndustry(t *testing.T) {
	places := []domain.Place{
		{Name: "A1", County: testCounty, State: testState, Lat: 33.7, Lon: -84.4, Industry: "A", Patrons: 10},
		{Name: "B1", County: testCounty, State: testState, Lat: 33.7, Lon: -84.4, Industry: "B", Patrons: 0},
	}
	cache, _ := newTestCache(places, 1)
	r := NewStopResolver(testState, cache)

	home := domain.Location{Name: "HOME", County: testCounty, Lat: 33.75, Lon: -84.39, Cell: domain.Cell{X: -85, Y: 33}}
	for range 500 {
		s := anchoredOther(domain.StopHome, domain.StopHome, home)
		_, err := r.Resolve(context.Background(), &s)
		require.NoError(t, err)
		require.Equal(t, "A", s.Destination.Industry)
	}
}

func TestResolverZeroSumDistributionStillResolves(t *testing.T) {
	places := []domain.Place{
		{Name: "Empty1", County: testCounty, State: testState, Lat: 33.7, Lon: -84.4, Industry: "812", Patrons: 0},
		{Name: "Empty2", County: testCounty, State: testState, Lat: 33.9, Lon: -84.1, Industry: "812", Patrons: 0},
	}
	cache, _ := newTestCache(places, 3)
	e := NewTourExpander(geography.NewMockIndex(nil))
	stops, err := e.Expand(testTraveler(1, 6))
	require.NoError(t, err)

	other := stops[2]
	ok, err := NewStopResolver(testState, cache).Resolve(context.Background(), &other)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, other.Located)
	assert.NotEmpty(t, other.Destination.Name)
	assert.Equal(t, 1, cache.Stats.Uniform)
}

func TestResolverMissingGeography(t *testing.T) {
	cache, _ := newTestCache(testPlaces(), 1)
	r := NewStopResolver(testState, cache)

	s := anchoredOther(domain.StopHome, domain.StopHome, domain.Location{Name: "HOME", County: "999"})
	before := s
	ok, err := r.Resolve(context.Background(), &s)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, domain.ErrMissingGeography))
	assert.Equal(t, before, s)
}

func TestResolverPassesThroughStopsThatAreNotReady(t *testing.T) {
	cache, src := newTestCache(testPlaces(), 1)
	r := NewStopResolver(testState, cache)

	waiting := domain.Stop{Type: domain.StopOther, Prev: domain.StopOther, Next: domain.StopHome, Segment: 3}
	home := domain.Stop{Type: domain.StopHome}
	home.Locate(workOrigin)

	for _, s := range []domain.Stop{waiting, home} {
		before := s
		ok, err := r.Resolve(context.Background(), &s)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, s)
	}
	assert.Equal(t, 0, src.LoadCount(testState, testCounty))
}

func TestDistributionCacheReplacesOnContextChange(t *testing.T) {
	cache, src := newTestCache(testPlaces(), 9)
	ctx := context.Background()

	cat, err := cache.Catalog(ctx, testState, testCounty)
	require.NoError(t, err)
	bucket := cat.Industry("332")
	require.NotNil(t, bucket)

	key := ContextKey{County: testCounty, Origin: domain.StopHome, Cell: domain.Cell{X: -85, Y: 33}}
	cache.Draw(key, bucket)
	cache.Draw(key, bucket)
	assert.Equal(t, 1, cache.Stats.Rebuilds)
	assert.Equal(t, 1, cache.Stats.Hits)

	key.Cell = domain.Cell{X: -84, Y: 34}
	cache.Draw(key, bucket)
	assert.Equal(t, 2, cache.Stats.Rebuilds)

	_, err = cache.Catalog(ctx, testState, testCounty)
	require.NoError(t, err)
	assert.Equal(t, 1, src.LoadCount(testState, testCounty))

	_, err = cache.Catalog(ctx, testState, "089")
	require.ErrorIs(t, err, domain.ErrMissingGeography)
	_, err = cache.Catalog(ctx, testState, testCounty)
	require.NoError(t, err)
	assert.Equal(t, 2, src.LoadCount(testState, testCounty))
	assert.Equal(t, 3, cache.Stats.CatalogLoads)
}

func TestGravityFavoursNearbyPlaces(t *testing.T) {
	places := []domain.Place{
		{Name: "Near", County: testCounty, State: testState, Lat: 33.5, Lon: -84.5, Industry: "445", Patrons: 1_000_000},
		{Name: "Far", County: testCounty, State: testState, Lat: 33.5, Lon: -74.5, Industry: "445", Patrons: 1_000_000},
	}
	cache, _ := newTestCache(places, 5)
	r := NewStopResolver(testState, cache)

	origin := domain.Location{Name: "HOME", County: testCounty, Cell: domain.Cell{X: -85, Y: 33}}
	near := 0
	for range 1000 {
		s := anchoredOther(domain.StopHome, domain.StopHome, origin)
		_, err := r.Resolve(context.Background(), &s)
		require.NoError(t, err)
		if s.Destination.Name == "Near" {
			near++
		}
	}
	assert.Greater(t, near, 950)
}

func TestCommuterBucketUsesLinearDistanceDecay(t *testing.T) {
	places := []domain.Place{
		{Name: "Near", County: testCounty, State: testState, Lat: 33.5, Lon: -83.5, Industry: "722", Patrons: 100},
		{Name: "Far", County: testCounty, State: testState, Lat: 33.5, Lon: -76.5, Industry: "722", Patrons: 100},
	}
	cache, _ := newTestCache(places, 5)
	cat, err := cache.Catalog(context.Background(), testState, testCounty)
	require.NoError(t, err)

	// Near sits 1 cell from the origin and Far 8 cells.
	key := ContextKey{County: testCounty, Origin: domain.StopWork, Cell: domain.Cell{X: -85, Y: 33}}
	ratio := func(b *IndustryBucket) float64 {
		require.NotNil(t, b)
		d := cache.distribution(key, b)
		return d.weights[d.pos[0]] / d.weights[d.pos[1]]
	}

	assert.InDelta(t, 8.0, ratio(cat.Commuter()), 1e-9)
	assert.InDelta(t, 64.0, ratio(cat.Industry("722")), 1e-9)
}

func TestContextOrderKeepsDistributionsWarm(t *testing.T) {
	cache, _ := newTestCache(testPlaces(), 9)
	r := NewStopResolver(testState, cache)

	origin := domain.Location{Name: "HOME", County: testCounty, Cell: domain.Cell{X: -85, Y: 33}}
	stops := make([]domain.Stop, 100)
	for i := range stops {
		prev := domain.StopHome
		if i%2 == 1 {
			prev = domain.StopWork
		}
		stops[i] = anchoredOther(prev, domain.StopHome, origin)
		stops[i].RowID = int64(i + 1)
	}
	slices.SortStableFunc(stops, ContextOrder)

	for i := range stops {
		ok, err := r.Resolve(context.Background(), &stops[i])
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 2, cache.Stats.Rebuilds)
	assert.Equal(t, 100, cache.Stats.Draws)
}

func TestCatalogConsumeFloorsAtOne(t *testing.T) {
	places := []domain.Place{
		{Name: "Kiosk", County: testCounty, State: testState, Industry: "445", Patrons: 2},
	}
	cat := NewPatronageCatalog(testState, testCounty, places, geography.NewMockIndex(nil), nil)

	assert.True(t, cat.Consume(0))
	assert.Equal(t, 1, cat.Weight(0))
	assert.False(t, cat.Consume(0))
	assert.Equal(t, 1, cat.Weight(0))
	assert.Equal(t, 1, cat.Industry("445").Total)
	assert.Equal(t, 1, cat.Commuter().Total)
	assert.Equal(t, 2, places[0].Patrons)
}

func TestCatalogBucketsPartitionPlaces(t *testing.T) {
	cat := NewPatronageCatalog(testState, testCounty, testPlaces(), geography.NewMockIndex(nil), nil)

	seen := 0
	for _, b := range cat.Industries() {
		seen += len(b.Places)
		assert.NotEqual(t, CommuterBucket, b.Code)
	}
	assert.Equal(t, cat.Len(), seen)

	commuter := cat.Commuter()
	require.NotNil(t, commuter)
	assert.Len(t, commuter.Places, 2)
	assert.Equal(t, 85, commuter.Total)
}

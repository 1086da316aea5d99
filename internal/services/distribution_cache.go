package services

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"tour-synthesis-service/internal/domain"
	"tour-synthesis-service/internal/ports"
)

// Distances below this are clamped so co-located places keep a finite weight.
const MinDistanceKm = 0.5

const (
	gravityPower         = 2.0
	commuterGravityPower = 1.0
)

// ContextKey identifies the spatial context a distribution was derived for.
type ContextKey struct {
	County string
	Origin domain.StopType
	Cell   domain.Cell
}

type CacheStats struct {
	CatalogLoads int
	Rebuilds     int
	Hits         int
	Draws        int
	Uniform      int
}

// distribution is the gravity weighting of one bucket around one cell.
type distribution struct {
	bucket  *IndustryBucket
	weights []float64
	denoms  []float64
	pos     map[int]int
	sum     float64
}

// DistributionCache holds one catalog and the distributions derived for the
// current context. A context change discards every cached distribution; a
// county change also replaces the catalog. Not safe for concurrent use: each
// worker owns its own cache.
type DistributionCache struct {
	src      ports.PlaceSource
	geo      ports.GeographyIndex
	rng      *rand.Rand
	commuter []string

	catalog *PatronageCatalog
	key     ContextKey
	keyed   bool
	dists   map[string]*distribution

	Stats CacheStats
}

func NewDistributionCache(src ports.PlaceSource, geo ports.GeographyIndex, rng *rand.Rand, commuterIndustries []string) *DistributionCache {
	return &DistributionCache{src: src, geo: geo, rng: rng, commuter: commuterIndustries}
}

// Rand returns the worker's random stream.
func (c *DistributionCache) Rand() *rand.Rand { return c.rng }

// Catalog returns the catalog for county, loading it when the county differs
// from the cached one. A county with no places yields ErrMissingGeography.
func (c *DistributionCache) Catalog(ctx context.Context, state, county string) (*PatronageCatalog, error) {
	if county == "" {
		return nil, fmt.Errorf("load catalog %s: blank county: %w", state, domain.ErrMissingGeography)
	}
	if c.catalog == nil || c.catalog.State != state || c.catalog.County != county {
		places, err := c.src.PlacesInCounty(ctx, state, county)
		if err != nil {
			return nil, fmt.Errorf("load catalog %s/%s: %w", state, county, err)
		}
		c.catalog = NewPatronageCatalog(state, county, places, c.geo, c.commuter)
		c.keyed = false
		c.dists = nil
		c.Stats.CatalogLoads++
	}
	if c.catalog.Empty() {
		return nil, fmt.Errorf("load catalog %s/%s: %w", state, county, domain.ErrMissingGeography)
	}
	return c.catalog, nil
}

// Draw samples a place index from bucket using the gravity distribution for
// key and consumes one unit of its patron weight.
func (c *DistributionCache) Draw(key ContextKey, bucket *IndustryBucket) int {
	d := c.distribution(key, bucket)
	c.Stats.Draws++

	var idx int
	if d.sum <= 0 {
		c.Stats.Uniform++
		idx = bucket.Places[c.rng.IntN(len(bucket.Places))]
	} else {
		idx = bucket.Places[pick(d.weights, d.sum, c.rng)]
	}

	if c.catalog.Consume(idx) {
		c.refresh(idx)
	}
	return idx
}

func (c *DistributionCache) distribution(key ContextKey, bucket *IndustryBucket) *distribution {
	if !c.keyed || key != c.key {
		c.key = key
		c.keyed = true
		c.dists = make(map[string]*distribution)
		c.Stats.Rebuilds++
	} else if d, ok := c.dists[bucket.Code]; ok {
		c.Stats.Hits++
		return d
	}

	power := gravityPower
	if bucket.Code == CommuterBucket {
		power = commuterGravityPower
	}

	d := &distribution{
		bucket:  bucket,
		weights: make([]float64, len(bucket.Places)),
		denoms:  make([]float64, len(bucket.Places)),
		pos:     make(map[int]int, len(bucket.Places)),
	}
	for j, p := range bucket.Places {
		km := c.geo.Distance(key.Cell, c.catalog.Cell(p))
		if km < MinDistanceKm || math.IsNaN(km) {
			km = MinDistanceKm
		}
		d.denoms[j] = math.Pow(km, power)
		d.weights[j] = float64(c.catalog.Weight(p)) / d.denoms[j]
		d.sum += d.weights[j]
		d.pos[p] = j
	}
	c.dists[bucket.Code] = d
	return d
}

// Re-weight place p in every cached distribution that lists it.
func (c *DistributionCache) refresh(p int) {
	w := float64(c.catalog.Weight(p))
	for _, d := range c.dists {
		j, ok := d.pos[p]
		if !ok {
			continue
		}
		nw := w / d.denoms[j]
		d.sum += nw - d.weights[j]
		d.weights[j] = nw
		if d.sum < 0 {
			d.sum = 0
		}
	}
}

// Cumulative-weight draw over weights summing to sum.
func pick(weights []float64, sum float64, rng *rand.Rand) int {
	r := rng.Float64() * sum
	cum := 0.0
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		last = i
		if r < cum {
			return i
		}
	}
	return last
}

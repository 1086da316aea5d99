package services

import (
	"context"

	"tour-synthesis-service/internal/domain"
)

// StopResolver samples destinations for ready Other stops.
type StopResolver struct {
	state string
	cache *DistributionCache
}

func NewStopResolver(state string, cache *DistributionCache) *StopResolver {
	return &StopResolver{state: state, cache: cache}
}

// Resolve locates s when it is a ready Other stop and reports whether it did.
// Stops that are not ready pass through unchanged. A county without catalog
// places returns ErrMissingGeography and leaves s untouched.
func (r *StopResolver) Resolve(ctx context.Context, s *domain.Stop) (bool, error) {
	if !s.Ready() {
		return false, nil
	}

	cat, err := r.cache.Catalog(ctx, r.state, s.Origin.County)
	if err != nil {
		return false, err
	}

	bucket := cat.Commuter()
	if !s.WorkDetour() || bucket == nil {
		bucket = cat.DrawIndustry(r.cache.Rand())
	}

	key := ContextKey{County: s.Origin.County, Origin: s.Prev, Cell: s.Origin.Cell}
	idx := r.cache.Draw(key, bucket)
	s.Locate(cat.Place(idx).Location(cat.Cell(idx)))
	return true, nil
}

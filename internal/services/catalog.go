package services

import (
	"math/rand/v2"
	"slices"

	"tour-synthesis-service/internal/domain"
	"tour-synthesis-service/internal/ports"
)

// Industry code of the synthetic bucket drawn for work->other->work detours.
const CommuterBucket = "COMMUTE"

// Industries cross-listed into the commuter bucket when none are configured.
var DefaultCommuterIndustries = []string{"445", "722"}

// IndustryBucket groups catalog places of one industry. Places holds indices
// into the owning catalog; Total is the remaining patron weight of the bucket.
type IndustryBucket struct {
	Code   string
	Places []int
	Total  int
}

// PatronageCatalog is one worker's snapshot of a county's candidate places.
// Patron counts are copied on the first decrement so the loaded slice is
// never mutated.
type PatronageCatalog struct {
	State  string
	County string

	places    []domain.Place
	cells     []domain.Cell
	remaining []int

	industries []*IndustryBucket
	byCode     map[string]*IndustryBucket
	commuter   *IndustryBucket
	isCommuter []bool
}

// NewPatronageCatalog partitions places into industry buckets and builds the
// commuter bucket from the listed industries.
func NewPatronageCatalog(state, county string, places []domain.Place, geo ports.GeographyIndex, commuterIndustries []string) *PatronageCatalog {
	if commuterIndustries == nil {
		commuterIndustries = DefaultCommuterIndustries
	}
	c := &PatronageCatalog{
		State:      state,
		County:     county,
		places:     places,
		cells:      make([]domain.Cell, len(places)),
		byCode:     make(map[string]*IndustryBucket),
		isCommuter: make([]bool, len(places)),
	}
	commuter := &IndustryBucket{Code: CommuterBucket}

	for i, p := range places {
		c.cells[i] = geo.GridCell(p.Lat, p.Lon)

		b, ok := c.byCode[p.Industry]
		if !ok {
			b = &IndustryBucket{Code: p.Industry}
			c.byCode[p.Industry] = b
			c.industries = append(c.industries, b)
		}
		b.Places = append(b.Places, i)
		b.Total += max(p.Patrons, 0)

		if slices.Contains(commuterIndustries, p.Industry) {
			c.isCommuter[i] = true
			commuter.Places = append(commuter.Places, i)
			commuter.Total += max(p.Patrons, 0)
		}
	}
	slices.SortFunc(c.industries, func(a, b *IndustryBucket) int {
		switch {
		case a.Code < b.Code:
			return -1
		case a.Code > b.Code:
			return 1
		}
		return 0
	})
	if len(commuter.Places) > 0 {
		c.commuter = commuter
	}
	return c
}

// Empty reports whether the county has no candidate places at all.
func (c *PatronageCatalog) Empty() bool { return len(c.places) == 0 }

func (c *PatronageCatalog) Len() int { return len(c.places) }

// Industries returns the regular buckets ordered by code. The commuter bucket
// is not included.
func (c *PatronageCatalog) Industries() []*IndustryBucket { return c.industries }

// Industry returns the bucket for code, or nil.
func (c *PatronageCatalog) Industry(code string) *IndustryBucket { return c.byCode[code] }

// Commuter returns the synthetic commuter bucket, or nil when the county has
// no cross-listed places.
func (c *PatronageCatalog) Commuter() *IndustryBucket { return c.commuter }

func (c *PatronageCatalog) Place(i int) domain.Place { return c.places[i] }

func (c *PatronageCatalog) Cell(i int) domain.Cell { return c.cells[i] }

// Weight returns the remaining patron weight of place i.
func (c *PatronageCatalog) Weight(i int) int {
	if c.remaining != nil {
		return c.remaining[i]
	}
	return max(c.places[i].Patrons, 0)
}

// Consume decrements place i's remaining weight by one, never below one.
// It reports whether the weight changed.
func (c *PatronageCatalog) Consume(i int) bool {
	if c.Weight(i) <= 1 {
		return false
	}
	if c.remaining == nil {
		c.remaining = make([]int, len(c.places))
		for j, p := range c.places {
			c.remaining[j] = max(p.Patrons, 0)
		}
	}
	c.remaining[i]--
	c.byCode[c.places[i].Industry].Total--
	if c.isCommuter[i] {
		c.commuter.Total--
	}
	return true
}

// DrawIndustry picks a regular bucket with probability proportional to its
// remaining total. When every total is zero it picks uniformly among
// non-empty buckets. It returns nil for an empty catalog.
func (c *PatronageCatalog) DrawIndustry(rng *rand.Rand) *IndustryBucket {
	sum := 0
	for _, b := range c.industries {
		sum += b.Total
	}
	if sum <= 0 {
		if len(c.industries) == 0 {
			return nil
		}
		return c.industries[rng.IntN(len(c.industries))]
	}

	r := rng.IntN(sum)
	for _, b := range c.industries {
		if r < b.Total {
			return b
		}
		r -= b.Total
	}
	return c.industries[len(c.industries)-1]
}

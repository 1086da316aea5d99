package domain

import "fmt"

// Every tour is padded to this many segment slots.
const SegmentSlots = 8

// Synthetic resident with previously assigned home/work/school locations.
// Personal attributes are carried through to the final record unchanged.
type Traveler struct {
	RowID         int64
	State         string
	County        string
	Tract         string
	Block         string
	HouseholdID   string
	HouseholdType string
	Lat           float64
	Lon           float64
	PersonID      string
	Age           int
	Sex           string
	Pattern       int
	Home          Location
	Work          Location
	School        Location
}

// Ordered day of stops for one traveler.
type Tour struct {
	Traveler Traveler
	Stops    [SegmentSlots]Stop
}

// Create a tour whose slots are all Empty.
func NewTour(t Traveler) *Tour {
	tour := &Tour{Traveler: t}
	for i := range tour.Stops {
		tour.Stops[i] = Stop{Type: StopEmpty, Segment: i, RowID: t.RowID}
	}
	return tour
}

// Place a stop into its segment slot.
func (t *Tour) Place(s Stop) error {
	if s.RowID != t.Traveler.RowID {
		return fmt.Errorf("place stop: row %d does not belong to traveler row %d", s.RowID, t.Traveler.RowID)
	}
	if s.Segment < 0 || s.Segment >= SegmentSlots {
		return fmt.Errorf("place stop: segment %d out of range for row %d", s.Segment, s.RowID)
	}
	t.Stops[s.Segment] = s
	return nil
}

// Count of non-Empty stops.
func (t *Tour) Len() int {
	n := 0
	for _, s := range t.Stops {
		if s.Type != StopEmpty {
			n++
		}
	}
	return n
}

package services

import (
	"strings"

	"tour-synthesis-service/internal/domain"
	"tour-synthesis-service/internal/ports"
)

// TourExpander turns a traveler's activity pattern into an ordered skeleton
// of stops with Home/Work/School pre-located and Other stops left blank.
type TourExpander struct {
	geo ports.GeographyIndex
}

func NewTourExpander(geo ports.GeographyIndex) *TourExpander {
	return &TourExpander{geo: geo}
}

// Expand returns the non-Empty stops of t's tour in segment order.
// It fails only when the pattern code has no table entry.
func (e *TourExpander) Expand(t domain.Traveler) ([]domain.Stop, error) {
	sk, err := Skeleton(t.Pattern)
	if err != nil {
		return nil, err
	}

	work := e.workLocation(t)
	if work.International() && contains(sk, domain.StopWork) {
		s := domain.Stop{Type: domain.StopWork, Prev: domain.StopEmpty, Next: domain.StopEmpty, RowID: t.RowID}
		s.Locate(work)
		return []domain.Stop{s}, nil
	}

	// Residents without a usable assignment for their pattern stay home.
	if (contains(sk, domain.StopSchool) && !t.School.Known()) || (contains(sk, domain.StopWork) && !work.Known()) {
		sk, _ = Skeleton(NonTravelerPattern)
	}

	stops := make([]domain.Stop, len(sk))
	for i, typ := range sk {
		st := domain.Stop{Type: typ, Segment: i, RowID: t.RowID}
		if i > 0 {
			st.Prev = sk[i-1]
		}
		if i < len(sk)-1 {
			st.Next = sk[i+1]
		}

		switch typ {
		case domain.StopHome:
			st.Locate(e.located(t.Home))
		case domain.StopWork:
			st.Locate(e.located(work))
		case domain.StopSchool:
			st.Locate(e.located(t.School))
		}

		if i == 0 {
			st.Anchor(st.Destination)
		} else if prev := stops[i-1]; prev.Located {
			st.Anchor(prev.Destination)
		}
		stops[i] = st
	}
	return stops, nil
}

// Fill a missing work county from the place name.
func (e *TourExpander) workLocation(t domain.Traveler) domain.Location {
	work := t.Work
	if work.County == "" && strings.TrimSpace(work.Name) != "" && e.geo != nil {
		if strings.EqualFold(strings.TrimSpace(work.Name), domain.InternationalName) {
			return domain.InternationalLocation()
		}
		if c, ok := e.geo.CountyForPlaceName(work.Name, t.State); ok {
			work.County = c
		}
	}
	return work
}

func (e *TourExpander) located(l domain.Location) domain.Location {
	if e.geo != nil {
		l.Cell = e.geo.GridCell(l.Lat, l.Lon)
	}
	return l
}

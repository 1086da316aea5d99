package stopfile

import (
	"fmt"
	"strconv"
	"strings"

	"tour-synthesis-service/internal/domain"
)

const (
	// type, prev, next, origin{name,county,lat,lon,industry,gx,gy}, segment, row, resolved
	nodeBaseFields = 13
	// destination{name,county,lat,lon,industry,gx,gy}
	nodeDestFields = 7
	NodeFields     = nodeBaseFields + nodeDestFields

	// state, county, tract, block, household id, household type, lat, lon,
	// person id, age, sex, pattern
	travelerAttrFields = 12
	// work{name,county,lat,lon,industry}, school{name,county,lat,lon}
	TravelerInputFields = travelerAttrFields + 5 + 4
	// row id followed by the input fields
	TravelerFields = 1 + TravelerInputFields

	// type, prev, next, name, county, lat, lon, industry
	tourStopFields = 8
	TourFields     = travelerAttrFields + domain.SegmentSlots*tourStopFields
)

// EncodeStop flattens a stop into its node record.
func EncodeStop(s domain.Stop) []string {
	rec := make([]string, 0, NodeFields)
	rec = append(rec, s.Type.Code(), s.Prev.Code(), s.Next.Code())
	rec = appendLocation(rec, s.Origin, s.Anchored)
	rec = append(rec, strconv.Itoa(s.Segment), strconv.FormatInt(s.RowID, 10), flag(s.Anchored))
	rec = appendLocation(rec, s.Destination, s.Located)
	return rec
}

// DecodeStop parses a node record.
func DecodeStop(rec []string) (domain.Stop, error) {
	var s domain.Stop
	if len(rec) != NodeFields {
		return s, fmt.Errorf("decode stop: %d fields, want %d: %w", len(rec), NodeFields, domain.ErrSchemaViolation)
	}

	var err error
	if s.Type, err = domain.ParseStopType(rec[0]); err != nil {
		return s, fmt.Errorf("decode stop: type: %w", err)
	}
	if s.Prev, err = domain.ParseStopType(rec[1]); err != nil {
		return s, fmt.Errorf("decode stop: prev: %w", err)
	}
	if s.Next, err = domain.ParseStopType(rec[2]); err != nil {
		return s, fmt.Errorf("decode stop: next: %w", err)
	}
	if s.Segment, err = strconv.Atoi(rec[10]); err != nil {
		return s, fmt.Errorf("decode stop: segment %q: %w", rec[10], err)
	}
	if s.RowID, err = strconv.ParseInt(rec[11], 10, 64); err != nil {
		return s, fmt.Errorf("decode stop: row id %q: %w", rec[11], err)
	}
	s.Anchored = rec[12] == "1"

	if s.Anchored {
		if s.Origin, err = parseLocation(rec[3:10]); err != nil {
			return s, fmt.Errorf("decode stop: origin: %w", err)
		}
	}
	if strings.TrimSpace(rec[14]) != "" {
		if s.Destination, err = parseLocation(rec[13:20]); err != nil {
			return s, fmt.Errorf("decode stop: destination: %w", err)
		}
		s.Located = true
	}
	return s, nil
}

// EncodeTraveler writes the carried traveler record (row id first).
func EncodeTraveler(t domain.Traveler) []string {
	rec := make([]string, 0, TravelerFields)
	rec = append(rec, strconv.FormatInt(t.RowID, 10))
	rec = appendAttrs(rec, t)
	rec = append(rec, t.Work.Name, t.Work.County, ftoa(t.Work.Lat), ftoa(t.Work.Lon), t.Work.Industry)
	rec = append(rec, t.School.Name, t.School.County, ftoa(t.School.Lat), ftoa(t.School.Lon))
	return rec
}

// DecodeTraveler parses a carried traveler record.
func DecodeTraveler(rec []string) (domain.Traveler, error) {
	if len(rec) != TravelerFields {
		return domain.Traveler{}, fmt.Errorf("decode traveler: %d fields, want %d: %w", len(rec), TravelerFields, domain.ErrSchemaViolation)
	}
	row, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("decode traveler: row id %q: %w", rec[0], err)
	}
	t, err := DecodeTravelerInput(rec[1:], row)
	if err != nil {
		return domain.Traveler{}, err
	}
	return t, nil
}

// DecodeTravelerInput parses an upstream traveler record and assigns it a row id.
func DecodeTravelerInput(rec []string, rowID int64) (domain.Traveler, error) {
	if len(rec) != TravelerInputFields {
		return domain.Traveler{}, fmt.Errorf("decode traveler: %d fields, want %d: %w", len(rec), TravelerInputFields, domain.ErrSchemaViolation)
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}

	t := domain.Traveler{
		RowID:         rowID,
		State:         rec[0],
		County:        rec[1],
		Tract:         rec[2],
		Block:         rec[3],
		HouseholdID:   rec[4],
		HouseholdType: rec[5],
		PersonID:      rec[8],
		Sex:           rec[10],
	}

	var err error
	if t.Lat, err = atof(rec[6]); err != nil {
		return t, fmt.Errorf("decode traveler: lat: %w", err)
	}
	if t.Lon, err = atof(rec[7]); err != nil {
		return t, fmt.Errorf("decode traveler: lon: %w", err)
	}
	if t.Age, err = strconv.Atoi(rec[9]); err != nil {
		return t, fmt.Errorf("decode traveler: age %q: %w", rec[9], err)
	}
	if t.Pattern, err = strconv.Atoi(rec[11]); err != nil {
		return t, fmt.Errorf("decode traveler: pattern %q: %w", rec[11], err)
	}

	t.Home = domain.Location{Name: "HOME", County: t.County, Lat: t.Lat, Lon: t.Lon}

	w := rec[12:17]
	t.Work = domain.Location{Name: w[0], County: w[1], Industry: w[4]}
	if t.Work.Lat, err = atof(w[2]); err != nil {
		return t, fmt.Errorf("decode traveler: work lat: %w", err)
	}
	if t.Work.Lon, err = atof(w[3]); err != nil {
		return t, fmt.Errorf("decode traveler: work lon: %w", err)
	}

	sc := rec[17:21]
	t.School = domain.Location{Name: sc[0], County: sc[1]}
	if t.School.Lat, err = atof(sc[2]); err != nil {
		return t, fmt.Errorf("decode traveler: school lat: %w", err)
	}
	if t.School.Lon, err = atof(sc[3]); err != nil {
		return t, fmt.Errorf("decode traveler: school lon: %w", err)
	}
	return t, nil
}

// EncodeTour flattens a tour into the fixed-width final record.
func EncodeTour(t *domain.Tour) []string {
	rec := make([]string, 0, TourFields)
	rec = appendAttrs(rec, t.Traveler)
	for _, s := range t.Stops {
		if s.Type == domain.StopEmpty {
			rec = append(rec, s.Type.Code(), "", "", "", "", "", "", "")
			continue
		}
		rec = append(rec, s.Type.Code(), s.Prev.Code(), s.Next.Code())
		if !s.Located {
			rec = append(rec, "", "", "", "", "")
			continue
		}
		d := s.Destination
		rec = append(rec, d.Name, d.County, ftoa(d.Lat), ftoa(d.Lon), d.Industry)
	}
	return rec
}

func appendAttrs(rec []string, t domain.Traveler) []string {
	return append(rec,
		t.State, t.County, t.Tract, t.Block, t.HouseholdID, t.HouseholdType,
		ftoa(t.Lat), ftoa(t.Lon), t.PersonID, strconv.Itoa(t.Age), t.Sex, strconv.Itoa(t.Pattern),
	)
}

func appendLocation(rec []string, l domain.Location, set bool) []string {
	if !set {
		return append(rec, "", "", "", "", "", "", "")
	}
	return append(rec, l.Name, l.County, ftoa(l.Lat), ftoa(l.Lon), l.Industry,
		strconv.Itoa(l.Cell.X), strconv.Itoa(l.Cell.Y))
}

func parseLocation(f []string) (domain.Location, error) {
	l := domain.Location{Name: f[0], County: f[1], Industry: f[4]}
	var err error
	if l.Lat, err = atof(f[2]); err != nil {
		return l, err
	}
	if l.Lon, err = atof(f[3]); err != nil {
		return l, err
	}
	if l.Cell.X, err = strconv.Atoi(f[5]); err != nil {
		return l, fmt.Errorf("grid x %q: %w", f[5], err)
	}
	if l.Cell.Y, err = strconv.Atoi(f[6]); err != nil {
		return l, fmt.Errorf("grid y %q: %w", f[6], err)
	}
	return l, nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Blank coordinates decode as zero.
func atof(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse float %q: %w", s, err)
	}
	return v, nil
}

package domain

// Candidate destination loaded from the catalog (workplace, school, retailer...).
// Patrons is the attractiveness used by the gravity draw.
type Place struct {
	Name     string
	County   string
	State    string
	Lat      float64
	Lon      float64
	Industry string
	Patrons  int
}

// Location returns the place as a stop location on the given grid cell.
func (p Place) Location(cell Cell) Location {
	return Location{
		Name:     p.Name,
		County:   p.County,
		Lat:      p.Lat,
		Lon:      p.Lon,
		Industry: p.Industry,
		Cell:     cell,
	}
}

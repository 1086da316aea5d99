package domain

// Discretised grid position of a lat/long pair.
type Cell struct {
	X int
	Y int
}

// Sentinel values used for travelers whose workplace lies outside the country.
const (
	InternationalName   = "INTERNATIONAL"
	InternationalCounty = "INTL"
)

// Geocoded point a stop can be placed at.
// County is the zero-padded county identifier; Industry is only set for catalog places.
type Location struct {
	Name     string
	County   string
	Lat      float64
	Lon      float64
	Industry string
	Cell     Cell
}

// Report whether the location carries geography.
func (l Location) Known() bool { return l.County != "" }

// International reports whether l is the abroad-work sentinel.
func (l Location) International() bool { return l.County == InternationalCounty }

// Return an abroad-work sentinel location.
func InternationalLocation() Location {
	return Location{Name: InternationalName, County: InternationalCounty}
}

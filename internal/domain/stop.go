package domain

import (
	"fmt"
	"strings"
)

// Kind of activity at a stop.
type StopType uint8

const (
	StopEmpty StopType = iota
	StopHome
	StopWork
	StopSchool
	StopOther
)

var stopTypeCodes = [...]string{
	StopEmpty:  "E",
	StopHome:   "H",
	StopWork:   "W",
	StopSchool: "S",
	StopOther:  "O",
}

// Code returns the single-letter wire code of the stop type.
func (t StopType) Code() string {
	if int(t) < len(stopTypeCodes) {
		return stopTypeCodes[t]
	}
	return "?"
}

func (t StopType) String() string {
	switch t {
	case StopEmpty:
		return "empty"
	case StopHome:
		return "home"
	case StopWork:
		return "work"
	case StopSchool:
		return "school"
	case StopOther:
		return "other"
	}
	return fmt.Sprintf("StopType(%d)", uint8(t))
}

// Fixed reports whether the stop location is known at expansion time.
func (t StopType) Fixed() bool {
	return t == StopHome || t == StopWork || t == StopSchool
}

// Parse a wire code back into a stop type.
func ParseStopType(code string) (StopType, error) {
	code = strings.TrimSpace(code)
	for i, c := range stopTypeCodes {
		if c == code {
			return StopType(i), nil
		}
	}
	return StopEmpty, fmt.Errorf("parse stop type: unknown code %q", code)
}

// One node of a traveler's tour.
//
// Origin is the location the traveler departs from to reach the stop; Anchored
// is set once it is populated (serialized as the resolved flag). Destination is
// where the stop itself takes place and is only meaningful when Located is set.
// Home/Work/School stops are located at expansion; Other stops are located by
// the resolver once anchored.
type Stop struct {
	Type        StopType
	Prev        StopType
	Next        StopType
	Origin      Location
	Anchored    bool
	Destination Location
	Located     bool
	Segment     int
	RowID       int64
}

// Ready reports whether an Other stop can be sampled in the current pass.
func (s Stop) Ready() bool {
	return s.Type == StopOther && s.Anchored && !s.Located
}

// Anchor sets the departure context of the stop.
func (s *Stop) Anchor(origin Location) {
	s.Origin = origin
	s.Anchored = true
}

// Locate places the stop at loc.
func (s *Stop) Locate(loc Location) {
	s.Destination = loc
	s.Located = true
}

// Round-trip detours from the workplace back to the workplace.
func (s Stop) WorkDetour() bool {
	return s.Prev == StopWork && s.Next == StopWork
}

package services

import (
	"fmt"

	"tour-synthesis-service/internal/domain"
)

// Pattern code assigned to residents who stay home all day.
const NonTravelerPattern = 0

const (
	pH = domain.StopHome
	pW = domain.StopWork
	pS = domain.StopSchool
	pO = domain.StopOther
)

// Activity pattern code -> stop skeleton. No skeleton has more than two
// consecutive Other stops or more than domain.SegmentSlots stops.
var patternTable = map[int][]domain.StopType{
	0:  {pH},
	1:  {pH, pW, pH},
	2:  {pH, pS, pH},
	3:  {pH, pO, pH},
	4:  {pH, pO, pO, pH},
	5:  {pH, pS, pO, pH},
	6:  {pH, pW, pO, pH},
	7:  {pH, pW, pO, pO, pH},
	8:  {pH, pO, pW, pH},
	9:  {pH, pW, pO, pW, pH},
	10: {pH, pO, pW, pO, pH},
	11: {pH, pS, pO, pO, pH},
	12: {pH, pW, pH, pO, pH},
	13: {pH, pO, pH, pO, pH},
	14: {pH, pO, pW, pO, pW, pH},
	15: {pH, pW, pO, pW, pO, pH},
	16: {pH, pO, pS, pH},
	17: {pH, pS, pH, pO, pO, pH},
	18: {pH, pO, pW, pO, pW, pO, pO, pH},
}

// Skeleton returns the stop types for a pattern code.
func Skeleton(code int) ([]domain.StopType, error) {
	sk, ok := patternTable[code]
	if !ok {
		return nil, fmt.Errorf("skeleton: code %d: %w", code, domain.ErrUnknownPattern)
	}
	out := make([]domain.StopType, len(sk))
	copy(out, sk)
	return out, nil
}

// PatternCodes lists every code in the table in ascending order.
func PatternCodes() []int {
	codes := make([]int, 0, len(patternTable))
	for c := 0; len(codes) < len(patternTable); c++ {
		if _, ok := patternTable[c]; ok {
			codes = append(codes, c)
		}
	}
	return codes
}

func contains(sk []domain.StopType, t domain.StopType) bool {
	for _, st := range sk {
		if st == t {
			return true
		}
	}
	return false
}

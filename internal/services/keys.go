package services

import (
	"cmp"

	"tour-synthesis-service/internal/domain"
)

// ContextOrder sorts stops by (origin county, origin cell, successor type,
// predecessor type, stop type) so consecutive Other stops share a sampling
// context.
func ContextOrder(a, b domain.Stop) int {
	if c := cmp.Compare(a.Origin.County, b.Origin.County); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Origin.Cell.X, b.Origin.Cell.X); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Origin.Cell.Y, b.Origin.Cell.Y); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Next, b.Next); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Prev, b.Prev); c != 0 {
		return c
	}
	return cmp.Compare(a.Type, b.Type)
}

// TravelerOrder sorts stops by (row id, segment index).
func TravelerOrder(a, b domain.Stop) int {
	if c := cmp.Compare(a.RowID, b.RowID); c != 0 {
		return c
	}
	return cmp.Compare(a.Segment, b.Segment)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"tour-synthesis-service/internal/adapters/stopfile"
	"tour-synthesis-service/internal/domain"
	"tour-synthesis-service/internal/platform/obs"
)

type StopStream interface {
	NextStop() (domain.Stop, error)
}

type TravelerStream interface {
	NextTraveler() (domain.Traveler, error)
}

// AssembleStats counts what went into the assembled tours.
// Located and Unlocated refer to Other stops only.
type AssembleStats struct {
	Tours     int
	Stops     int
	Located   int
	Unlocated int
}

// TourAssembler merge-joins travelers with their final stops. Both streams
// must be ordered by row id and stops by segment within a row.
type TourAssembler struct{}

func NewTourAssembler() *TourAssembler { return &TourAssembler{} }

// Assemble emits exactly one padded tour per traveler. A traveler without
// stops still gets an all-Empty tour; a stop without a traveler is an error.
func (a *TourAssembler) Assemble(travelers TravelerStream, stops StopStream, emit func(*domain.Tour) error) (AssembleStats, error) {
	var stats AssembleStats

	next, err := stops.NextStop()
	more := err == nil
	if err != nil && !errors.Is(err, io.EOF) {
		return stats, fmt.Errorf("assemble: %w", err)
	}
	advance := func() error {
		next, err = stops.NextStop()
		if errors.Is(err, io.EOF) {
			more = false
			return nil
		}
		return err
	}

	for {
		t, err := travelers.NextTraveler()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("assemble: %w", err)
		}
		if more && next.RowID < t.RowID {
			return stats, fmt.Errorf("assemble: stop row %d segment %d has no traveler", next.RowID, next.Segment)
		}

		tour := domain.NewTour(t)
		lastSeg := -1
		for more && next.RowID == t.RowID {
			if next.Segment <= lastSeg {
				return stats, fmt.Errorf("assemble: row %d segment %d after segment %d: %w", next.RowID, next.Segment, lastSeg, stopfile.ErrUnsorted)
			}
			if err := tour.Place(next); err != nil {
				return stats, fmt.Errorf("assemble: %w", err)
			}
			lastSeg = next.Segment
			stats.Stops++
			if next.Type == domain.StopOther {
				if next.Located {
					stats.Located++
				} else {
					stats.Unlocated++
				}
			}
			if err := advance(); err != nil {
				return stats, fmt.Errorf("assemble: %w", err)
			}
		}

		if err := emit(tour); err != nil {
			return stats, fmt.Errorf("assemble: emit row %d: %w", t.RowID, err)
		}
		stats.Tours++
	}

	if more {
		return stats, fmt.Errorf("assemble: stop row %d segment %d has no traveler", next.RowID, next.Segment)
	}
	return stats, nil
}

// AssembleFiles joins the carried traveler file with the final stop file and
// writes the tour records to outPath. The file appears only when complete.
func (a *TourAssembler) AssembleFiles(ctx context.Context, travelersPath, stopsPath, outPath string) (stats AssembleStats, err error) {
	defer obs.Time(ctx, "assemble")(&err)
	ctx, span := obs.Tracer().Start(ctx, "assemble")
	defer span.End()

	tr, err := stopfile.Open(travelersPath)
	if err != nil {
		return stats, fmt.Errorf("assemble: %w", err)
	}
	defer tr.Close()

	sr, err := stopfile.Open(stopsPath)
	if err != nil {
		return stats, fmt.Errorf("assemble: %w", err)
	}
	defer sr.Close()

	tmp := outPath + ".tmp"
	w, err := stopfile.Create(tmp)
	if err != nil {
		return stats, fmt.Errorf("assemble: %w", err)
	}

	stats, err = a.Assemble(tr, sr, func(t *domain.Tour) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return w.WriteTour(t)
	})
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return stats, err
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return stats, fmt.Errorf("assemble: %w", err)
	}
	return stats, nil
}

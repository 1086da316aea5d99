package services

import (
	"errors"
	"fmt"
	"io"

	"tour-synthesis-service/internal/adapters/stopfile"
	"tour-synthesis-service/internal/domain"
)

// Rebuild propagates located predecessors into the next Other stop of one
// traveler's stops, which must be in segment order. On pass 1 a stop that is
// itself followed by an Other stop is skipped; later passes propagate
// unconditionally. It returns the number of stops anchored.
func Rebuild(stops []domain.Stop, pass int) int {
	n := 0
	for i := 1; i < len(stops); i++ {
		s, prev := &stops[i], stops[i-1]
		if s.Type != domain.StopOther || s.Anchored {
			continue
		}
		if !prev.Located || prev.Segment != s.Segment-1 {
			continue
		}
		if pass == 1 && s.Next == domain.StopOther {
			continue
		}
		s.Anchor(prev.Destination)
		n++
	}
	return n
}

// rebuildFile streams src, sorted by (row, segment), through Rebuild one
// traveler at a time into dst.
func rebuildFile(src, dst string, pass int) (propagated int, err error) {
	r, err := stopfile.Open(src)
	if err != nil {
		return 0, fmt.Errorf("rebuild: %w", err)
	}
	defer r.Close()

	w, err := stopfile.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("rebuild: %w", err)
	}
	defer func() {
		if cerr := w.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("rebuild: %w", cerr)
		}
	}()

	var group []domain.Stop
	flush := func() error {
		propagated += Rebuild(group, pass)
		for _, s := range group {
			if err := w.WriteStop(s); err != nil {
				return err
			}
		}
		group = group[:0]
		return nil
	}

	for {
		s, err := r.NextStop()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("rebuild: %w", err)
		}
		if len(group) > 0 && group[0].RowID != s.RowID {
			if err := flush(); err != nil {
				return 0, fmt.Errorf("rebuild: %w", err)
			}
		}
		group = append(group, s)
	}
	if err := flush(); err != nil {
		return 0, fmt.Errorf("rebuild: %w", err)
	}
	return propagated, nil
}

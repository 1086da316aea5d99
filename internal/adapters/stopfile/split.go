package stopfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"tour-synthesis-service/internal/domain"
)

// ErrUnsorted is returned when a stream is not ordered by row id.
var ErrUnsorted = errors.New("stop file not sorted by row id")

// SplitByTraveler streams src, which must be sorted by row id, into len(dsts)
// files holding perPart travelers each (the last takes the remainder). A
// traveler's stops never straddle two files. It returns the traveler count per file.
func SplitByTraveler(src string, dsts []string, perPart int) ([]int, error) {
	if len(dsts) == 0 {
		return nil, errors.New("split by traveler: no destinations")
	}
	if perPart <= 0 {
		return nil, fmt.Errorf("split by traveler: invalid partition size %d", perPart)
	}

	r, err := Open(src)
	if err != nil {
		return nil, fmt.Errorf("split by traveler: %w", err)
	}
	defer r.Close()

	counts := make([]int, len(dsts))
	part := 0
	w, err := Create(dsts[part])
	if err != nil {
		return nil, fmt.Errorf("split by traveler: %w", err)
	}
	var lastRow int64
	started := false

	for {
		s, err := r.NextStop()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("split by traveler: %w", err)
		}

		if !started || s.RowID != lastRow {
			if started && s.RowID < lastRow {
				_ = w.Close()
				return nil, fmt.Errorf("split by traveler: row %d after row %d in %q: %w", s.RowID, lastRow, src, ErrUnsorted)
			}
			if counts[part] == perPart && part < len(dsts)-1 {
				if err := w.Close(); err != nil {
					return nil, fmt.Errorf("split by traveler: %w", err)
				}
				part++
				if w, err = Create(dsts[part]); err != nil {
					return nil, fmt.Errorf("split by traveler: %w", err)
				}
			}
			counts[part]++
			lastRow = s.RowID
			started = true
		}
		if err := w.WriteStop(s); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("split by traveler: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("split by traveler: %w", err)
	}

	// Remaining partitions exist but are empty.
	for part++; part < len(dsts); part++ {
		if err := os.WriteFile(dsts[part], nil, 0o644); err != nil {
			return nil, fmt.Errorf("split by traveler: %w", err)
		}
	}
	return counts, nil
}

// Concat appends srcs, in order, into dst.
func Concat(dst string, srcs []string) (int, error) {
	w, err := Create(dst)
	if err != nil {
		return 0, fmt.Errorf("concat: %w", err)
	}
	for _, src := range srcs {
		if err := copyStops(w, src); err != nil {
			_ = w.Close()
			return 0, fmt.Errorf("concat: %w", err)
		}
	}
	n := w.Count()
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("concat: %w", err)
	}
	return n, nil
}

func copyStops(w *Writer, src string) error {
	r, err := Open(src)
	if err != nil {
		return err
	}
	defer r.Close()
	for {
		s, err := r.NextStop()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := w.WriteStop(s); err != nil {
			return err
		}
	}
}

// Map streams src through fn into dst. fn may mutate the stop in place.
func Map(src, dst string, fn func(*domain.Stop) error) (int, error) {
	r, err := Open(src)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	w, err := Create(dst)
	if err != nil {
		return 0, err
	}
	for {
		s, err := r.NextStop()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = w.Close()
			return 0, err
		}
		if err := fn(&s); err != nil {
			_ = w.Close()
			return 0, err
		}
		if err := w.WriteStop(s); err != nil {
			_ = w.Close()
			return 0, err
		}
	}
	n := w.Count()
	return n, w.Close()
}

package stopfile

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"tour-synthesis-service/internal/domain"
)

// DefaultChunkSize bounds how many stops are held in memory per sort run.
const DefaultChunkSize = 250_000

// Compare orders two stops; it returns <0, 0 or >0 like cmp.Compare.
type Compare func(a, b domain.Stop) int

// SortOptions controls the external merge sort.
type SortOptions struct {
	ChunkSize int
	TempDir   string
}

// SortFile sorts the node records in src into dst using bounded memory:
// chunks are sorted in memory into run files and then k-way merged. The sort
// is stable. src and dst may be the same path.
func SortFile(ctx context.Context, src, dst string, cmp Compare, opts SortOptions) (int, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.TempDir == "" {
		opts.TempDir = filepath.Dir(dst)
	}

	runs, total, err := writeRuns(ctx, src, cmp, opts)
	defer func() {
		for _, r := range runs {
			_ = os.Remove(r)
		}
	}()
	if err != nil {
		return 0, fmt.Errorf("sort %q: %w", src, err)
	}

	switch len(runs) {
	case 0:
		if err := WriteStops(dst, nil); err != nil {
			return 0, fmt.Errorf("sort %q: %w", src, err)
		}
		return 0, nil
	case 1:
		if err := os.Rename(runs[0], dst); err != nil {
			return 0, fmt.Errorf("sort %q: rename run: %w", src, err)
		}
		runs = nil
		return total, nil
	}

	if err := mergeRuns(ctx, runs, dst, cmp); err != nil {
		return 0, fmt.Errorf("sort %q: %w", src, err)
	}
	return total, nil
}

func writeRuns(ctx context.Context, src string, cmp Compare, opts SortOptions) ([]string, int, error) {
	r, err := Open(src)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	var runs []string
	total := 0
	chunk := make([]domain.Stop, 0, min(opts.ChunkSize, 4096))

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		slices.SortStableFunc(chunk, cmp)
		f, err := os.CreateTemp(opts.TempDir, filepath.Base(src)+".run-*")
		if err != nil {
			return fmt.Errorf("create run file: %w", err)
		}
		path := f.Name()
		_ = f.Close()
		runs = append(runs, path)
		if err := WriteStops(path, chunk); err != nil {
			return err
		}
		chunk = chunk[:0]
		return nil
	}

	for {
		s, err := r.NextStop()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return runs, 0, err
		}
		chunk = append(chunk, s)
		total++
		if len(chunk) >= opts.ChunkSize {
			if err := ctx.Err(); err != nil {
				return runs, 0, err
			}
			if err := flush(); err != nil {
				return runs, 0, err
			}
		}
	}
	if err := flush(); err != nil {
		return runs, 0, err
	}
	return runs, total, nil
}

type runHead struct {
	stop domain.Stop
	run  int
}

type runHeap struct {
	heads []runHead
	cmp   Compare
}

func (h *runHeap) Len() int { return len(h.heads) }
func (h *runHeap) Less(i, j int) bool {
	if c := h.cmp(h.heads[i].stop, h.heads[j].stop); c != 0 {
		return c < 0
	}
	// Earlier runs hold earlier input records.
	return h.heads[i].run < h.heads[j].run
}
func (h *runHeap) Swap(i, j int) { h.heads[i], h.heads[j] = h.heads[j], h.heads[i] }
func (h *runHeap) Push(x any)    { h.heads = append(h.heads, x.(runHead)) }
func (h *runHeap) Pop() any {
	old := h.heads
	n := len(old)
	v := old[n-1]
	h.heads = old[:n-1]
	return v
}

func mergeRuns(ctx context.Context, runs []string, dst string, cmp Compare) error {
	readers := make([]*Reader, len(runs))
	defer func() {
		for _, r := range readers {
			if r != nil {
				_ = r.Close()
			}
		}
	}()

	h := &runHeap{cmp: cmp}
	for i, path := range runs {
		r, err := Open(path)
		if err != nil {
			return err
		}
		readers[i] = r
		s, err := r.NextStop()
		if errors.Is(err, io.EOF) {
			continue
		}
		if err != nil {
			return err
		}
		h.heads = append(h.heads, runHead{stop: s, run: i})
	}
	heap.Init(h)

	w, err := Create(dst)
	if err != nil {
		return err
	}
	for h.Len() > 0 {
		head := heap.Pop(h).(runHead)
		if err := w.WriteStop(head.stop); err != nil {
			_ = w.Close()
			return err
		}
		if w.Count()%DefaultChunkSize == 0 {
			if err := ctx.Err(); err != nil {
				_ = w.Close()
				return err
			}
		}
		s, err := readers[head.run].NextStop()
		if errors.Is(err, io.EOF) {
			continue
		}
		if err != nil {
			_ = w.Close()
			return err
		}
		heap.Push(h, runHead{stop: s, run: head.run})
	}
	return w.Close()
}

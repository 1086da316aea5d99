package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-synthesis-service/internal/adapters/catalog"
	"tour-synthesis-service/internal/adapters/geography"
	"tour-synthesis-service/internal/adapters/stopfile"
	"tour-synthesis-service/internal/domain"
	"tour-synthesis-service/internal/ports"
)

func TestPlanPartitions(t *testing.T) {
	tests := []struct {
		travelers, target int
		count, perPart    int
	}{
		{10_050, 5_000, 3, 3_350},
		{5_000, 5_000, 1, 5_000},
		{5_001, 5_000, 2, 2_501},
		{10, 1_000, 1, 10},
		{0, 1_000, 1, 1},
	}
	for _, tt := range tests {
		got := PlanPartitions(tt.travelers, tt.target)
		if got.Count != tt.count || got.PerPart != tt.perPart {
			t.Fatalf("PlanPartitions(%d, %d) = %+v, want count %d per part %d", tt.travelers, tt.target, got, tt.count, tt.perPart)
		}
	}
}

func TestTargetPartitionSize(t *testing.T) {
	if got := TargetPartitionSize([]int{9_000, 100, 5_000}, 1_000); got != 5_000 {
		t.Fatalf("median = %d, want 5000", got)
	}
	if got := TargetPartitionSize([]int{10, 20, 30, 40}, 1_000); got != 1_000 {
		t.Fatalf("floored median = %d, want 1000", got)
	}
	if got := TargetPartitionSize(nil, 0); got != DefaultPartitionFloor {
		t.Fatalf("empty = %d, want %d", got, DefaultPartitionFloor)
	}
}

func TestPartitionsKeepTravelersWhole(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "expanded.csv")

	var stops []domain.Stop
	for row := int64(1); row <= 10_050; row++ {
		stops = append(stops,
			domain.Stop{Type: domain.StopHome, Next: domain.StopOther, RowID: row, Segment: 0},
			domain.Stop{Type: domain.StopOther, Prev: domain.StopHome, RowID: row, Segment: 1},
		)
	}
	require.NoError(t, stopfile.WriteStops(src, stops))

	plan := PlanPartitions(10_050, 5_000)
	require.Equal(t, 3, plan.Count)

	paths := make([]string, plan.Count)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("part-%d.csv", i))
	}
	counts, err := stopfile.SplitByTraveler(src, paths, plan.PerPart)
	require.NoError(t, err)
	assert.Equal(t, []int{3_350, 3_350, 3_350}, counts)

	owner := make(map[int64]int)
	for i, p := range paths {
		part, err := stopfile.ReadStops(p)
		require.NoError(t, err)
		for _, s := range part {
			if prev, ok := owner[s.RowID]; ok && prev != i {
				t.Fatalf("row %d split across partitions %d and %d", s.RowID, prev, i)
			}
			owner[s.RowID] = i
		}
	}
	assert.Len(t, owner, 10_050)
}

func TestRebuildPropagation(t *testing.T) {
	located := func(typ, prev, next domain.StopType, seg int) domain.Stop {
		s := domain.Stop{Type: typ, Prev: prev, Next: next, Segment: seg, RowID: 1}
		s.Anchor(workOrigin)
		s.Locate(domain.Location{Name: fmt.Sprintf("P%d", seg), County: testCounty})
		return s
	}
	blank := func(prev, next domain.StopType, seg int) domain.Stop {
		return domain.Stop{Type: domain.StopOther, Prev: prev, Next: next, Segment: seg, RowID: 1}
	}
	H, O := domain.StopHome, domain.StopOther

	t.Run("next stop is not other", func(t *testing.T) {
		stops := []domain.Stop{located(H, 0, O, 0), located(O, H, O, 1), blank(O, H, 2), located(H, O, 0, 3)}
		if n := Rebuild(stops, 1); n != 1 {
			t.Fatalf("propagated = %d, want 1", n)
		}
		if !stops[2].Anchored || stops[2].Origin.Name != "P1" {
			t.Fatalf("expected origin P1, got %+v", stops[2].Origin)
		}
	})

	t.Run("pass one holds back a stop followed by other", func(t *testing.T) {
		stops := []domain.Stop{located(H, 0, O, 0), located(O, H, O, 1), blank(O, O, 2), blank(O, H, 3)}
		if n := Rebuild(stops, 1); n != 0 {
			t.Fatalf("pass 1 propagated = %d, want 0", n)
		}
		if n := Rebuild(stops, 2); n != 1 {
			t.Fatalf("pass 2 propagated = %d, want 1", n)
		}
		if stops[3].Anchored {
			t.Fatalf("stop behind an unlocated predecessor must stay blank")
		}
	})

	t.Run("gap in segments", func(t *testing.T) {
		stops := []domain.Stop{located(H, 0, O, 0), blank(O, H, 2)}
		if n := Rebuild(stops, 2); n != 0 {
			t.Fatalf("propagated = %d, want 0", n)
		}
	})
}

// Writes the carried traveler file and expanded stop file for patterns.
func writeGeography(t *testing.T, dir string, patterns []int) GeographyJob {
	t.Helper()
	e := NewTourExpander(geography.NewMockIndex(nil))

	job := GeographyJob{
		State:         testState,
		Geography:     testCounty,
		StopsPath:     filepath.Join(dir, "expanded.csv"),
		TravelersPath: filepath.Join(dir, "travelers.csv"),
		Travelers:     len(patterns),
		WorkDir:       dir,
		OutputPath:    filepath.Join(dir, "out", "tours.csv"),
	}
	sw, err := stopfile.Create(job.StopsPath)
	require.NoError(t, err)
	tw, err := stopfile.Create(job.TravelersPath)
	require.NoError(t, err)
	for i, code := range patterns {
		tr := testTraveler(int64(i+1), code)
		stops, err := e.Expand(tr)
		require.NoError(t, err)
		require.NoError(t, tw.WriteTraveler(tr))
		for _, s := range stops {
			require.NoError(t, sw.WriteStop(s))
		}
	}
	require.NoError(t, sw.Close())
	require.NoError(t, tw.Close())
	return job
}

func TestBatchCoordinatorResolvesChainsInTwoPasses(t *testing.T) {
	dir := t.TempDir()
	// Others behind a fixed stop: 1+1+1+2 per cycle; behind another Other: 0+1+1+0.
	cycle := []int{6, 4, 7, 13, 0, 1}
	job := writeGeography(t, dir, append(append([]int{}, cycle...), cycle...))
	job.Target = 5

	src := catalog.NewMemoryPlaceSource(testPlaces())
	c := NewBatchCoordinator(src, geography.NewMockIndex(nil), CoordinatorOptions{Workers: 2, Seed: 11, SortChunk: 4})

	res, err := c.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Partitions)
	assert.Equal(t, 12, res.Tours)
	require.Len(t, res.Passes, MaxPasses)

	assert.Equal(t, 10, res.Passes[0].Ready)
	assert.Equal(t, 10, res.Passes[0].Resolved)
	assert.Equal(t, 4, res.Passes[0].Propagated)

	assert.Equal(t, 4, res.Passes[1].Ready)
	assert.Equal(t, 4, res.Passes[1].Resolved)
	assert.Equal(t, 0, res.Passes[1].Propagated)

	assert.Equal(t, 14, res.Resolved)
	assert.Equal(t, 0, res.Unresolved)
	assert.Equal(t, 0, res.MissingGeo)
	assert.Equal(t, 0, res.Stalled)

	r, err := stopfile.Open(job.OutputPath)
	require.NoError(t, err)
	defer r.Close()
	tours := 0
	for {
		rec, err := r.NextRecord()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.Len(t, rec, stopfile.TourFields)
		for slot := range domain.SegmentSlots {
			f := rec[12+slot*8:]
			if f[0] != domain.StopEmpty.Code() {
				assert.NotEmpty(t, f[3], "tour %d slot %d has blank geography", tours, slot)
			}
		}
		tours++
	}
	assert.Equal(t, 12, tours)
}

func TestBatchCoordinatorLeavesMissingGeographyBlank(t *testing.T) {
	dir := t.TempDir()
	job := writeGeography(t, dir, []int{6, 4})
	job.Target = 10

	c := NewBatchCoordinator(catalog.NewMemoryPlaceSource(nil), geography.NewMockIndex(nil), CoordinatorOptions{Workers: 1})
	res, err := c.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Tours)
	assert.Equal(t, 0, res.Resolved)
	assert.Equal(t, 3, res.Unresolved)
	assert.Equal(t, 2, res.MissingGeo)

	require.Len(t, res.Passes, MaxPasses)
	for _, ps := range res.Passes {
		assert.Equal(t, 2, ps.Ready, "pass %d", ps.Pass)
		assert.Zero(t, ps.Resolved, "pass %d", ps.Pass)
		assert.Zero(t, ps.Propagated, "pass %d", ps.Pass)
	}
	assert.Equal(t, MaxPasses, res.Stalled)
}

func TestBatchCoordinatorRemovesPartitionsWhenSplitFails(t *testing.T) {
	dir := t.TempDir()
	job := writeGeography(t, dir, []int{1, 1, 1})
	job.Target = 1

	// Row 1 reappears after row 2, so the split fails after writing two partitions.
	stops, err := stopfile.ReadStops(job.StopsPath)
	require.NoError(t, err)
	var rows1, rows2 []domain.Stop
	for _, s := range stops {
		switch s.RowID {
		case 1:
			rows1 = append(rows1, s)
		case 2:
			rows2 = append(rows2, s)
		}
	}
	unsorted := append(append(append([]domain.Stop{}, rows1...), rows2...), rows1...)
	require.NoError(t, stopfile.WriteStops(job.StopsPath, unsorted))

	c := NewBatchCoordinator(catalog.NewMemoryPlaceSource(testPlaces()), geography.NewMockIndex(nil), CoordinatorOptions{Workers: 1})
	_, err = c.Run(context.Background(), job)
	require.ErrorIs(t, err, stopfile.ErrUnsorted)

	left, err := filepath.Glob(filepath.Join(dir, "part-*"))
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestBatchCoordinatorReportsPartitionFailure(t *testing.T) {
	dir := t.TempDir()
	job := writeGeography(t, dir, []int{6, 4, 7})
	job.Target = 1

	var src ports.PlaceSource = &flakyPlaceSource{PlaceSource: catalog.NewMemoryPlaceSource(testPlaces()), fails: 100}
	c := NewBatchCoordinator(src, geography.NewMockIndex(nil), CoordinatorOptions{Workers: 3})

	_, err := c.Run(context.Background(), job)
	var pf *domain.PartitionFailure
	require.True(t, errors.As(err, &pf), "got %v", err)
	assert.Equal(t, "resolve", pf.Stage)
	assert.Equal(t, 1, pf.Unit.Pass)
	assert.FileExists(t, job.StopsPath)
	assert.NoFileExists(t, job.OutputPath)
}

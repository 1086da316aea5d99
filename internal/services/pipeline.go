package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tour-synthesis-service/internal/adapters/stopfile"
	"tour-synthesis-service/internal/domain"
	"tour-synthesis-service/internal/platform/obs"
	"tour-synthesis-service/internal/ports"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

type PipelineConfig struct {
	InputDir       string
	WorkDir        string
	OutputDir      string
	States         []string
	PartitionFloor int
	Retries        int
	Workers        int
}

// GeographyInput is one upstream traveler file, INPUT_DIR/<state>/<geography>.csv.
type GeographyInput struct {
	State     string
	Geography string
	Path      string
}

type ExpandStats struct {
	Travelers     int
	Stops         int
	International int
}

// RunSummary totals a pipeline run. Failed lists "state/geography" keys.
type RunSummary struct {
	RunID       string
	Geographies int
	Failed      []string
	Tours       int
	Resolved    int
	Unresolved  int
}

// Pipeline expands every discovered geography, runs it through the
// coordinator with whole-geography retries and records each attempt.
type Pipeline struct {
	cfg         PipelineConfig
	expander    *TourExpander
	coordinator *BatchCoordinator
	ledger      ports.RunLedger
}

func NewPipeline(cfg PipelineConfig, expander *TourExpander, coordinator *BatchCoordinator, ledger ports.RunLedger) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Pipeline{cfg: cfg, expander: expander, coordinator: coordinator, ledger: ledger}
}

type expanded struct {
	in    GeographyInput
	stats ExpandStats
	err   error
}

// Run processes every geography under the input directory. A failing
// geography is logged and recorded; the others still complete. The returned
// error is non-nil only when ctx is cancelled or discovery fails.
func (p *Pipeline) Run(ctx context.Context, runID string) (sum RunSummary, err error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	sum.RunID = runID
	ctx = obs.WithRun(ctx, runID)
	defer obs.Time(ctx, "pipeline.run")(&err)

	inputs, err := DiscoverInputs(p.cfg.InputDir, p.cfg.States)
	if err != nil {
		return sum, err
	}
	sum.Geographies = len(inputs)
	log.Printf("run_id=%s geographies=%d", runID, len(inputs))

	results := p.expandAll(ctx, inputs)
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	var counts []int
	for _, r := range results {
		if r.err == nil {
			counts = append(counts, r.stats.Travelers)
		}
	}
	target := TargetPartitionSize(counts, p.cfg.PartitionFloor)
	log.Printf("run_id=%s partition_target=%d", runID, target)

	for _, r := range results {
		key := r.in.State + "/" + r.in.Geography
		if r.err != nil {
			log.Printf("state=%s geo=%s expand failed: %v", r.in.State, r.in.Geography, r.err)
			p.record(ctx, ports.RunRecord{RunID: runID, State: r.in.State, Geography: r.in.Geography,
				Attempt: 1, Status: StatusFailed, Error: r.err.Error()})
			sum.Failed = append(sum.Failed, key)
			continue
		}

		res, err := p.runGeography(ctx, runID, r, target)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			sum.Failed = append(sum.Failed, key)
			continue
		}
		sum.Tours += res.Tours
		sum.Resolved += res.Resolved
		sum.Unresolved += res.Unresolved
	}
	return sum, nil
}

func (p *Pipeline) expandAll(ctx context.Context, inputs []GeographyInput) []expanded {
	results := make([]expanded, len(inputs))
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, in := range inputs {
		g.Go(func() error {
			results[i].in = in
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			dir := p.geoWorkDir(in)
			results[i].stats, results[i].err = p.Expand(ctx, in.Path,
				filepath.Join(dir, "expanded.csv"), filepath.Join(dir, "travelers.csv"))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runGeography retries the whole pass sequence after a partition failure.
func (p *Pipeline) runGeography(ctx context.Context, runID string, r expanded, target int) (GeographyResult, error) {
	dir := p.geoWorkDir(r.in)
	job := GeographyJob{
		State:         r.in.State,
		Geography:     r.in.Geography,
		StopsPath:     filepath.Join(dir, "expanded.csv"),
		TravelersPath: filepath.Join(dir, "travelers.csv"),
		Travelers:     r.stats.Travelers,
		Target:        target,
		WorkDir:       dir,
		OutputPath:    filepath.Join(p.cfg.OutputDir, r.in.State, r.in.Geography+".tours.csv"),
	}
	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		return GeographyResult{}, fmt.Errorf("run geography %s/%s: %w", r.in.State, r.in.Geography, err)
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.Retries+1; attempt++ {
		start := time.Now()
		res, err := p.coordinator.Run(ctx, job)

		rec := ports.RunRecord{
			RunID:      runID,
			State:      r.in.State,
			Geography:  r.in.Geography,
			Attempt:    attempt,
			Status:     StatusOK,
			Partitions: res.Partitions,
			Travelers:  r.stats.Travelers,
			Resolved:   res.Resolved,
			Unresolved: res.Unresolved,
			MissingGeo: res.MissingGeo,
			Duration:   time.Since(start),
		}
		if err != nil {
			rec.Status = StatusFailed
			rec.Error = err.Error()
		}
		p.record(ctx, rec)

		if err == nil {
			log.Printf("state=%s geo=%s attempt=%d tours=%d resolved=%d unresolved=%d missing_geo=%d",
				r.in.State, r.in.Geography, attempt, res.Tours, res.Resolved, res.Unresolved, res.MissingGeo)
			_ = os.RemoveAll(dir)
			return res, nil
		}

		lastErr = err
		log.Printf("state=%s geo=%s attempt=%d failed: %v", r.in.State, r.in.Geography, attempt, err)

		var pf *domain.PartitionFailure
		if !errors.As(err, &pf) || ctx.Err() != nil {
			break
		}
	}
	return GeographyResult{}, lastErr
}

func (p *Pipeline) record(ctx context.Context, rec ports.RunRecord) {
	if p.ledger == nil {
		return
	}
	rec.CompletedAt = time.Now().UTC()
	if err := p.ledger.RecordRun(ctx, rec); err != nil {
		log.Printf("run_id=%s state=%s geo=%s record run: %v", rec.RunID, rec.State, rec.Geography, err)
	}
}

func (p *Pipeline) geoWorkDir(in GeographyInput) string {
	return filepath.Join(p.cfg.WorkDir, in.State, in.Geography)
}

// Expand reads upstream traveler records from inPath and writes the carried
// traveler file and the expanded stop file, both in row order. An unknown
// pattern code or a malformed record aborts the file.
func (p *Pipeline) Expand(ctx context.Context, inPath, stopsPath, travelersPath string) (stats ExpandStats, err error) {
	defer obs.Time(ctx, "expand")(&err)

	r, err := stopfile.Open(inPath)
	if err != nil {
		return stats, fmt.Errorf("expand: %w", err)
	}
	defer r.Close()

	sw, err := stopfile.Create(stopsPath)
	if err != nil {
		return stats, fmt.Errorf("expand: %w", err)
	}
	tw, err := stopfile.Create(travelersPath)
	if err != nil {
		_ = sw.Close()
		return stats, fmt.Errorf("expand: %w", err)
	}
	defer func() {
		for _, w := range []*stopfile.Writer{sw, tw} {
			if cerr := w.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("expand: %w", cerr)
			}
		}
	}()

	for {
		t, err := r.NextTravelerInput()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("expand: %w", err)
		}

		stops, err := p.expander.Expand(t)
		if err != nil {
			return stats, fmt.Errorf("expand: %s row %d: %w", inPath, t.RowID, err)
		}
		if err := tw.WriteTraveler(t); err != nil {
			return stats, fmt.Errorf("expand: %w", err)
		}
		for _, s := range stops {
			if err := sw.WriteStop(s); err != nil {
				return stats, fmt.Errorf("expand: %w", err)
			}
		}
		stats.Travelers++
		stats.Stops += len(stops)
		if len(stops) == 1 && stops[0].Destination.International() {
			stats.International++
		}
	}
}

// DiscoverInputs lists INPUT_DIR/<state>/<geography>.csv files, optionally
// limited to states, sorted by state then geography.
func DiscoverInputs(dir string, states []string) ([]GeographyInput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("discover inputs: %w", err)
	}

	var out []GeographyInput
	for _, e := range entries {
		if !e.IsDir() || (len(states) > 0 && !slices.Contains(states, e.Name())) {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("discover inputs: %w", err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".csv") {
				continue
			}
			out = append(out, GeographyInput{
				State:     e.Name(),
				Geography: strings.TrimSuffix(f.Name(), ".csv"),
				Path:      filepath.Join(dir, e.Name(), f.Name()),
			})
		}
	}
	slices.SortFunc(out, func(a, b GeographyInput) int {
		if c := strings.Compare(a.State, b.State); c != 0 {
			return c
		}
		return strings.Compare(a.Geography, b.Geography)
	})
	return out, nil
}

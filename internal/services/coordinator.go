package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tour-synthesis-service/internal/adapters/stopfile"
	"tour-synthesis-service/internal/domain"
	"tour-synthesis-service/internal/platform/obs"
	"tour-synthesis-service/internal/ports"
)

// Two passes suffice: no activity pattern has more than two consecutive Other stops.
const MaxPasses = 2

type CoordinatorOptions struct {
	Workers   int
	Seed      uint64
	SortChunk int
	Commuter  []string
}

// PassStats totals one pass over every partition of a geography.
type PassStats struct {
	Pass       int
	Ready      int
	Resolved   int
	Missing    int
	Propagated int
}

func (p *PassStats) add(o PassStats) {
	p.Ready += o.Ready
	p.Resolved += o.Resolved
	p.Missing += o.Missing
	p.Propagated += o.Propagated
}

// GeographyJob describes one expanded geography. StopsPath must be sorted by
// (row, segment) and is left untouched so a failed run can start over.
type GeographyJob struct {
	State         string
	Geography     string
	StopsPath     string
	TravelersPath string
	Travelers     int
	Target        int
	WorkDir       string
	OutputPath    string
}

// GeographyResult summarises a completed geography. MissingGeo counts the
// stops left blank in the final pass because their county has no catalog.
// Stalled counts passes that had ready stops but resolved and propagated none.
type GeographyResult struct {
	Partitions int
	Tours      int
	Passes     []PassStats
	Resolved   int
	Unresolved int
	MissingGeo int
	Stalled    int
}

// BatchCoordinator runs the sort -> resolve -> rebuild passes for a geography
// over concurrent work units and assembles the result.
type BatchCoordinator struct {
	src       ports.PlaceSource
	geo       ports.GeographyIndex
	opts      CoordinatorOptions
	assembler *TourAssembler
}

func NewBatchCoordinator(src ports.PlaceSource, geo ports.GeographyIndex, opts CoordinatorOptions) *BatchCoordinator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.SortChunk < 1 {
		opts.SortChunk = stopfile.DefaultChunkSize
	}
	return &BatchCoordinator{src: src, geo: geo, opts: opts, assembler: NewTourAssembler()}
}

// Run processes job through MaxPasses passes and writes its tour file.
// A worker failure aborts the remaining stages and is returned as a
// *domain.PartitionFailure.
func (c *BatchCoordinator) Run(ctx context.Context, job GeographyJob) (res GeographyResult, err error) {
	ctx = obs.WithGeography(ctx, job.State+"/"+job.Geography)
	defer obs.Time(ctx, "coordinator.run")(&err)

	ctx, span := obs.Tracer().Start(ctx, "geography", trace.WithAttributes(
		attribute.String("state", job.State),
		attribute.String("geography", job.Geography),
		attribute.Int("travelers", job.Travelers),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	units := planUnits(job)
	defer func() {
		for _, u := range units {
			_ = os.Remove(u.Path)
		}
	}()
	if err := c.split(job, units); err != nil {
		return res, err
	}
	res.Partitions = len(units)
	span.SetAttributes(attribute.Int("partitions", len(units)))

	for pass := 1; pass <= MaxPasses; pass++ {
		for i := range units {
			units[i].Pass = pass
		}
		ps, err := c.runPass(ctx, units)
		if err != nil {
			return res, err
		}
		res.Passes = append(res.Passes, ps)
		res.MissingGeo = ps.Missing

		log.Printf("state=%s geo=%s pass=%d partitions=%d ready=%d resolved=%d missing_geo=%d propagated=%d",
			job.State, job.Geography, pass, len(units), ps.Ready, ps.Resolved, ps.Missing, ps.Propagated)
		if ps.Resolved == 0 && ps.Propagated == 0 && ps.Ready > 0 {
			res.Stalled++
			log.Printf("state=%s geo=%s pass=%d no progress", job.State, job.Geography, pass)
		}
	}

	final := filepath.Join(job.WorkDir, "final.csv")
	paths := make([]string, len(units))
	for i, u := range units {
		paths[i] = u.Path
	}
	if _, err := stopfile.Concat(final, paths); err != nil {
		return res, err
	}
	defer os.Remove(final)

	stats, err := c.assembler.AssembleFiles(ctx, job.TravelersPath, final, job.OutputPath)
	if err != nil {
		return res, err
	}
	res.Tours = stats.Tours
	res.Resolved = stats.Located
	res.Unresolved = stats.Unlocated
	return res, nil
}

// planUnits names one work unit per planned partition of job.
func planUnits(job GeographyJob) []domain.WorkUnit {
	plan := PlanPartitions(job.Travelers, job.Target)
	units := make([]domain.WorkUnit, plan.Count)
	for i := range units {
		units[i] = domain.WorkUnit{
			State:     job.State,
			Geography: job.Geography,
			Partition: i,
			Path:      filepath.Join(job.WorkDir, fmt.Sprintf("part-%03d.csv", i)),
		}
	}
	return units
}

// Split the expanded stops into the whole-traveler partitions of units.
func (c *BatchCoordinator) split(job GeographyJob, units []domain.WorkUnit) error {
	paths := make([]string, len(units))
	for i, u := range units {
		paths[i] = u.Path
	}
	perPart := PlanPartitions(job.Travelers, job.Target).PerPart

	counts, err := stopfile.SplitByTraveler(job.StopsPath, paths, perPart)
	if err != nil {
		return fmt.Errorf("split %s/%s: %w", job.State, job.Geography, err)
	}
	for i := range units {
		units[i].Travelers = counts[i]
	}
	return nil
}

// runPass resolves every unit, waits for all of them, then rebuilds every unit.
func (c *BatchCoordinator) runPass(ctx context.Context, units []domain.WorkUnit) (PassStats, error) {
	total := PassStats{Pass: units[0].Pass}
	var mu sync.Mutex

	stage := func(name string, fn func(context.Context, domain.WorkUnit) (PassStats, error)) error {
		sctx, span := obs.Tracer().Start(ctx, "pass."+name, trace.WithAttributes(
			attribute.Int("pass", total.Pass),
			attribute.Int("partitions", len(units)),
		))
		defer span.End()

		g, gctx := errgroup.WithContext(sctx)
		g.SetLimit(c.opts.Workers)
		for _, u := range units {
			g.Go(func() error {
				st, err := fn(gctx, u)
				if err != nil {
					return &domain.PartitionFailure{Unit: u, Stage: name, Err: err}
				}
				mu.Lock()
				total.add(st)
				mu.Unlock()
				return nil
			})
		}
		return g.Wait()
	}

	if err := stage("resolve", c.resolveUnit); err != nil {
		return total, err
	}
	if err := stage("rebuild", c.rebuildUnit); err != nil {
		return total, err
	}
	return total, nil
}

// resolveUnit sorts a partition by sampling context and resolves its ready
// Other stops with a cache owned by this call.
func (c *BatchCoordinator) resolveUnit(ctx context.Context, u domain.WorkUnit) (st PassStats, err error) {
	sortOpts := stopfile.SortOptions{ChunkSize: c.opts.SortChunk}
	if _, err := stopfile.SortFile(ctx, u.Path, u.Path, ContextOrder, sortOpts); err != nil {
		return st, err
	}

	cache := NewDistributionCache(c.src, c.geo, rand.New(rand.NewPCG(c.opts.Seed, unitStream(u))), c.opts.Commuter)
	resolver := NewStopResolver(u.State, cache)
	missing := make(map[string]bool)

	out := u.Path + ".resolved"
	_, err = stopfile.Map(u.Path, out, func(s *domain.Stop) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Ready() {
			st.Ready++
		}
		ok, err := resolver.Resolve(ctx, s)
		if errors.Is(err, domain.ErrMissingGeography) {
			st.Missing++
			if !missing[s.Origin.County] {
				missing[s.Origin.County] = true
				log.Printf("unit=%s county=%s missing geography, leaving stops unresolved", u, s.Origin.County)
			}
			return nil
		}
		if err != nil {
			return err
		}
		if ok {
			st.Resolved++
		}
		return nil
	})
	if err != nil {
		_ = os.Remove(out)
		return st, err
	}
	if err := os.Rename(out, u.Path); err != nil {
		return st, err
	}

	log.Printf("unit=%s travelers=%d resolved=%d catalog_loads=%d rebuilds=%d hits=%d uniform=%d",
		u, u.Travelers, st.Resolved, cache.Stats.CatalogLoads, cache.Stats.Rebuilds, cache.Stats.Hits, cache.Stats.Uniform)
	return st, nil
}

// rebuildUnit restores (row, segment) order and propagates located
// predecessors into their dependent Other stops.
func (c *BatchCoordinator) rebuildUnit(ctx context.Context, u domain.WorkUnit) (st PassStats, err error) {
	sortOpts := stopfile.SortOptions{ChunkSize: c.opts.SortChunk}
	if _, err := stopfile.SortFile(ctx, u.Path, u.Path, TravelerOrder, sortOpts); err != nil {
		return st, err
	}

	out := u.Path + ".rebuilt"
	n, err := rebuildFile(u.Path, out, u.Pass)
	if err != nil {
		_ = os.Remove(out)
		return st, err
	}
	if err := os.Rename(out, u.Path); err != nil {
		return st, err
	}
	st.Propagated = n
	return st, nil
}

// Per-unit random stream so partitions draw independently but reproducibly.
func unitStream(u domain.WorkUnit) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(u.String()))
	return h.Sum64()
}

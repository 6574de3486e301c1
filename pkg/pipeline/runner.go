package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/panpart/pkg/cache"
	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/nem"
	"github.com/matzehuels/panpart/pkg/observability"
	"github.com/matzehuels/panpart/pkg/pangenome"
	"github.com/matzehuels/panpart/pkg/partition"
)

// Runner encapsulates partition runs with caching.
//
// The Runner is stateless except for the cache, solver and logger. It
// doesn't store run results. Multiple goroutines can safely use the same
// Runner with different options, as long as at most one in-place run
// touches a given graph.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Solver nem.Solver
	Logger *log.Logger

	// TTL is the lifetime of cached chunk selections. Zero never expires.
	TTL time.Duration
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// scopes keys to the solver and a nil solver uses the built-in EM solver.
func NewRunner(c cache.Cache, keyer cache.Keyer, solver nem.Solver, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if solver == nil {
		solver = nem.NewEM()
	}
	if keyer == nil {
		keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), solverName(solver)+"/v1:")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Solver: solver,
		Logger: logger,
		TTL:    cache.TTLChunk,
	}
}

// Close releases the cache.
func (r *Runner) Close() error {
	return r.Cache.Close()
}

func solverName(s nem.Solver) string {
	if _, ok := s.(*nem.EM); ok {
		return "em"
	}
	return fmt.Sprintf("%T", s)
}

// Partition classifies the families of g. With InPlace set and StatsOnly
// unset the labels are written onto the graph; otherwise g is only read.
func (r *Runner) Partition(ctx context.Context, g *pangenome.Graph, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := r.logger(opts)
	if !g.Finalized() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "pangenome graph must be finalized before partitioning")
	}

	start := time.Now()
	organisms, err := selectOrganisms(g, opts.Organisms)
	if err != nil {
		return nil, err
	}

	var former *partition.FormerState
	if opts.FormerDir != "" {
		former, err = partition.LoadFormerState(opts.FormerDir)
		if err != nil {
			return nil, err
		}
		if opts.Q > 0 && opts.Q != former.Q() {
			logger.Warn("former state overrides the requested number of partitions",
				"requested", opts.Q, "former", former.Q())
		}
	}

	keep := familyFilter(opts.RemoveHighCopy)
	present := presentFamilies(g, organisms, keep)
	if opts.RemoveHighCopy > 0 {
		logger.Debug("filtered high copy families", "threshold", opts.RemoveHighCopy,
			"kept", len(present))
	}

	chunks, err := partition.Plan(organisms, opts.ChunkSize)
	if err != nil {
		return nil, err
	}

	workdir, owned, err := prepareWorkdir(opts.Workdir)
	if err != nil {
		return nil, err
	}
	result := &Result{Workdir: workdir, Chunks: make([]ChunkReport, len(chunks))}
	defer func() {
		if owned && !opts.KeepTempFiles {
			_ = os.RemoveAll(workdir)
			result.Workdir = ""
		}
	}()

	hooks := observability.Partition()
	hooks.OnPartitionStart(ctx, len(organisms), len(present), len(chunks))

	chunkWorkers, selectWorkers := 1, opts.Workers
	if len(chunks) > 1 {
		chunkWorkers, selectWorkers = opts.Workers, 1
	}

	outcomes := make([]*partition.ChunkResult, len(chunks))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(chunkWorkers)
	for i, c := range chunks {
		dir := workdir
		if len(chunks) > 1 {
			dir = filepath.Join(workdir, fmt.Sprintf("chunk_%d", c.Index))
		}
		job := chunkJob{
			chunk:   c,
			dir:     dir,
			keep:    keep,
			former:  former,
			workers: selectWorkers,
		}
		eg.Go(func() error {
			hooks.OnChunkStart(ectx, c.Index, len(c.Organisms))
			res, report, err := r.runChunk(ectx, g, job, &opts, logger)
			hooks.OnChunkComplete(ectx, c.Index, report.Q, report.Duration, err)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", c.Index, err)
			}
			outcomes[i] = res
			result.Chunks[i] = report
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		hooks.OnPartitionComplete(ctx, 0, time.Since(start), err)
		return nil, err
	}

	tally := partition.NewTally()
	for _, res := range outcomes {
		tally.Add(res)
	}
	labels, stats, err := tally.Assemble(present, len(organisms), opts.SoftCoreThreshold)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "inconsistent partition statistics")
	}
	result.Labels = labels
	result.Stats = stats

	if opts.InPlace && !opts.StatsOnly {
		g.ApplyLabels(labels, stats.Q)
	}

	result.Duration = time.Since(start)
	hooks.OnPartitionComplete(ctx, stats.Q, result.Duration, nil)
	logger.Info("partitioned pangenome",
		"organisms", len(organisms),
		"families", len(present),
		"chunks", len(chunks),
		"q", stats.Q,
		"persistent", stats.Persistent,
		"shell", stats.Shell,
		"cloud", stats.Cloud,
		"undefined", stats.Undefined,
		"duration", result.Duration)
	return result, nil
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}

func selectOrganisms(g *pangenome.Graph, ids []string) ([]string, error) {
	if len(ids) == 0 {
		ids = g.OrganismIDs()
	}
	if len(ids) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "pangenome has no organisms")
	}
	for _, id := range ids {
		if g.Organism(id) == nil {
			return nil, errors.Configuration("unknown organism %q", id)
		}
	}
	return ids, nil
}

// familyFilter drops families with threshold or more copies in some
// organism. A threshold of 0 keeps every family.
func familyFilter(threshold int) func(*pangenome.Family) bool {
	if threshold <= 0 {
		return nil
	}
	return func(f *pangenome.Family) bool { return f.MaxCopies() < threshold }
}

// presentFamilies counts, for every kept family, the selected organisms
// carrying it. Families absent from the selection are left out.
func presentFamilies(g *pangenome.Graph, ids []string, keep func(*pangenome.Family) bool) map[string]int {
	orgs := make([]*pangenome.Organism, len(ids))
	for i, id := range ids {
		orgs[i] = g.Organism(id)
	}
	present := make(map[string]int)
	for _, f := range g.Families() {
		if keep != nil && !keep(f) {
			continue
		}
		n := 0
		for _, o := range orgs {
			if f.Count(o) > 0 {
				n++
			}
		}
		if n > 0 {
			present[f.ID] = n
		}
	}
	return present
}

// prepareWorkdir creates the working directory. owned reports whether the
// directory is a fresh temporary one that the run may remove.
func prepareWorkdir(dir string) (string, bool, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", false, errors.Wrap(errors.ErrCodeInvalidPath, err, "create working directory")
		}
		return dir, false, nil
	}
	tmp, err := os.MkdirTemp("", "panpart-"+uuid.NewString()[:8]+"-")
	if err != nil {
		return "", false, errors.Wrap(errors.ErrCodeInternal, err, "create temporary directory")
	}
	return tmp, true, nil
}

// =============================================================================
// Chunks
// =============================================================================

type chunkJob struct {
	chunk   partition.Chunk
	dir     string
	keep    func(*pangenome.Family) bool
	former  *partition.FormerState
	workers int
}

// cachedSelection is the cached form of a chunk's model selection. Only
// converged selections are stored.
type cachedSelection struct {
	Q          int                   `json:"q"`
	Scanned    bool                  `json:"scanned"`
	Candidates []partition.Candidate `json:"candidates"`
	Result     *nem.Result           `json:"result"`
}

func (r *Runner) runChunk(ctx context.Context, g *pangenome.Graph, job chunkJob, opts *Options, logger *log.Logger) (*partition.ChunkResult, ChunkReport, error) {
	start := time.Now()
	report := ChunkReport{Index: job.chunk.Index, Organisms: len(job.chunk.Organisms)}

	sub, err := g.Subgraph(job.chunk.Organisms, job.keep)
	if err != nil {
		return nil, report, errors.Wrap(errors.ErrCodeConfiguration, err, "build chunk subgraph")
	}
	report.Families = sub.NumFamilies()

	in := ChunkInput(sub, opts.Beta, opts.MaxDegree, opts.FreeDispersion, ChunkSeed(opts.Seed, job.chunk.Index))
	formerQ := 0
	if job.former != nil {
		formerQ = job.former.Q()
		if p := job.former.ParamsFor(job.chunk.Organisms); p != nil {
			in.Init = p
		} else {
			logger.Debug("former state does not cover chunk, starting from data", "chunk", job.chunk.Index)
		}
	}
	selOpts := opts.SelectOptions(formerQ, job.workers)

	sel, hit, err := r.selectCached(ctx, in, selOpts, opts.Refresh, logger)
	if err != nil {
		return nil, report, err
	}

	ids := make([]string, sub.NumFamilies())
	ratios := make([]float64, sub.NumFamilies())
	for i, f := range sub.Families {
		ids[i] = f.ID
		ratios[i] = sub.Ratio(i)
	}
	votes, ranking, err := partition.Rank(sel.Result, ids, ratios)
	if err != nil {
		return nil, report, errors.Wrap(errors.ErrCodeInternal, err, "rank components")
	}

	if err := writeChunkFiles(job.dir, sub, in, sel, ranking, ids, votes); err != nil {
		return nil, report, errors.Wrap(errors.ErrCodeInternal, err, "write working files")
	}

	res := &partition.ChunkResult{
		Chunk:   job.chunk,
		Q:       sel.Q,
		ICL:     sel.Result.ICL,
		Votes:   votes,
		Ranking: ranking,
	}
	report.Q = sel.Q
	report.ICL = sel.Result.ICL
	report.Scanned = sel.Scanned
	report.Candidates = sel.Candidates
	report.Undefined = res.Undefined()
	report.CacheHit = hit
	report.Duration = time.Since(start)

	if !report.Converged() {
		logger.Warn("partitioning did not converge, families left undefined",
			"chunk", job.chunk.Index, "q", sel.Q, "families", report.Families,
			"code", errors.ErrCodeConvergence)
	}
	logger.Debug("clustered chunk", "chunk", job.chunk.Index, "organisms", report.Organisms,
		"families", report.Families, "q", sel.Q, "cached", hit, "duration", report.Duration)
	return res, report, nil
}

// selectCached runs model selection through the cache.
func (r *Runner) selectCached(ctx context.Context, in nem.Input, opts partition.SelectOptions, refresh bool, logger *log.Logger) (*partition.Selection, bool, error) {
	key, keyErr := r.chunkKey(in, opts)
	hooks := observability.Cache()

	if keyErr == nil && !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var c cachedSelection
			if err := json.Unmarshal(data, &c); err == nil && c.Result != nil && len(c.Result.Labels) == in.NumFamilies() {
				hooks.OnCacheHit(ctx, "chunk")
				return &partition.Selection{
					Q:          c.Q,
					Result:     c.Result,
					Candidates: c.Candidates,
					Scanned:    c.Scanned,
					Results:    map[int]*nem.Result{c.Q: c.Result},
				}, true, nil
			}
		} else if err != nil {
			logger.Debug("cache read failed", "error", err)
		}
		hooks.OnCacheMiss(ctx, "chunk")
	}

	sel, err := partition.NewSelector(r.Solver, logger).Select(ctx, in, opts)
	if err != nil {
		return nil, false, err
	}

	if keyErr == nil && sel.Result.Converged {
		c := cachedSelection{Q: sel.Q, Scanned: sel.Scanned, Result: sel.Result}
		for _, cand := range sel.Candidates {
			if !math.IsNaN(cand.ICL) && !math.IsInf(cand.ICL, 0) {
				c.Candidates = append(c.Candidates, cand)
			}
		}
		if data, err := json.Marshal(c); err == nil {
			if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
				logger.Debug("cache write failed", "error", err)
			} else {
				hooks.OnCacheSet(ctx, "chunk", len(data))
			}
		}
	}
	return sel, false, nil
}

func (r *Runner) chunkKey(in nem.Input, opts partition.SelectOptions) (string, error) {
	inputHash, err := cache.HashJSON(struct {
		Presence  [][]bool
		Neighbors [][]nem.Neighbor
	}{in.Presence, in.Neighbors})
	if err != nil {
		return "", err
	}
	keyOpts := cache.ChunkKeyOpts{
		Solver:         solverName(r.Solver),
		Q:              opts.Q,
		FormerQ:        opts.FormerQ,
		Qmin:           opts.Qmin,
		Qmax:           opts.Qmax,
		Margin:         opts.Margin,
		Beta:           in.Beta,
		MaxDegree:      in.MaxDegree,
		FreeDispersion: in.FreeDispersion,
		Seed:           in.Seed,
	}
	if in.Init != nil {
		if keyOpts.InitHash, err = cache.HashJSON(in.Init); err != nil {
			return "", err
		}
	}
	return r.Keyer.ChunkKey(inputHash, keyOpts), nil
}

// ChunkInput builds the solver input of a subgraph. Neighbor weights are
// the raw co-occurrence counts within the subgraph's organisms.
func ChunkInput(sub *pangenome.Subgraph, beta float64, maxDegree int, free bool, seed uint64) nem.Input {
	neighbors := make([][]nem.Neighbor, sub.NumFamilies())
	for _, e := range sub.Edges {
		neighbors[e.I] = append(neighbors[e.I], nem.Neighbor{Index: e.J, Weight: float64(e.Weight)})
		neighbors[e.J] = append(neighbors[e.J], nem.Neighbor{Index: e.I, Weight: float64(e.Weight)})
	}
	return nem.Input{
		Presence:       sub.Presence(),
		Neighbors:      neighbors,
		Beta:           beta,
		MaxDegree:      maxDegree,
		FreeDispersion: free,
		Seed:           seed,
	}
}

// ChunkSeed derives the solver seed of a chunk from the run seed.
func ChunkSeed(seed uint64, index int) uint64 {
	return seed ^ (uint64(index)+1)*0x9e3779b97f4a7c15
}

func writeChunkFiles(dir string, sub *pangenome.Subgraph, in nem.Input, sel *partition.Selection, ranking []int, ids []string, votes map[string]partition.Vote) error {
	if err := partition.WriteInputFiles(dir, sub, in); err != nil {
		return err
	}
	for q, res := range sel.Results {
		if err := partition.WriteSummary(filepath.Join(dir, fmt.Sprintf("nem_file_%d.mf", q)), res, nil); err != nil {
			return err
		}
	}
	if err := partition.WriteSummary(filepath.Join(dir, "nem_file."+partition.SummarySuffix), sel.Result, ranking); err != nil {
		return err
	}
	return partition.WriteLabels(filepath.Join(dir, partition.LabelsFile), ids, sel.Result, votes)
}

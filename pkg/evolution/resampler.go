// Package evolution computes pangenome evolution curves.
//
// A [Resampler] partitions many random organism subsets of growing size,
// logs the class counts of every subset as soon as it completes, then
// summarizes each class per subset size and fits Heaps' law
// (count = kappa * N^gamma) to the larger subsets.
//
// The run moves through fixed stages: sampling draws the subsets, a
// bounded worker pool partitions them, one collector writes the log,
// and aggregation and fitting follow once every task has finished. A
// failing or panicking task is recorded and does not stop the others.
package evolution

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/observability"
	"github.com/matzehuels/panpart/pkg/pangenome"
	"github.com/matzehuels/panpart/pkg/partition"
	"github.com/matzehuels/panpart/pkg/pipeline"
)

// Partitioner runs one partition call. [pipeline.Runner] implements it.
type Partitioner interface {
	Partition(ctx context.Context, g *pangenome.Graph, opts pipeline.Options) (*pipeline.Result, error)
}

// Config configures an evolution run.
type Config struct {
	// Resampling controls subset drawing and the Q policy.
	Resampling Resampling
	// Partition holds the model options shared by every sample. Its
	// organism selection, in-place flag and worker count are overridden.
	Partition pipeline.Options
	// Workers is the number of samples partitioned concurrently.
	Workers int
	// OutputDir receives the log, summary and fit files.
	OutputDir string
	// Workdir holds the per-sample working directories. Empty uses a
	// fresh temporary directory.
	Workdir string
	// KeepTempFiles keeps the per-sample working directories.
	KeepTempFiles bool
	// MinOrganismsForFit excludes samples of this size or less from the
	// Heaps' law fit.
	MinOrganismsForFit int
}

// Report is the outcome of an evolution run.
type Report struct {
	// Samples is the number of scheduled subsets.
	Samples int
	// Rows are the logged samples in completion order, the full
	// pangenome row first when present.
	Rows []Sample
	// Failures are the tasks that did not complete.
	Failures []*TaskFailure
	// Curves and Fits are the per class summaries.
	Curves []Curve
	Fits   []Fit
	// Files written to the output directory.
	StatsPath, SummaryPath, ParamsPath string
	Duration                           time.Duration
}

// Resampler runs evolution analyses.
type Resampler struct {
	Partitioner Partitioner
	Logger      *log.Logger
}

// NewResampler creates a resampler. A nil logger discards output.
func NewResampler(p Partitioner, logger *log.Logger) *Resampler {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Resampler{Partitioner: p, Logger: logger}
}

type outcome struct {
	task    Task
	sample  Sample
	failure *TaskFailure
}

// Run resamples g, which is only read. It returns an error for invalid
// configuration, I/O failures and cancellation; task failures are
// reported in the Report.
func (r *Resampler) Run(ctx context.Context, g *pangenome.Graph, cfg Config) (*Report, error) {
	start := time.Now()
	if err := cfg.Resampling.Validate(); err != nil {
		return nil, err
	}
	base := cfg.Partition
	if err := base.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MinOrganismsForFit <= 0 {
		cfg.MinOrganismsForFit = DefaultMinOrganismsForFit
	}
	total := g.NumOrganisms()
	if total < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "evolution needs at least 2 organisms, got %d", total)
	}

	workdir := cfg.Workdir
	if workdir == "" {
		tmp, err := os.MkdirTemp("", "panpart-evol-"+uuid.NewString()[:8]+"-")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "create temporary directory")
		}
		workdir = tmp
		if !cfg.KeepTempFiles {
			defer os.RemoveAll(tmp)
		}
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory")
	}

	tasks := r.plan(g, cfg, base, workdir)
	r.Logger.Info("resampling pangenome", "organisms", total, "samples", len(tasks),
		"resampling", cfg.Resampling.String(), "workers", cfg.Workers)

	report := &Report{
		Samples:     len(tasks),
		StatsPath:   filepath.Join(cfg.OutputDir, StatsFile),
		SummaryPath: filepath.Join(cfg.OutputDir, SummaryFile),
		ParamsPath:  filepath.Join(cfg.OutputDir, ParamsFile),
	}
	if err := r.collect(ctx, g, cfg, tasks, report); err != nil {
		return report, err
	}

	maxN := min(cfg.Resampling.Limit, total)
	report.Curves = Aggregate(report.Rows, partition.Classes, maxN)
	report.Fits = FitCurves(report.Rows, report.Curves, cfg.MinOrganismsForFit)
	for _, f := range report.Fits {
		if !f.OK() {
			r.Logger.Debug("Heaps' law fit failed", "class", f.Class, "points", f.Points,
				"code", errors.ErrCodeFitFailure)
		}
	}
	if err := writeFile(report.SummaryPath, func(w io.Writer) error { return WriteSummary(w, report.Curves) }); err != nil {
		return report, err
	}
	if err := writeFile(report.ParamsPath, func(w io.Writer) error { return WriteParams(w, report.Fits) }); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	observability.Evolution().OnEvolutionComplete(ctx, len(report.Failures), report.Duration)
	r.Logger.Info("evolution complete", "samples", len(report.Rows), "failures", len(report.Failures),
		"duration", report.Duration)
	return report, nil
}

// plan draws the subsets and turns them into tasks.
func (r *Resampler) plan(g *pangenome.Graph, cfg Config, base pipeline.Options, workdir string) []Task {
	q, qmin, qmax := QPolicy(cfg.Resampling.QMode, g, base.Q, base.Qmin, base.Qmax)
	subsets := DrawSubsets(g.OrganismIDs(), cfg.Resampling, base.Seed)
	tasks := make([]Task, len(subsets))
	for i, orgs := range subsets {
		tasks[i] = Task{
			Index:     i,
			Organisms: orgs,
			Q:         q,
			Qmin:      qmin,
			Qmax:      qmax,
			Seed:      base.Seed,
			Workdir:   filepath.Join(workdir, "evolution", fmt.Sprintf("nborg%d_%d", len(orgs), i)),
		}
	}
	return tasks
}

// collect runs the tasks on the worker pool and writes every result to
// the log as it arrives.
func (r *Resampler) collect(ctx context.Context, g *pangenome.Graph, cfg Config, tasks []Task, report *Report) error {
	f, err := os.Create(report.StatsPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create evolution log")
	}
	defer f.Close()
	lw, err := NewLogWriter(f)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write evolution log")
	}

	if g.Partitioned() && cfg.Resampling.Limit >= g.NumOrganisms() {
		stats, err := graphStats(g)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "full pangenome statistics")
		}
		full := Sample{N: g.NumOrganisms(), Stats: stats, Full: true}
		if err := lw.Write(full); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "write evolution log")
		}
		report.Rows = append(report.Rows, full)
	}

	hooks := observability.Evolution()
	hooks.OnEvolutionStart(ctx, len(tasks))

	results := make(chan outcome)
	go func() {
		var pool errgroup.Group
		pool.SetLimit(cfg.Workers)
		for _, t := range tasks {
			if ctx.Err() != nil {
				break
			}
			pool.Go(func() error {
				results <- r.runTask(ctx, g, cfg.Partition, cfg.KeepTempFiles, t)
				return nil
			})
		}
		_ = pool.Wait()
		close(results)
	}()

	var writeErr error
	for out := range results {
		if out.failure != nil {
			report.Failures = append(report.Failures, out.failure)
			r.Logger.Warn("sample failed", "sample", out.task.Index, "organisms", out.task.Size(),
				"error", out.failure.Err)
			hooks.OnSampleComplete(ctx, out.task.Size(), out.failure)
			continue
		}
		report.Rows = append(report.Rows, out.sample)
		if writeErr == nil {
			writeErr = lw.Write(out.sample)
		}
		r.Logger.Debug("sample done", "sample", out.task.Index, "row", out.sample.String())
		hooks.OnSampleComplete(ctx, out.task.Size(), nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if writeErr != nil {
		return errors.Wrap(errors.ErrCodeInternal, writeErr, "write evolution log")
	}
	return nil
}

// runTask partitions one subset. Errors and panics become failures. base
// is the caller's option set, validated again by the partition call.
func (r *Resampler) runTask(ctx context.Context, g *pangenome.Graph, base pipeline.Options, keep bool, t Task) (out outcome) {
	out.task = t
	defer func() {
		if p := recover(); p != nil {
			out.failure = &TaskFailure{Task: t, Err: fmt.Errorf("panic: %v\n%s", p, debug.Stack())}
		}
	}()

	opts := base
	opts.Organisms = t.Organisms
	opts.Q, opts.Qmin, opts.Qmax = t.Q, t.Qmin, t.Qmax
	opts.Seed = t.Seed
	opts.Workdir = t.Workdir
	opts.FormerDir = ""
	opts.InPlace = false
	opts.StatsOnly = true
	opts.Workers = 1
	opts.KeepTempFiles = keep
	opts.Logger = r.taskLogger(t)

	res, err := r.Partitioner.Partition(ctx, g, opts)
	if !keep {
		_ = os.RemoveAll(t.Workdir)
	}
	if err != nil {
		out.failure = &TaskFailure{Task: t, Err: err}
		return out
	}
	out.sample = Sample{N: t.Size(), Stats: res.Stats}
	return out
}

// taskLogger keeps per-run chatter out of the run output.
func (r *Resampler) taskLogger(t Task) *log.Logger {
	l := r.Logger.With("sample", t.Index)
	if r.Logger.GetLevel() < log.WarnLevel {
		l.SetLevel(log.WarnLevel)
	}
	return l
}

// graphStats counts the labels of the families the last run labeled.
// Families filtered out of that run are not part of its statistics.
func graphStats(g *pangenome.Graph) (partition.Stats, error) {
	labels := make(map[string]pangenome.Label, g.NumFamilies())
	for _, f := range g.Families() {
		if !f.Labeled() || f.NumOrganisms() == 0 {
			continue
		}
		labels[f.ID] = pangenome.Label{
			Partition:       f.Partition,
			FormerPartition: f.FormerPartition,
			SoftPartition:   f.SoftPartition,
		}
	}
	return partition.NewStats(labels, g.Q())
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", filepath.Base(path))
	}
	if err := fn(f); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", filepath.Base(path))
	}
	return f.Close()
}

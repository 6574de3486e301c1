package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/evolution"
	pkgio "github.com/matzehuels/panpart/pkg/io"
	"github.com/matzehuels/panpart/pkg/observability"
	"github.com/matzehuels/panpart/pkg/partition"
	"github.com/matzehuels/panpart/pkg/render/plot"
	"github.com/matzehuels/panpart/pkg/store"
)

// EvolutionPlotFile is the rarefaction plot written next to the logs.
const EvolutionPlotFile = "evolution.svg"

// evolutionOpts holds the flags of the evolution command that are not
// model options.
type evolutionOpts struct {
	output     string
	resampling string
	workers    int
	minFit     int
	fromLog    string
	db         string
	noCache    bool
	plot       bool
	tui        bool
}

// evolutionCommand creates the evolution command.
func (c *CLI) evolutionCommand() *cobra.Command {
	var (
		model modelFlags
		opts  evolutionOpts
	)

	cmd := &cobra.Command{
		Use:   "evolution [pangenome.json|matrix.Rtab]",
		Short: "Compute pangenome evolution (rarefaction) curves",
		Long: `Partition random organism subsets of growing size and follow the class
counts as organisms are added.

Subsets are drawn with the six resampling parameters
ratio,min,max,step,limit,evolutionQ (e.g. "0.1,10,10,1,Inf,1"). Every
sample is logged as soon as it completes; a failing sample is reported and
does not stop the run. Heaps' law (count = kappa * N^gamma) is fitted per
class on the larger subsets.

With --from-log no partitioning is run: the summary and fits are recomputed
from an existing ` + evolution.StatsFile + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.fromLog != "" {
				if len(args) > 0 {
					return errors.Configuration("--from-log takes no input pangenome")
				}
				if !cmd.Flags().Changed("min-organisms-for-fit") {
					opts.minFit = c.Config.Evolution.MinOrganismsForFit
				}
				return c.runEvolutionFromLog(cmd.Context(), opts)
			}
			if len(args) == 0 {
				return errors.Configuration("evolution needs an input pangenome or --from-log")
			}

			cfg, err := c.evolutionConfig(cmd, &model, &opts)
			if err != nil {
				return err
			}
			return c.runEvolution(cmd.Context(), args[0], cfg, opts)
		},
	}

	model.register(cmd.Flags(), false)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "panpart_evolution", "output directory")
	cmd.Flags().StringVarP(&opts.resampling, "resampling", "r", "", "resampling parameters ratio,min,max,step,limit,evolutionQ")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 1, "samples partitioned in parallel")
	cmd.Flags().IntVar(&opts.minFit, "min-organisms-for-fit", evolution.DefaultMinOrganismsForFit, "fit Heaps' law on subsets larger than this")
	cmd.Flags().StringVar(&opts.fromLog, "from-log", "", "recompute summary and fits from this evolution log")
	cmd.Flags().StringVar(&opts.db, "db", "", "also store the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the chunk selection cache")
	cmd.Flags().BoolVar(&opts.plot, "plot", true, "draw the evolution curves ("+EvolutionPlotFile+")")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show an interactive progress view")

	return cmd
}

// evolutionConfig merges the configuration file with the flags set on the
// command line.
func (c *CLI) evolutionConfig(cmd *cobra.Command, model *modelFlags, opts *evolutionOpts) (evolution.Config, error) {
	ec := c.Config.Evolution
	fs := cmd.Flags()
	if fs.Changed("resampling") {
		ec.Resampling = opts.resampling
	}
	if fs.Changed("workers") {
		ec.Workers = opts.workers
	}
	if fs.Changed("min-organisms-for-fit") {
		ec.MinOrganismsForFit = opts.minFit
	}
	r, err := ec.ResamplingParams()
	if err != nil {
		return evolution.Config{}, err
	}

	popts := c.Config.Partition.Options()
	model.apply(fs, &popts)
	return evolution.Config{
		Resampling:         r,
		Partition:          popts,
		Workers:            ec.Workers,
		OutputDir:          opts.output,
		Workdir:            popts.Workdir,
		KeepTempFiles:      popts.KeepTempFiles,
		MinOrganismsForFit: ec.MinOrganismsForFit,
	}, nil
}

func (c *CLI) runEvolution(ctx context.Context, input string, cfg evolution.Config, opts evolutionOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	g, err := pkgio.Import(input)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	printInfo("Resampling %d organisms: %s", g.NumOrganisms(), describeResampling(cfg.Resampling))
	var report *evolution.Report
	if opts.tui {
		// The view owns the terminal; sample logs would break it.
		quiet := log.NewWithOptions(io.Discard, log.Options{})
		runner.Logger = quiet
		res := evolution.NewResampler(runner, quiet)
		var restore func()
		report, err = runEvolutionTUI(ctx, g.NumOrganisms(),
			func(h tuiHooks) { restore = c.useEvolutionHooks(h) },
			func(ctx context.Context) (*evolution.Report, error) { return res.Run(ctx, g, cfg) })
		if restore != nil {
			restore()
		}
	} else {
		report, err = evolution.NewResampler(runner, logger).Run(ctx, g, cfg)
	}
	if err != nil {
		return err
	}

	prog.done("Evolution complete", "samples", len(report.Rows), "failures", len(report.Failures))
	for i, f := range report.Failures {
		if i == 5 {
			printDetail("... and %d more", len(report.Failures)-5)
			break
		}
		printWarning("%v", f)
	}
	printFitTable(report.Fits)

	files := []string{report.StatsPath, report.SummaryPath, report.ParamsPath}
	if opts.plot {
		path, err := writeEvolutionPlot(opts.output, report.Curves, report.Fits)
		if err != nil {
			return err
		}
		files = append(files, path)
	}
	printNewline()
	for _, f := range files {
		printFile(f)
	}

	if opts.db != "" {
		id, err := saveRun(ctx, opts.db, store.RunInfo{
			Input:      input,
			Resampling: cfg.Resampling,
			Organisms:  g.NumOrganisms(),
		}, report)
		if err != nil {
			return err
		}
		printSuccess("Stored run %s in %s", StyleHighlight.Render(id[:8]), opts.db)
	}
	return nil
}

// runEvolutionFromLog rebuilds the summary, fits and plot of a finished
// run from its log.
func (c *CLI) runEvolutionFromLog(ctx context.Context, opts evolutionOpts) error {
	logger := loggerFromContext(ctx)
	samples, err := readEvolutionLog(opts.fromLog)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.output, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory")
	}
	curves, fits := summarize(samples, opts.minFit)
	logger.Debug("evolution log read", "path", opts.fromLog, "samples", len(samples))

	summaryPath := filepath.Join(opts.output, evolution.SummaryFile)
	paramsPath := filepath.Join(opts.output, evolution.ParamsFile)
	if err := writeFileWith(summaryPath, func(w io.Writer) error { return evolution.WriteSummary(w, curves) }); err != nil {
		return err
	}
	if err := writeFileWith(paramsPath, func(w io.Writer) error { return evolution.WriteParams(w, fits) }); err != nil {
		return err
	}
	printFitTable(fits)
	files := []string{summaryPath, paramsPath}
	if opts.plot {
		path, err := writeEvolutionPlot(opts.output, curves, fits)
		if err != nil {
			return err
		}
		files = append(files, path)
	}
	printNewline()
	for _, f := range files {
		printFile(f)
	}
	return nil
}

func readEvolutionLog(path string) ([]evolution.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "evolution log %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	return evolution.ReadLog(f)
}

// summarize aggregates samples and fits every class, sizes running up to
// the largest logged subset.
func summarize(samples []evolution.Sample, minFit int) ([]evolution.Curve, []evolution.Fit) {
	maxN := 0
	for _, s := range samples {
		maxN = max(maxN, s.N)
	}
	if minFit <= 0 {
		minFit = evolution.DefaultMinOrganismsForFit
	}
	curves := evolution.Aggregate(samples, partition.Classes, maxN)
	return curves, evolution.FitCurves(samples, curves, minFit)
}

func writeEvolutionPlot(dir string, curves []evolution.Curve, fits []evolution.Fit) (string, error) {
	path := filepath.Join(dir, EvolutionPlotFile)
	svg := plot.Evolution(curves, fits, nil, plot.WithTitle("Pangenome evolution"))
	if err := os.WriteFile(path, svg, 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return path, nil
}

func saveRun(ctx context.Context, db string, info store.RunInfo, report *evolution.Report) (string, error) {
	st, err := store.Open(ctx, db)
	if err != nil {
		return "", err
	}
	defer st.Close()
	return st.SaveReport(ctx, info, report)
}

func writeFileWith(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	if err := fn(f); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return f.Close()
}

// useEvolutionHooks registers h next to the metrics hooks and returns a
// function restoring the previous hooks.
func (c *CLI) useEvolutionHooks(h observability.EvolutionHooks) func() {
	prev := observability.Evolution()
	if c.metrics != nil {
		h = observability.TeeEvolution(c.metrics, h)
	}
	observability.SetEvolutionHooks(h)
	return func() { observability.SetEvolutionHooks(prev) }
}

// classList validates a list of class names.
func classList(classes []string) ([]string, error) {
	for _, class := range classes {
		if !slices.Contains(partition.Classes, class) {
			return nil, errors.Configuration("unknown class %q (want one of %v)", class, partition.Classes)
		}
	}
	return classes, nil
}

// describeResampling renders resampling parameters for humans.
func describeResampling(r evolution.Resampling) string {
	limit := "all"
	if r.Limit != evolution.Unlimited {
		limit = fmt.Sprint(r.Limit)
	}
	return fmt.Sprintf("ratio %g, %d to %s repeats, step %d, up to %s organisms",
		r.Ratio, r.MinRepeats, repeatsString(r.MaxRepeats), r.Step, limit)
}

func repeatsString(n int) string {
	if n == evolution.Unlimited {
		return "Inf"
	}
	return fmt.Sprint(n)
}

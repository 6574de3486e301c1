package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/panpart/pkg/io"
	"github.com/matzehuels/panpart/pkg/observability"
	"github.com/matzehuels/panpart/pkg/pangenome"
	"github.com/matzehuels/panpart/pkg/pipeline"
	"github.com/matzehuels/panpart/pkg/render/plot"
)

// UShapeFile is the presence histogram written next to partition results.
const UShapeFile = "ushape.svg"

// partitionOpts holds the flags of the partition command that are not
// model options.
type partitionOpts struct {
	output    string
	statsOnly bool
	noCache   bool
	refresh   bool
	plot      bool
	quiet     bool
}

// partitionCommand creates the partition command.
func (c *CLI) partitionCommand() *cobra.Command {
	var (
		model modelFlags
		opts  partitionOpts
	)

	cmd := &cobra.Command{
		Use:   "partition [pangenome.json|matrix.Rtab]",
		Short: "Partition gene families into persistent, shell and cloud",
		Long: `Partition the gene families of a pangenome.

The input is a JSON pangenome (organisms, contigs and ordered genes) or a
tab separated presence/absence matrix. The number of partitions is chosen by
ICL unless --q is given. Results are written to the output directory:
per-class family lists, the partitioned graph, the presence matrix and a
summary of the class counts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			popts := c.Config.Partition.Options()
			model.apply(cmd.Flags(), &popts)
			popts.StatsOnly = opts.statsOnly
			popts.Refresh = opts.refresh
			return c.runPartition(cmd.Context(), args[0], popts, opts)
		},
	}

	model.register(cmd.Flags(), true)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "panpart_out", "output directory")
	cmd.Flags().BoolVar(&opts.statsOnly, "stats-only", false, "print the class counts without writing labels or files")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the chunk selection cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute chunks even when cached")
	cmd.Flags().BoolVar(&opts.plot, "plot", true, "draw the presence histogram ("+UShapeFile+")")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "no progress spinner")

	return cmd
}

func (c *CLI) runPartition(ctx context.Context, input string, popts pipeline.Options, opts partitionOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	g, err := pkgio.Import(input)
	if err != nil {
		return err
	}
	logger.Debug("pangenome loaded", "path", input, "organisms", g.NumOrganisms(),
		"families", g.NumFamilies(), "edges", g.NumEdges())

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()
	popts.Logger = logger

	var res *pipeline.Result
	if opts.quiet || c.verbose {
		res, err = runner.Partition(ctx, g, popts)
	} else {
		spinner := newSpinnerWithContext(ctx, "Partitioning")
		restore := c.usePartitionHooks(&spinnerHooks{spinner: spinner})
		spinner.Start()
		res, err = runner.Partition(ctx, g, popts)
		spinner.Stop()
		restore()
	}
	if err != nil {
		return err
	}

	prog.done("Partitioned", "organisms", g.NumOrganisms(), "families", len(res.Labels), "Q", res.Stats.Q)
	printStatsTable(res.Stats)
	cached, undefined := 0, 0
	for _, ch := range res.Chunks {
		if ch.CacheHit {
			cached++
		}
		if !ch.Converged() {
			undefined++
		}
	}
	printChunkLine(len(res.Chunks), cached, undefined)
	if res.Stats.Undefined > 0 {
		printWarning("%d families left undefined: the model did not converge", res.Stats.Undefined)
	}
	if res.Workdir != "" {
		printDetail("Working directory: %s", res.Workdir)
	}
	if popts.StatsOnly {
		return nil
	}

	files, err := writePartitionOutputs(opts.output, g, res, opts.plot, popts.SoftCoreThreshold)
	if err != nil {
		return err
	}
	printNewline()
	for _, f := range files {
		printFile(f)
	}
	printNewline()
	printNextStep("Evolution curves", appName+" evolution "+filepath.Join(opts.output, pkgio.GraphFile))
	return nil
}

// writePartitionOutputs writes every result file of a partition run and
// returns their paths.
func writePartitionOutputs(dir string, g *pangenome.Graph, res *pipeline.Result, drawPlot bool, softCore float64) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := pkgio.WriteResults(dir, g, res.Stats, strings.Join(os.Args, " ")); err != nil {
		return nil, err
	}
	files := []string{
		filepath.Join(dir, pkgio.PartitionsDir),
		filepath.Join(dir, pkgio.PangenomeFile),
		filepath.Join(dir, pkgio.SummaryStatsFile),
	}

	graphPath := filepath.Join(dir, pkgio.GraphFile)
	if err := pkgio.ExportJSON(g, graphPath); err != nil {
		return nil, err
	}
	matrixPath := filepath.Join(dir, pkgio.MatrixFile)
	if err := pkgio.ExportRtab(g, matrixPath); err != nil {
		return nil, err
	}
	files = append(files, graphPath, matrixPath)

	if drawPlot {
		path := filepath.Join(dir, UShapeFile)
		svg := plot.UShape(g, plot.WithTitle("Gene family presence"), plot.WithSoftCoreThreshold(softCore))
		if err := os.WriteFile(path, svg, 0o644); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

// usePartitionHooks registers h next to the metrics hooks and returns a
// function restoring the previous hooks.
func (c *CLI) usePartitionHooks(h observability.PartitionHooks) func() {
	prev := observability.Partition()
	if c.metrics != nil {
		h = observability.TeePartition(c.metrics, h)
	}
	observability.SetPartitionHooks(h)
	return func() { observability.SetPartitionHooks(prev) }
}

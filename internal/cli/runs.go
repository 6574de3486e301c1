package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/evolution"
	"github.com/matzehuels/panpart/pkg/store"
)

// RunsFile is the default run database under the data directory.
const RunsFile = "runs.db"

// runsCommand creates the runs command managing stored evolution runs.
func (c *CLI) runsCommand() *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List, show, export and delete stored evolution runs",
		Long: `Evolution runs started with --db are stored in a SQLite database.
Runs are addressed by their ID or any unique prefix of it.`,
	}
	cmd.PersistentFlags().StringVar(&db, "db", "", "run database (default: "+filepath.Join("$XDG_DATA_HOME", appName, RunsFile)+")")

	open := func(ctx context.Context) (*store.Store, error) {
		path := db
		if path == "" {
			var err error
			if path, err = defaultDBPath(); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "locate run database")
			}
		}
		return store.Open(ctx, path)
	}

	cmd.AddCommand(c.runsListCommand(open))
	cmd.AddCommand(c.runsShowCommand(open))
	cmd.AddCommand(c.runsExportCommand(open))
	cmd.AddCommand(c.runsDeleteCommand(open))
	return cmd
}

type openStore func(context.Context) (*store.Store, error)

func (c *CLI) runsListCommand(open openStore) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			runs, err := st.Runs(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("No runs stored in %s", st.Path())
				return nil
			}
			printRunsTable(runs)
			return nil
		},
	}
}

func (c *CLI) runsShowCommand(open openStore) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a stored run and its Heaps' law fits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := open(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			run, err := st.Run(ctx, args[0])
			if err != nil {
				return err
			}
			fits, err := st.Fits(ctx, run.ID)
			if err != nil {
				return err
			}
			printKeyValue("ID", run.ID)
			printKeyValue("Created", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			printKeyValue("Input", run.Input)
			printKeyValue("Resampling", run.Resampling)
			printKeyValue("Organisms", fmt.Sprint(run.Organisms))
			printKeyValue("Samples", fmt.Sprintf("%d (%d failed)", run.Samples, run.Failures))
			printKeyValue("Duration", run.Duration.Round(1e6).String())
			printNewline()
			printFitTable(fits)
			return nil
		},
	}
}

func (c *CLI) runsExportCommand(open openStore) *cobra.Command {
	var (
		output string
		plot   bool
	)
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Write the evolution files of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := open(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			run, err := st.Run(ctx, args[0])
			if err != nil {
				return err
			}
			samples, err := st.Samples(ctx, run.ID)
			if err != nil {
				return err
			}
			if output == "" {
				output = "panpart_run_" + run.ID[:8]
			}
			files, err := exportRun(output, samples, c.Config.Evolution.MinOrganismsForFit, plot)
			if err != nil {
				return err
			}
			printSuccess("Exported %d samples of run %s", len(samples), StyleHighlight.Render(run.ID[:8]))
			for _, f := range files {
				printFile(f)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default: panpart_run_<id>)")
	cmd.Flags().BoolVar(&plot, "plot", true, "draw the evolution curves ("+EvolutionPlotFile+")")
	return cmd
}

// exportRun writes the log, summary and fits of samples to dir. Fits are
// recomputed from the samples so they match the log exactly.
func exportRun(dir string, samples []evolution.Sample, minFit int, drawPlot bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory")
	}
	statsPath := filepath.Join(dir, evolution.StatsFile)
	err := writeFileWith(statsPath, func(w io.Writer) error {
		lw, err := evolution.NewLogWriter(w)
		if err != nil {
			return err
		}
		for _, s := range samples {
			if err := lw.Write(s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	curves, fits := summarize(samples, minFit)
	summaryPath := filepath.Join(dir, evolution.SummaryFile)
	paramsPath := filepath.Join(dir, evolution.ParamsFile)
	if err := writeFileWith(summaryPath, func(w io.Writer) error { return evolution.WriteSummary(w, curves) }); err != nil {
		return nil, err
	}
	if err := writeFileWith(paramsPath, func(w io.Writer) error { return evolution.WriteParams(w, fits) }); err != nil {
		return nil, err
	}
	files := []string{statsPath, summaryPath, paramsPath}
	if drawPlot {
		path, err := writeEvolutionPlot(dir, curves, fits)
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (c *CLI) runsDeleteCommand(open openStore) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := open(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			run, err := st.Run(ctx, args[0])
			if err != nil {
				return err
			}
			if err := st.Delete(ctx, run.ID); err != nil {
				return err
			}
			printSuccess("Deleted run %s", StyleHighlight.Render(run.ID[:8]))
			return nil
		},
	}
}

// defaultDBPath returns the run database under the XDG data directory
// (~/.local/share/panpart/runs.db).
func defaultDBPath() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName, RunsFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName, RunsFile), nil
}

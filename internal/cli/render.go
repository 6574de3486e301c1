package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/evolution"
	pkgio "github.com/matzehuels/panpart/pkg/io"
	"github.com/matzehuels/panpart/pkg/partition"
	"github.com/matzehuels/panpart/pkg/render"
	"github.com/matzehuels/panpart/pkg/render/nodelink"
	"github.com/matzehuels/panpart/pkg/render/plot"
)

const formatDOT = "dot"

// figureOpts holds the flags shared by the render subcommands.
type figureOpts struct {
	output  string   // output base path, extension added per format
	formats []string // svg, pdf, png (and dot for graphs)
	scale   float64  // PNG scale factor
	title   string
	width   float64
	height  float64
}

func (o *figureOpts) register(cmd *cobra.Command, formatsStr *string, extra string) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output base path (default: next to the input)")
	cmd.Flags().StringVarP(formatsStr, "format", "f", "", "output format(s): svg (default), pdf, png"+extra+" (comma-separated)")
	cmd.Flags().Float64Var(&o.scale, "scale", 2, "PNG scale factor")
	cmd.Flags().StringVar(&o.title, "title", "", "figure title")
	cmd.Flags().Float64Var(&o.width, "width", 900, "plot width in pixels")
	cmd.Flags().Float64Var(&o.height, "height", 500, "plot height in pixels")

	formats := []string{render.FormatSVG, render.FormatPDF, render.FormatPNG}
	if extra != "" {
		formats = append(formats, formatDOT)
	}
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(formats, cobra.ShellCompDirectiveNoFileComp))
}

// base returns the output path without extension for an input file.
func (o *figureOpts) base(input, suffix string) string {
	if o.output != "" {
		return strings.TrimSuffix(o.output, filepath.Ext(o.output))
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

func (o *figureOpts) plotOptions() []plot.Option {
	opts := []plot.Option{plot.WithSize(o.width, o.height)}
	if o.title != "" {
		opts = append(opts, plot.WithTitle(o.title))
	}
	return opts
}

// renderCommand creates the render command with one subcommand per figure.
func (c *CLI) renderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a pangenome or evolution run to SVG, PDF or PNG",
	}
	cmd.AddCommand(c.renderGraphCommand())
	cmd.AddCommand(c.renderUShapeCommand())
	cmd.AddCommand(c.renderEvolutionCommand())
	return cmd
}

func (c *CLI) renderGraphCommand() *cobra.Command {
	var (
		opts       figureOpts
		formatsStr string
		gopts      nodelink.Options
	)
	cmd := &cobra.Command{
		Use:   "graph [pangenome.json]",
		Short: "Draw the family neighborhood graph colored by partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats, true); err != nil {
				return err
			}
			g, err := pkgio.Import(args[0])
			if err != nil {
				return err
			}
			dot := nodelink.ToDOT(g, gopts)
			base := opts.base(args[0], "_graph")

			var files []string
			var svg []byte
			for _, format := range opts.formats {
				path := base + "." + format
				var data []byte
				if format == formatDOT {
					data = []byte(dot)
				} else {
					if svg == nil {
						if svg, err = nodelink.RenderSVG(dot); err != nil {
							return errors.Wrap(errors.ErrCodeInternal, err, "render graph")
						}
					}
					if data, err = render.Convert(cmd.Context(), svg, format, opts.scale); err != nil {
						return err
					}
				}
				if err := writeOutput(path, data); err != nil {
					return err
				}
				files = append(files, path)
			}
			printSuccess("Rendered %d families", g.NumFamilies())
			for _, f := range files {
				printFile(f)
			}
			return nil
		},
	}
	opts.register(cmd, &formatsStr, ", dot")
	cmd.Flags().IntVar(&gopts.MinWeight, "min-weight", 0, "hide edges seen in fewer organisms")
	cmd.Flags().BoolVar(&gopts.KeepIsolated, "isolated", false, "keep families without drawn edges")
	cmd.Flags().BoolVar(&gopts.Detailed, "detailed", false, "label nodes with partition and organism count")
	return cmd
}

func (c *CLI) renderUShapeCommand() *cobra.Command {
	var (
		opts       figureOpts
		formatsStr string
		softCore   float64
	)
	cmd := &cobra.Command{
		Use:   "ushape [pangenome.json|matrix.Rtab]",
		Short: "Draw the family presence histogram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats, false); err != nil {
				return err
			}
			g, err := pkgio.Import(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("soft-core") {
				softCore = c.Config.Partition.SoftCore
			}
			svg := plot.UShape(g, append(opts.plotOptions(), plot.WithSoftCoreThreshold(softCore))...)
			return writeFigure(cmd.Context(), opts.base(args[0], "_ushape"), svg, opts)
		},
	}
	opts.register(cmd, &formatsStr, "")
	cmd.Flags().Float64Var(&softCore, "soft-core", 0.95, "mark the soft core threshold (0 hides it)")
	return cmd
}

func (c *CLI) renderEvolutionCommand() *cobra.Command {
	var (
		opts       figureOpts
		formatsStr string
		classes    []string
		minFit     int
	)
	cmd := &cobra.Command{
		Use:   "evolution [" + evolution.StatsFile + "|output dir]",
		Short: "Draw rarefaction curves from an evolution log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats, false); err != nil {
				return err
			}
			selected, err := classList(classes)
			if err != nil {
				return err
			}
			path := args[0]
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, evolution.StatsFile)
			}
			samples, err := readEvolutionLog(path)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("min-organisms-for-fit") {
				minFit = c.Config.Evolution.MinOrganismsForFit
			}
			curves, fits := summarize(samples, minFit)
			svg := plot.Evolution(curves, fits, selected, opts.plotOptions()...)
			return writeFigure(cmd.Context(), opts.base(path, "_curves"), svg, opts)
		},
	}
	opts.register(cmd, &formatsStr, "")
	cmd.Flags().StringSliceVar(&classes, "classes", nil, "classes to draw (default: persistent, shell, cloud, pangenome)")
	cmd.Flags().IntVar(&minFit, "min-organisms-for-fit", evolution.DefaultMinOrganismsForFit, "fit Heaps' law on subsets larger than this")
	_ = cmd.RegisterFlagCompletionFunc("classes", cobra.FixedCompletions(partition.Classes, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

// writeFigure converts svg to every requested format.
func writeFigure(ctx context.Context, base string, svg []byte, opts figureOpts) error {
	var files []string
	for _, format := range opts.formats {
		data, err := render.Convert(ctx, svg, format, opts.scale)
		if err != nil {
			return err
		}
		path := base + "." + format
		if err := writeOutput(path, data); err != nil {
			return err
		}
		files = append(files, path)
	}
	printSuccess("Rendered %d file(s)", len(files))
	for _, f := range files {
		printFile(f)
	}
	return nil
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

// validateFormats checks that all requested formats are valid.
func validateFormats(formats []string, allowDOT bool) error {
	for _, f := range formats {
		switch f {
		case render.FormatSVG, render.FormatPDF, render.FormatPNG:
		case formatDOT:
			if !allowDOT {
				return errors.Configuration("dot output is only available for graphs")
			}
		default:
			return errors.Configuration("invalid format: %s (must be svg, pdf or png)", f)
		}
	}
	return nil
}

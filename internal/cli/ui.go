package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/panpart/pkg/evolution"
	"github.com/matzehuels/panpart/pkg/partition"
	"github.com/matzehuels/panpart/pkg/render"
	"github.com/matzehuels/panpart/pkg/store"
)

// stdout receives all user-facing output. Tests replace it.
var stdout io.Writer = os.Stdout

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// partitionColors match the colors of the rendered figures.
var partitionColors = map[string]lipgloss.Color{
	"persistent": lipgloss.Color(render.PersistentColor),
	"shell":      lipgloss.Color(render.ShellColor),
	"cloud":      lipgloss.Color(render.CloudColor),
	"undefined":  lipgloss.Color(render.UndefinedColor),
}

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleBorder  = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(stdout, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Fprintln(stdout)
}

// =============================================================================
// Tables
// =============================================================================

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers(headers...)
}

// printStatsTable prints the class counts of a partition run, the model
// classes in their partition colors.
func printStatsTable(s partition.Stats) {
	rows := make([][]string, 0, len(partition.Classes))
	for _, class := range partition.Classes {
		n, _ := s.Count(class)
		rows = append(rows, []string{class, strconv.Itoa(n)})
	}
	t := newTable("Class", "Families").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 1 {
				return base.Foreground(colorWhite).Align(lipgloss.Right)
			}
			if c, ok := partitionColors[rows[row][0]]; ok {
				return base.Foreground(c)
			}
			return base.Foreground(colorGray)
		})
	fmt.Fprintln(stdout, t.Render())
	printKeyValue("Q", strconv.Itoa(s.Q))
}

// printChunkLine summarizes the chunks of a run on a single line.
func printChunkLine(chunks, cached, undefined int) {
	line := fmt.Sprintf("%d chunks", chunks)
	if cached > 0 {
		line += StyleDim.Render(" · ") + styleCached.Render(fmt.Sprintf("%d cached", cached))
	} else {
		line += StyleDim.Render(" · ") + styleComputed.Render("fresh")
	}
	if undefined > 0 {
		line += StyleDim.Render(" · ") + StyleWarning.Render(fmt.Sprintf("%d not converged", undefined))
	}
	fmt.Fprintln(stdout, "  "+StyleDim.Render(line))
}

// printFitTable prints the Heaps' law fits of an evolution run.
func printFitTable(fits []evolution.Fit) {
	rows := make([][]string, 0, len(fits))
	for _, f := range fits {
		rows = append(rows, []string{f.Class, fmtFit(f.Kappa), fmtFit(f.Gamma), fmtFit(f.IQRArea), strconv.Itoa(f.Points)})
	}
	t := newTable("Class", "Kappa", "Gamma", "IQR area", "Points").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col > 0 {
				return base.Align(lipgloss.Right)
			}
			return base
		})
	fmt.Fprintln(stdout, t.Render())
}

func fmtFit(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// printRunsTable lists stored evolution runs.
func printRunsTable(runs []store.Run) {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID[:8], r.CreatedAt.Local().Format("Jan 2 15:04"), r.Input, r.Resampling,
			strconv.Itoa(r.Organisms), fmt.Sprintf("%d/%d", r.Samples-r.Failures, r.Samples),
		})
	}
	t := newTable("ID", "Created", "Input", "Resampling", "Organisms", "Samples").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col == 0 {
				return lipgloss.NewStyle().Padding(0, 1).Foreground(colorCyan)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(stdout, t.Render())
}

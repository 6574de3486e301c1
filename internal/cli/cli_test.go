package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/matzehuels/panpart/pkg/config"
	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/evolution"
	pkgio "github.com/matzehuels/panpart/pkg/io"
	"github.com/matzehuels/panpart/pkg/observability"
	"github.com/matzehuels/panpart/pkg/pipeline"
)

// captureStdout redirects user-facing output for the rest of the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvPath, "")
	t.Cleanup(observability.Reset)
	out := captureStdout(t)

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// toyMatrix writes a 6 organism by 10 family presence matrix.
func toyMatrix(t *testing.T) string {
	t.Helper()
	rows := []string{
		"Gene\to1\to2\to3\to4\to5\to6",
		"f1\t1\t1\t1\t1\t1\t1",
		"f2\t1\t1\t1\t1\t1\t1",
		"f3\t1\t0\t0\t0\t0\t0",
		"f4\t1\t1\t1\t1\t1\t0",
		"f5\t0\t1\t1\t1\t1\t1",
		"f6\t1\t1\t1\t1\t0\t0",
		"f7\t1\t0\t1\t0\t1\t0",
		"f8\t0\t1\t0\t1\t0\t0",
		"f9\t0\t0\t0\t0\t1\t1",
		"f10\t0\t0\t0\t0\t0\t1",
	}
	path := filepath.Join(t.TempDir(), "toy.Rtab")
	if err := os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"cancelled", fmt.Errorf("sample 3: %w", context.Canceled), ExitInterrupted},
		{"configuration", errors.Configuration("bad flag"), ExitConfiguration},
		{"wrapped configuration", fmt.Errorf("load: %w", errors.Configuration("bad")), ExitConfiguration},
		{"not found", errors.New(errors.ErrCodeFileNotFound, "missing"), ExitFailure},
		{"plain", stderrors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseLogFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Formatter
		wantErr bool
	}{
		{"", log.TextFormatter, false},
		{"text", log.TextFormatter, false},
		{"JSON", log.JSONFormatter, false},
		{"logfmt", log.LogfmtFormatter, false},
		{"xml", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLogFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLogFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestModelFlagsOverrideOnlyWhenSet(t *testing.T) {
	var model modelFlags
	fs := pflag.NewFlagSet("partition", pflag.ContinueOnError)
	model.register(fs, true)
	if err := fs.Parse([]string{"-Q", "4", "--beta", "0", "--organisms", "o1,o2", "-w", "3"}); err != nil {
		t.Fatal(err)
	}

	opts := pipeline.DefaultOptions()
	opts.Seed = 99
	opts.ChunkSize = 50
	model.apply(fs, &opts)

	if opts.Q != 4 || opts.Beta != 0 || opts.Workers != 3 {
		t.Errorf("Q=%d beta=%g workers=%d, want 4 0 3", opts.Q, opts.Beta, opts.Workers)
	}
	if strings.Join(opts.Organisms, ",") != "o1,o2" {
		t.Errorf("organisms = %v", opts.Organisms)
	}
	if opts.Seed != 99 || opts.ChunkSize != 50 {
		t.Errorf("unset flags overrode seed=%d chunk_size=%d", opts.Seed, opts.ChunkSize)
	}
}

func TestModelFlagsWithoutWorkers(t *testing.T) {
	var model modelFlags
	fs := pflag.NewFlagSet("evolution", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	model.register(fs, false)
	if fs.Lookup("workers") != nil {
		t.Error("workers flag registered for evolution")
	}
}

func TestClassList(t *testing.T) {
	if _, err := classList([]string{"persistent", "pangenome"}); err != nil {
		t.Errorf("valid classes rejected: %v", err)
	}
	if _, err := classList([]string{"core"}); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("err = %v, want a configuration error", err)
	}
}

func TestDescribeResampling(t *testing.T) {
	got := describeResampling(evolution.DefaultResampling())
	want := "ratio 0.1, 10 to 10 repeats, step 1, up to all organisms"
	if got != want {
		t.Errorf("describeResampling() = %q, want %q", got, want)
	}
	r := evolution.DefaultResampling()
	r.MaxRepeats, r.Limit = evolution.Unlimited, 20
	if got := describeResampling(r); !strings.Contains(got, "to Inf repeats") || !strings.Contains(got, "up to 20") {
		t.Errorf("describeResampling() = %q", got)
	}
}

func TestPartitionCommand(t *testing.T) {
	input := toyMatrix(t)
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := runCLI(t, "partition", input, "-Q", "3", "--quiet", "--no-cache", "-o", outDir)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	for _, name := range []string{pkgio.GraphFile, pkgio.MatrixFile, pkgio.SummaryStatsFile, pkgio.PangenomeFile, UShapeFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
	if !strings.Contains(out, "persistent") {
		t.Errorf("output does not show the class table:\n%s", out)
	}

	// The exported graph is a valid input again.
	g, err := pkgio.Import(filepath.Join(outDir, pkgio.GraphFile))
	if err != nil {
		t.Fatal(err)
	}
	if !g.Partitioned() || g.NumFamilies() != 10 {
		t.Errorf("exported graph partitioned=%v families=%d", g.Partitioned(), g.NumFamilies())
	}
}

func TestPartitionStatsOnlyWritesNothing(t *testing.T) {
	input := toyMatrix(t)
	outDir := filepath.Join(t.TempDir(), "out")

	if _, err := runCLI(t, "partition", input, "-Q", "3", "--quiet", "--no-cache", "--stats-only", "-o", outDir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Errorf("stats-only run created %s", outDir)
	}
}

func TestCommandErrors(t *testing.T) {
	input := toyMatrix(t)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing input", []string{"partition", filepath.Join(t.TempDir(), "none.Rtab"), "--no-cache"}, ExitFailure},
		{"unknown flag", []string{"partition", input, "--no-such-flag"}, ExitConfiguration},
		{"bad log format", []string{"--log-format", "xml", "partition", input}, ExitConfiguration},
		{"bad resampling", []string{"evolution", input, "-r", "1,2,3"}, ExitConfiguration},
		{"evolution without input", []string{"evolution"}, ExitConfiguration},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "none.toml"), "partition", input}, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := ExitCode(err); got != tt.code {
				t.Errorf("ExitCode(%v) = %d, want %d", err, got, tt.code)
			}
		})
	}
}

func TestEvolutionAndRuns(t *testing.T) {
	input := toyMatrix(t)
	outDir := filepath.Join(t.TempDir(), "evol")
	db := filepath.Join(t.TempDir(), "runs.db")
	metrics := filepath.Join(t.TempDir(), "panpart.prom")

	_, err := runCLI(t, "--metrics-file", metrics, "evolution", input,
		"-Q", "3", "-r", "1,1,2,1,4,1", "--no-cache", "-o", outDir, "--db", db)
	if err != nil {
		t.Fatalf("evolution: %v", err)
	}
	for _, name := range []string{evolution.StatsFile, evolution.SummaryFile, evolution.ParamsFile, EvolutionPlotFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
	prom, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(prom), "panpart_") {
		t.Errorf("metrics file has no panpart metrics:\n%s", prom)
	}

	out, err := runCLI(t, "runs", "list", "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "toy.Rtab") {
		t.Errorf("runs list does not show the input:\n%s", out)
	}

	// Any run id prefix addresses the run; the table shows 8 characters.
	id := runIDFromTable(t, out)
	out, err = runCLI(t, "runs", "show", id, "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1,1,2,1,4,1") {
		t.Errorf("runs show does not show the resampling:\n%s", out)
	}

	exportDir := filepath.Join(t.TempDir(), "export")
	if _, err := runCLI(t, "runs", "export", id, "--db", db, "-o", exportDir, "--plot=false"); err != nil {
		t.Fatal(err)
	}
	want, err := os.ReadFile(filepath.Join(outDir, evolution.StatsFile))
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(exportDir, evolution.StatsFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(bytes.Split(bytes.TrimSpace(got), []byte("\n"))) != len(bytes.Split(bytes.TrimSpace(want), []byte("\n"))) {
		t.Errorf("exported log differs in length:\n%s\nwant\n%s", got, want)
	}

	// Recomputing from the exported log gives the same summary.
	fromLog := filepath.Join(t.TempDir(), "fromlog")
	if _, err := runCLI(t, "evolution", "--from-log", filepath.Join(exportDir, evolution.StatsFile), "-o", fromLog); err != nil {
		t.Fatal(err)
	}
	a, _ := os.ReadFile(filepath.Join(exportDir, evolution.SummaryFile))
	b, _ := os.ReadFile(filepath.Join(fromLog, evolution.SummaryFile))
	if !bytes.Equal(a, b) {
		t.Errorf("summary from log differs:\n%s\nwant\n%s", b, a)
	}

	if _, err := runCLI(t, "runs", "delete", id, "--db", db); err != nil {
		t.Fatal(err)
	}
	out, err = runCLI(t, "runs", "list", "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No runs") {
		t.Errorf("run still listed after delete:\n%s", out)
	}
	if _, err := runCLI(t, "runs", "show", id, "--db", db); !errors.Is(err, errors.ErrCodeInvalidInput) && !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("show after delete: err = %v", err)
	}
}

// runIDFromTable finds the first 8 character hex id in a runs table.
func runIDFromTable(t *testing.T, table string) string {
	t.Helper()
	for _, field := range strings.FieldsFunc(table, func(r rune) bool {
		return r == ' ' || r == '│' || r == '\n' || r == '|'
	}) {
		if len(field) == 8 && strings.Trim(field, "0123456789abcdef") == "" {
			return field
		}
	}
	t.Fatalf("no run id in:\n%s", table)
	return ""
}

func TestRenderCommands(t *testing.T) {
	input := toyMatrix(t)
	outDir := filepath.Join(t.TempDir(), "out")
	if _, err := runCLI(t, "partition", input, "-Q", "3", "--quiet", "--no-cache", "--plot=false", "-o", outDir); err != nil {
		t.Fatal(err)
	}
	graph := filepath.Join(outDir, pkgio.GraphFile)

	base := filepath.Join(t.TempDir(), "figs", "toy")
	if _, err := runCLI(t, "render", "graph", graph, "-f", "dot", "-o", base); err != nil {
		t.Fatal(err)
	}
	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dot), "digraph") && !strings.Contains(string(dot), "graph") {
		t.Errorf("dot output:\n%s", dot)
	}

	if _, err := runCLI(t, "render", "ushape", graph, "-o", base+"_u", "--title", "Toy"); err != nil {
		t.Fatal(err)
	}
	svg, err := os.ReadFile(base + "_u.svg")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), "<svg") || !strings.Contains(string(svg), "Toy") {
		t.Errorf("ushape svg missing root or title")
	}

	if _, err := runCLI(t, "render", "ushape", graph, "-f", "dot"); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("dot ushape: err = %v, want a configuration error", err)
	}
}

func TestCachePath(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(t.TempDir(), "panpart.toml")
	if err := os.WriteFile(cfg, []byte(fmt.Sprintf("[cache]\ndir = %q\n", dir)), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "--config", cfg, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != dir {
		t.Errorf("cache path = %q, want %q", strings.TrimSpace(out), dir)
	}

	out, err = runCLI(t, "--config", cfg, "cache", "clear")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Cleared 0") {
		t.Errorf("cache clear output:\n%s", out)
	}

	out, err = runCLI(t, "--config", cfg, "cache", "info")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"file", dir, "0 (0 B)"} {
		if !strings.Contains(out, want) {
			t.Errorf("cache info output missing %q:\n%s", want, out)
		}
	}
}

func TestDefaultCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	dir, err := defaultCacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg-cache", appName) {
		t.Errorf("defaultCacheDir() = %s", dir)
	}

	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	db, err := defaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if db != filepath.Join("/tmp/xdg-data", appName, RunsFile) {
		t.Errorf("defaultDBPath() = %s", db)
	}
}

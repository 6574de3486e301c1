package io

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/matzehuels/panpart/pkg/buildinfo"
	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/pangenome"
	"github.com/matzehuels/panpart/pkg/partition"
)

// Result file names.
const (
	PartitionsDir    = "partitions"
	PangenomeFile    = "pangenome.txt"
	SummaryStatsFile = "summary_stats.txt"
	MatrixFile       = "gene_presence_absence.Rtab"
	GraphFile        = "pangenome.json"
)

// WriteResults writes the partition results of g into dir:
//
//   - partitions/<class>.txt for every model, exact and soft class, plus one
//     file per shell sub-partition (S1, S2, ...); families the run filtered
//     out appear in no class file
//   - pangenome.txt listing every family
//   - summary_stats.txt with the class counts of stats
//
// command is recorded in the summary; it may be empty.
func WriteResults(dir string, g *pangenome.Graph, stats partition.Stats, command string) error {
	partDir := filepath.Join(dir, PartitionsDir)
	if err := os.MkdirAll(partDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", partDir)
	}

	lists := make(map[string][]string)
	var all []string
	for _, f := range g.Families() {
		if f.NumOrganisms() == 0 {
			continue
		}
		all = append(all, f.ID)
		if !f.Labeled() {
			continue
		}
		lists[string(f.Partition)] = append(lists[string(f.Partition)], f.ID)
		lists[string(f.FormerPartition)] = append(lists[string(f.FormerPartition)], f.ID)
		lists[string(f.SoftPartition)] = append(lists[string(f.SoftPartition)], f.ID)
		if f.Partition == pangenome.Shell && len(f.Subpartition) > 1 {
			lists[f.Subpartition] = append(lists[f.Subpartition], f.ID)
		}
	}

	names := []string{
		string(pangenome.Persistent), string(pangenome.Shell), string(pangenome.Cloud), string(pangenome.Undefined),
		string(pangenome.ExactCore), string(pangenome.ExactAccessory),
		string(pangenome.SoftCore), string(pangenome.SoftAccessory),
	}
	for name := range lists {
		if strings.HasPrefix(name, "S") && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.SortStableFunc(names[8:], compareSubpartitions)

	for _, name := range names {
		if err := writeLines(filepath.Join(partDir, name+".txt"), lists[name]); err != nil {
			return err
		}
	}
	if err := writeLines(filepath.Join(dir, PangenomeFile), all); err != nil {
		return err
	}
	return writeSummaryStats(filepath.Join(dir, SummaryStatsFile), g, stats, command)
}

// compareSubpartitions orders S2 before S10.
func compareSubpartitions(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	bw := bufio.NewWriter(f)
	for _, l := range lines {
		bw.WriteString(l)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return f.Close()
}

func writeSummaryStats(path string, g *pangenome.Graph, stats partition.Stats, command string) error {
	var b strings.Builder
	if command != "" {
		fmt.Fprintf(&b, "Command: %s\n", command)
	}
	fmt.Fprintf(&b, "panpart version: %s\n", buildinfo.Version)
	fmt.Fprintf(&b, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(&b, "organisms: %d\n", g.NumOrganisms())
	fmt.Fprintf(&b, "edges: %d\n", g.NumEdges())
	for _, class := range partition.Classes {
		n, _ := stats.Count(class)
		fmt.Fprintf(&b, "%s: %d\n", class, n)
	}
	fmt.Fprintf(&b, "Q: %d\n", stats.Q)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

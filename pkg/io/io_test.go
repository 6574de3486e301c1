package io

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/pangenome"
	"github.com/matzehuels/panpart/pkg/partition"
)

const sampleJSON = `{
  "organisms": [
    {"id": "a", "contigs": [
      {"id": "chr", "circular": true, "genes": [
        {"id": "a1", "family": "F1"}, {"id": "a2", "family": "F2"}, {"id": "a3", "family": "F3"}
      ]}
    ]},
    {"id": "b", "contigs": [
      {"id": "chr", "genes": [{"id": "b1", "family": "F1"}, {"id": "b2", "family": "F2"}]}
    ]}
  ]
}`

func TestReadJSON(t *testing.T) {
	g, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	if !g.Finalized() || g.NumOrganisms() != 2 || g.NumFamilies() != 3 {
		t.Fatalf("organisms=%d families=%d", g.NumOrganisms(), g.NumFamilies())
	}
	if g.Partitioned() {
		t.Error("unlabeled input marked as partitioned")
	}
	tests := []struct {
		a, b string
		want int
	}{
		{"F1", "F2", 2}, // adjacent in a and b
		{"F2", "F3", 1},
		{"F3", "F1", 1}, // circular closure in a
	}
	for _, tt := range tests {
		if got := g.Weight(tt.a, tt.b); got != tt.want {
			t.Errorf("Weight(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	g, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	g.ApplyLabels(map[string]pangenome.Label{
		"F1": {Partition: pangenome.Persistent, FormerPartition: pangenome.ExactCore, SoftPartition: pangenome.SoftCore},
		"F2": {Partition: pangenome.Shell, Subpartition: "S1", FormerPartition: pangenome.ExactCore, SoftPartition: pangenome.SoftCore},
		"F3": {Partition: pangenome.Cloud, FormerPartition: pangenome.ExactAccessory, SoftPartition: pangenome.SoftAccessory},
	}, 3)

	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		t.Fatal(err)
	}
	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Partitioned() || back.Q() != 3 {
		t.Fatalf("partitioned=%v Q=%d", back.Partitioned(), back.Q())
	}
	if f := back.Family("F2"); f.Partition != pangenome.Shell || f.Subpartition != "S1" {
		t.Errorf("F2 = %s/%s", f.Partition, f.Subpartition)
	}
	if f := back.Family("F3"); f.SoftPartition != pangenome.SoftAccessory {
		t.Errorf("F3 soft = %s", f.SoftPartition)
	}
	if back.Weight("F3", "F1") != 1 {
		t.Error("circular contig lost")
	}
}

func TestJSONRoundTripKeepsUnlabeledFamilies(t *testing.T) {
	g, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	g.ApplyLabels(map[string]pangenome.Label{
		"F1": {Partition: pangenome.Persistent, FormerPartition: pangenome.ExactCore, SoftPartition: pangenome.SoftCore},
		"F2": {Partition: pangenome.Persistent, FormerPartition: pangenome.ExactCore, SoftPartition: pangenome.SoftCore},
	}, 3)

	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		t.Fatal(err)
	}
	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Family("F1").Labeled() {
		t.Error("F1 lost its labels")
	}
	if f := back.Family("F3"); f.Labeled() || f.Partition != pangenome.Undefined {
		t.Errorf("F3 = %s (labeled %v), want undefined and unlabeled", f.Partition, f.Labeled())
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(error) bool
	}{
		{"malformed", `{"organisms": [`, func(err error) bool { return errors.Is(err, errors.ErrCodeInvalidFormat) }},
		{"duplicate organism", `{"organisms": [{"id": "a"}, {"id": "a"}]}`,
			func(err error) bool { return stderrors.Is(err, pangenome.ErrDuplicateOrganism) }},
		{"duplicate gene", `{"organisms": [{"id": "a", "contigs": [{"id": "c", "genes": [{"id": "g", "family": "F"}, {"id": "g", "family": "F"}]}]}]}`,
			func(err error) bool { return stderrors.Is(err, pangenome.ErrDuplicateGene) }},
		{"bad partition", `{"organisms": [{"id": "a", "contigs": [{"id": "c", "genes": [{"id": "g", "family": "F"}]}]}], "families": [{"id": "F", "partition": "core"}], "q": 3}`,
			func(err error) bool { return errors.Is(err, errors.ErrCodeInvalidFormat) }},
		{"unknown family", `{"organisms": [{"id": "a"}], "families": [{"id": "F", "partition": "cloud"}], "q": 3}`,
			func(err error) bool { return stderrors.Is(err, pangenome.ErrUnknownFamily) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.input))
			if err == nil || !tt.check(err) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

const sampleRtab = "Gene\to1\to2\to3\nF1\t1\t1\t1\nF2\t2\t0\t1\n\nF3\t0\t0\t1\n"

func TestReadRtab(t *testing.T) {
	g, err := ReadRtab(strings.NewReader(sampleRtab))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(g.OrganismIDs(), []string{"o1", "o2", "o3"}) {
		t.Errorf("organisms = %v", g.OrganismIDs())
	}
	f2 := g.Family("F2")
	if f2.NumOrganisms() != 2 || f2.MaxCopies() != 2 || f2.NumGenes() != 3 {
		t.Errorf("F2 organisms=%d copies=%d genes=%d", f2.NumOrganisms(), f2.MaxCopies(), f2.NumGenes())
	}
	if g.NumEdges() != 0 {
		t.Errorf("matrix input has %d edges", g.NumEdges())
	}

	var buf bytes.Buffer
	if err := WriteRtab(g, &buf); err != nil {
		t.Fatal(err)
	}
	if want := "Gene\to1\to2\to3\nF1\t1\t1\t1\nF2\t1\t0\t1\nF3\t0\t0\t1\n"; buf.String() != want {
		t.Errorf("WriteRtab = %q, want %q", buf.String(), want)
	}
}

func TestRtabThroughJSON(t *testing.T) {
	g, err := ReadRtab(strings.NewReader(sampleRtab))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		t.Fatal(err)
	}
	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if f := back.Family("F2"); f == nil || f.Count(back.Organism("o1")) != 2 {
		t.Errorf("presence counts not preserved")
	}
}

func TestReadRtabErrors(t *testing.T) {
	tests := []struct {
		name, input string
	}{
		{"empty", ""},
		{"no organisms", "Gene\n"},
		{"short row", "Gene\to1\to2\nF1\t1\n"},
		{"not a count", "Gene\to1\nF1\tyes\n"},
		{"negative", "Gene\to1\nF1\t-1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadRtab(strings.NewReader(tt.input)); !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Errorf("err = %v, want invalid format", err)
			}
		})
	}
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "pan.JSON")
	rtabPath := filepath.Join(dir, "pan.Rtab")
	if err := os.WriteFile(jsonPath, []byte(sampleJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(rtabPath, []byte(sampleRtab), 0o644); err != nil {
		t.Fatal(err)
	}
	if g, err := Import(jsonPath); err != nil || g.NumOrganisms() != 2 {
		t.Errorf("json import: %v", err)
	}
	g, err := Import(rtabPath)
	if err != nil || g.NumOrganisms() != 3 {
		t.Fatalf("rtab import: %v", err)
	}
	exported := filepath.Join(dir, MatrixFile)
	if err := ExportRtab(g, exported); err != nil {
		t.Fatal(err)
	}
	if back, err := Import(exported); err != nil || back.NumFamilies() != g.NumFamilies() {
		t.Errorf("exported matrix import: %v", err)
	}
	if _, err := Import(filepath.Join(dir, "missing.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: err = %v", err)
	}
}

func TestWriteResults(t *testing.T) {
	g, err := ReadRtab(strings.NewReader("Gene\to1\to2\nP1\t1\t1\nS1\t1\t0\nS2\t0\t1\nC1\t1\t0\nX1\t3\t1\n"))
	if err != nil {
		t.Fatal(err)
	}
	labels := map[string]pangenome.Label{
		"P1": {Partition: pangenome.Persistent, FormerPartition: pangenome.ExactCore, SoftPartition: pangenome.SoftCore},
		"S1": {Partition: pangenome.Shell, Subpartition: "S1", FormerPartition: pangenome.ExactAccessory, SoftPartition: pangenome.SoftAccessory},
		"S2": {Partition: pangenome.Shell, Subpartition: "S2", FormerPartition: pangenome.ExactAccessory, SoftPartition: pangenome.SoftAccessory},
		"C1": {Partition: pangenome.Cloud, FormerPartition: pangenome.ExactAccessory, SoftPartition: pangenome.SoftAccessory},
	}
	// X1 was filtered out of the run.
	g.ApplyLabels(labels, 4)
	stats, err := partition.NewStats(labels, 4)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	if err := WriteResults(dir, g, stats, "panpart partition pan.Rtab"); err != nil {
		t.Fatal(err)
	}
	read := func(name string) string {
		t.Helper()
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}

	files := map[string]string{
		"partitions/persistent.txt":      "P1\n",
		"partitions/shell.txt":           "S1\nS2\n",
		"partitions/S2.txt":              "S2\n",
		"partitions/undefined.txt":       "",
		"partitions/exact_accessory.txt": "S1\nS2\nC1\n",
		"pangenome.txt":                  "P1\nS1\nS2\nC1\nX1\n",
	}
	for name, want := range files {
		if got := read(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	summary := read(SummaryStatsFile)
	for _, want := range []string{"Command: panpart partition pan.Rtab\n", "shell: 2\n", "pangenome: 4\n", "Q: 4\n"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

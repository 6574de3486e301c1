package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/panpart/pkg/pangenome"
)

// chain builds organism a with families A-B-C in order, b with A-B and c
// with the lone family D.
func chain(t *testing.T) *pangenome.Graph {
	t.Helper()
	g := pangenome.New()
	genes := map[string][]string{"a": {"A", "B", "C"}, "b": {"A", "B"}, "c": {"D"}}
	for _, org := range []string{"a", "b", "c"} {
		if _, err := g.AddOrganism(org); err != nil {
			t.Fatal(err)
		}
		if _, err := g.AddContig(org, "chr", false); err != nil {
			t.Fatal(err)
		}
		for _, fam := range genes[org] {
			if err := g.AddGene(org, "chr", org+"_"+fam, fam); err != nil {
				t.Fatal(err)
			}
		}
	}
	g.Finalize()
	return g
}

func TestToDOT_Basic(t *testing.T) {
	dot := ToDOT(chain(t), Options{})

	if !strings.HasPrefix(dot, "graph G {") {
		t.Error("ToDOT() output missing graph declaration")
	}
	for _, want := range []string{`"A" [`, `"B" [`, `"C" [`, `"A" -- "B" [penwidth=2.00]`, `"B" -- "C" [penwidth=1.00]`} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() output missing %s", want)
		}
	}
	if strings.Contains(dot, `"D" [`) {
		t.Error("ToDOT() kept an isolated family")
	}
	if !strings.Contains(dot, `fillcolor="#828282"`) {
		t.Error("unpartitioned families should be grey")
	}
}

func TestToDOT_MinWeight(t *testing.T) {
	dot := ToDOT(chain(t), Options{MinWeight: 2, KeepIsolated: true})

	if strings.Contains(dot, `"B" -- "C"`) {
		t.Error("ToDOT() kept an edge below MinWeight")
	}
	if !strings.Contains(dot, `"C" [`) || !strings.Contains(dot, `"D" [`) {
		t.Error("KeepIsolated dropped a family")
	}
}

func TestToDOT_Partitioned(t *testing.T) {
	g := chain(t)
	g.ApplyLabels(map[string]pangenome.Label{
		"A": {Partition: pangenome.Persistent},
		"B": {Partition: pangenome.Shell, Subpartition: "S1"},
		"C": {Partition: pangenome.Cloud},
	}, 4)

	dot := ToDOT(g, Options{Detailed: true})
	for _, want := range []string{`fillcolor="#F7A507"`, `fillcolor="#00D860"`, `fillcolor="#79DEFF"`, `partition: S1`} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() output missing %s", want)
		}
	}
}

func TestFmtLabel(t *testing.T) {
	g := chain(t)
	f := g.Family("A")

	if label := fmtLabel(f, g, false); label != "A" {
		t.Errorf("fmtLabel() simple mode = %q, want %q", label, "A")
	}
	label := fmtLabel(f, g, true)
	if label != "A\norganisms: 2/3" {
		t.Errorf("fmtLabel() detailed = %q", label)
	}
}

func TestPenWidth(t *testing.T) {
	tests := []struct {
		weight int
		want   float64
	}{
		{0, 1}, {1, 1}, {2, 2}, {8, 4},
	}
	for _, tt := range tests {
		if got := penWidth(tt.weight); got != tt.want {
			t.Errorf("penWidth(%d) = %v, want %v", tt.weight, got, tt.want)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{
			name: "with viewBox",
			svg:  `<svg viewBox="10 20 800 600" xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800.00 600.00" width="800" height="600">content</svg>`,
		},
		{
			name: "no viewBox",
			svg:  `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
		},
		{
			name: "zero dimensions",
			svg:  `<svg viewBox="0 0 0 0">content</svg>`,
			want: `<svg viewBox="0 0 0 0">content</svg>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeViewBox([]byte(tt.svg))
			if string(got) != tt.want {
				t.Errorf("normalizeViewBox() = %q, want %q", string(got), tt.want)
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(ToDOT(chain(t), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderSVG() output missing <svg> tag")
	}
}

func TestRenderSVG_InvalidDOT(t *testing.T) {
	if _, err := RenderSVG(`not valid DOT {{{`); err == nil {
		t.Error("RenderSVG() should return error for invalid DOT")
	}
}

package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/panpart/pkg/pangenome"
	"github.com/matzehuels/panpart/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// MinWeight drops edges observed in fewer organisms. Zero keeps all.
	MinWeight int
	// KeepIsolated keeps families without any drawn edge.
	KeepIsolated bool
	// Detailed adds the partition and organism count to node labels.
	// When false, only the family ID is shown.
	Detailed bool
}

// ToDOT converts a pangenome graph to Graphviz DOT format. Families are
// filled with their partition color; unpartitioned graphs are drawn grey.
func ToDOT(g *pangenome.Graph, opts Options) string {
	var edges []pangenome.Edge
	linked := make(map[string]bool)
	for _, e := range g.Edges() {
		if e.Weight < opts.MinWeight {
			continue
		}
		edges = append(edges, e)
		linked[e.From] = true
		linked[e.To] = true
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fontsize=14, penwidth=0];\n")
	buf.WriteString("  edge [color=\"#00000055\"];\n")
	buf.WriteString("\n")

	for _, f := range g.Families() {
		if f.NumOrganisms() == 0 || (!opts.KeepIsolated && !linked[f.ID]) {
			continue
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", f.ID, strings.Join(fmtAttrs(f, g, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -- %q [penwidth=%.2f];\n", e.From, e.To, penWidth(e.Weight))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(f *pangenome.Family, g *pangenome.Graph, detailed bool) string {
	if !detailed {
		return f.ID
	}
	parts := []string{
		fmt.Sprintf("partition: %s", f.Subpartition),
		fmt.Sprintf("organisms: %d/%d", f.NumOrganisms(), g.NumOrganisms()),
	}
	if !g.Partitioned() {
		parts = parts[1:]
	}
	return f.ID + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(f *pangenome.Family, g *pangenome.Graph, detailed bool) []string {
	color := render.UndefinedColor
	if g.Partitioned() {
		color = render.Color(f.Partition)
	}
	return []string{
		fmt.Sprintf("label=%q", fmtLabel(f, g, detailed)),
		fmt.Sprintf("fillcolor=%q", color),
	}
}

// penWidth grows logarithmically with the edge weight.
func penWidth(weight int) float64 {
	return 1 + math.Log2(float64(max(weight, 1)))
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion. A scale of 2.0
// produces a 2x resolution image.
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}

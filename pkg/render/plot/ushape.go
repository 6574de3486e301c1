package plot

import (
	"bytes"
	"fmt"
	"math"

	"github.com/matzehuels/panpart/pkg/pangenome"
	"github.com/matzehuels/panpart/pkg/render"
)

// Histogram counts, for every organism count n in 1..N, the families of
// each partition present in exactly n organisms.
type Histogram struct {
	Organisms int
	Counts    map[pangenome.Partition][]int // index n-1
}

// PresenceHistogram builds the U-shape histogram of g.
func PresenceHistogram(g *pangenome.Graph) Histogram {
	h := Histogram{Organisms: g.NumOrganisms(), Counts: make(map[pangenome.Partition][]int)}
	for _, p := range pangenome.Partitions {
		h.Counts[p] = make([]int, h.Organisms)
	}
	for _, f := range g.Families() {
		n := f.NumOrganisms()
		if n == 0 {
			continue
		}
		p := f.Partition
		if !g.Partitioned() {
			p = pangenome.Undefined
		}
		h.Counts[p][n-1]++
	}
	return h
}

// Total returns the number of families present in n organisms.
func (h Histogram) Total(n int) int {
	t := 0
	for _, c := range h.Counts {
		t += c[n-1]
	}
	return t
}

// UShape draws the presence histogram of g as SVG.
func UShape(g *pangenome.Graph, opts ...Option) []byte {
	f := newFrame(opts...)
	h := PresenceHistogram(g)

	maxCount := 0
	for n := 1; n <= h.Organisms; n++ {
		maxCount = max(maxCount, h.Total(n))
	}
	yhi := float64(max(maxCount, 1))
	xlo, xhi := 0.5, float64(h.Organisms)+0.5

	var buf bytes.Buffer
	f.open(&buf)
	barWidth := f.plotWidth() / float64(max(h.Organisms, 1)) * 0.9
	for n := 1; n <= h.Organisms; n++ {
		x := f.x(float64(n), xlo, xhi) - barWidth/2
		base := 0
		for _, p := range pangenome.Partitions {
			c := h.Counts[p][n-1]
			if c == 0 {
				continue
			}
			top := f.y(float64(base+c), yhi)
			bottom := f.y(float64(base), yhi)
			fmt.Fprintf(&buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"><title>%s: %d families in %d organisms</title></rect>`+"\n",
				x, top, barWidth, bottom-top, render.Color(p), p, c, n)
			base += c
		}
	}
	if f.softCore > 0 && h.Organisms > 0 {
		// Soft core families start at the first count reaching the threshold.
		n := math.Ceil(f.softCore * float64(h.Organisms))
		x := f.x(n-0.5, xlo, xhi)
		fmt.Fprintf(&buf, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#FF2828" stroke-dasharray="6 4"/>`+"\n",
			x, marginTop, x, marginTop+f.plotHeight())
	}
	f.axes(&buf, xlo, xhi, yhi, "number of organisms", "number of families")

	var names, colors []string
	for _, p := range pangenome.Partitions {
		names = append(names, string(p))
		colors = append(colors, render.Color(p))
	}
	f.legend(&buf, names, colors)
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

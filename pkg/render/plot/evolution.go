package plot

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/panpart/pkg/evolution"
	"github.com/matzehuels/panpart/pkg/render"
)

// DefaultEvolutionClasses are the classes drawn by [Evolution] when none
// are given.
var DefaultEvolutionClasses = []string{"persistent", "shell", "cloud", "pangenome"}

func classColor(class string) string {
	switch class {
	case "persistent", "exact_core", "soft_core":
		return render.PersistentColor
	case "shell":
		return render.ShellColor
	case "cloud", "exact_accessory", "soft_accessory":
		return render.CloudColor
	case "undefined":
		return render.UndefinedColor
	}
	return "#000000"
}

// Evolution draws rarefaction curves as SVG. Classes without any finite
// median are skipped; fits are matched to curves by class.
func Evolution(curves []evolution.Curve, fits []evolution.Fit, classes []string, opts ...Option) []byte {
	f := newFrame(opts...)
	if len(classes) == 0 {
		classes = DefaultEvolutionClasses
	}

	var drawn []evolution.Curve
	xhi, yhi := 1.0, 1.0
	for _, c := range curves {
		if !slices.Contains(classes, c.Class) {
			continue
		}
		finite := false
		for _, p := range c.Points {
			if math.IsNaN(p.Median) {
				continue
			}
			finite = true
			xhi = max(xhi, float64(p.N))
			yhi = max(yhi, p.Q3, p.Median)
		}
		if finite {
			drawn = append(drawn, c)
		}
	}
	yhi *= 1.05

	var buf bytes.Buffer
	f.open(&buf)
	var names, colors []string
	for _, c := range drawn {
		color := classColor(c.Class)
		f.band(&buf, c, xhi, yhi, color)
		f.line(&buf, c, xhi, yhi, color)
		if i := slices.IndexFunc(fits, func(fit evolution.Fit) bool { return fit.Class == c.Class }); i >= 0 && fits[i].OK() {
			f.heaps(&buf, fits[i], xhi, yhi, color)
		}
		names = append(names, c.Class)
		colors = append(colors, color)
	}
	f.axes(&buf, 0, xhi, yhi, "number of organisms", "number of families")
	f.legend(&buf, names, colors)
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// band fills the interquartile range: along Q1 and back along Q3.
func (f frame) band(buf *bytes.Buffer, c evolution.Curve, xhi, yhi float64, color string) {
	var lower, upper []string
	for _, p := range c.Points {
		if math.IsNaN(p.Q1) || math.IsNaN(p.Q3) {
			continue
		}
		x := f.x(float64(p.N), 0, xhi)
		lower = append(lower, fmt.Sprintf("%.1f,%.1f", x, f.y(p.Q1, yhi)))
		upper = append(upper, fmt.Sprintf("%.1f,%.1f", x, f.y(p.Q3, yhi)))
	}
	if len(lower) < 2 {
		return
	}
	slices.Reverse(upper)
	fmt.Fprintf(buf, `  <polygon points="%s %s" fill="%s" fill-opacity="0.25" stroke="none"/>`+"\n",
		strings.Join(lower, " "), strings.Join(upper, " "), color)
}

func (f frame) line(buf *bytes.Buffer, c evolution.Curve, xhi, yhi float64, color string) {
	var pts []string
	for _, p := range c.Points {
		if math.IsNaN(p.Median) {
			continue
		}
		pts = append(pts, fmt.Sprintf("%.1f,%.1f", f.x(float64(p.N), 0, xhi), f.y(p.Median, yhi)))
	}
	fmt.Fprintf(buf, `  <polyline points="%s" fill="none" stroke="%s" stroke-width="2"><title>%s median</title></polyline>`+"\n",
		strings.Join(pts, " "), color, c.Class)
}

// heaps draws kappa * N^gamma over the plotted range.
func (f frame) heaps(buf *bytes.Buffer, fit evolution.Fit, xhi, yhi float64, color string) {
	const steps = 50
	var pts []string
	for i := 0; i <= steps; i++ {
		n := 1 + (xhi-1)*float64(i)/steps
		v := fit.Kappa * math.Pow(n, fit.Gamma)
		if v > yhi {
			break
		}
		pts = append(pts, fmt.Sprintf("%.1f,%.1f", f.x(n, 0, xhi), f.y(v, yhi)))
	}
	if len(pts) < 2 {
		return
	}
	fmt.Fprintf(buf, `  <polyline points="%s" fill="none" stroke="%s" stroke-dasharray="4 3"><title>%s: %.3g N^%.3f</title></polyline>`+"\n",
		strings.Join(pts, " "), color, fit.Class, fit.Kappa, fit.Gamma)
}

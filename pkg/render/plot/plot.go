// Package plot draws the statistical figures of a pangenome as standalone
// SVG documents.
//
// [UShape] draws the distribution of family presence: for every organism
// count, the number of families present in exactly that many organisms,
// stacked by partition. In a typical pangenome the histogram is U-shaped,
// cloud families on the left and persistent families on the right.
//
// [Evolution] draws the rarefaction curves of an evolution run: the median
// class count per subset size, the interquartile band around it and, when
// the fit succeeded, the Heaps' law curve.
package plot

import (
	"bytes"
	"fmt"
	"html"
	"math"
)

// Option configures a plot.
type Option func(*frame)

type frame struct {
	width, height float64
	title         string
	softCore      float64
}

// WithSize sets the size of the SVG canvas in pixels.
func WithSize(width, height float64) Option {
	return func(f *frame) { f.width, f.height = width, height }
}

// WithTitle sets the plot title.
func WithTitle(title string) Option { return func(f *frame) { f.title = title } }

// WithSoftCoreThreshold marks the soft core boundary on a U-shape plot.
func WithSoftCoreThreshold(t float64) Option { return func(f *frame) { f.softCore = t } }

const (
	marginLeft   = 70.0
	marginRight  = 150.0
	marginTop    = 40.0
	marginBottom = 50.0
)

func newFrame(opts ...Option) frame {
	f := frame{width: 900, height: 500}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func (f frame) plotWidth() float64  { return f.width - marginLeft - marginRight }
func (f frame) plotHeight() float64 { return f.height - marginTop - marginBottom }

// x maps a data value in [lo, hi] to a canvas coordinate.
func (f frame) x(v, lo, hi float64) float64 {
	if hi == lo {
		return marginLeft
	}
	return marginLeft + (v-lo)/(hi-lo)*f.plotWidth()
}

func (f frame) y(v, hi float64) float64 {
	if hi == 0 {
		return marginTop + f.plotHeight()
	}
	return marginTop + f.plotHeight()*(1-v/hi)
}

func (f frame) open(buf *bytes.Buffer) {
	fmt.Fprintf(buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" font-family="sans-serif" font-size="12">`+"\n",
		f.width, f.height, f.width, f.height)
	fmt.Fprintf(buf, `  <rect width="%.1f" height="%.1f" fill="white"/>`+"\n", f.width, f.height)
	if f.title != "" {
		fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" font-size="16">%s</text>`+"\n",
			marginLeft+f.plotWidth()/2, marginTop/2+6, html.EscapeString(f.title))
	}
}

// axes draws both axes with ticks. The x axis spans [xlo, xhi], the y axis
// [0, yhi].
func (f frame) axes(buf *bytes.Buffer, xlo, xhi, yhi float64, xlabel, ylabel string) {
	bottom := marginTop + f.plotHeight()
	right := marginLeft + f.plotWidth()
	fmt.Fprintf(buf, `  <path d="M%.1f %.1f V%.1f H%.1f" fill="none" stroke="black"/>`+"\n",
		marginLeft, marginTop, bottom, right)

	for _, v := range ticks(xlo, xhi) {
		x := f.x(v, xlo, xhi)
		fmt.Fprintf(buf, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black"/>`+"\n", x, bottom, x, bottom+5)
		fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="middle">%s</text>`+"\n", x, bottom+18, formatTick(v))
	}
	for _, v := range ticks(0, yhi) {
		y := f.y(v, yhi)
		fmt.Fprintf(buf, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black"/>`+"\n", marginLeft-5, y, marginLeft, y)
		fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="end">%s</text>`+"\n", marginLeft-8, y+4, formatTick(v))
	}
	fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="middle">%s</text>`+"\n",
		marginLeft+f.plotWidth()/2, f.height-10, html.EscapeString(xlabel))
	fmt.Fprintf(buf, `  <text transform="translate(16 %.1f) rotate(-90)" text-anchor="middle">%s</text>`+"\n",
		marginTop+f.plotHeight()/2, html.EscapeString(ylabel))
}

// legend draws one colored entry per name in the right margin.
func (f frame) legend(buf *bytes.Buffer, names, colors []string) {
	x := marginLeft + f.plotWidth() + 20
	for i, name := range names {
		y := marginTop + float64(i)*20
		fmt.Fprintf(buf, `  <rect x="%.1f" y="%.1f" width="12" height="12" fill="%s"/>`+"\n", x, y, colors[i])
		fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f">%s</text>`+"\n", x+18, y+10, html.EscapeString(name))
	}
}

// ticks returns about five round values covering [lo, hi].
func ticks(lo, hi float64) []float64 {
	if hi <= lo {
		return []float64{lo}
	}
	step := niceStep((hi - lo) / 5)
	var out []float64
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		out = append(out, v)
	}
	return out
}

func niceStep(raw float64) float64 {
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch r := raw / mag; {
	case r <= 1:
		return mag
	case r <= 2:
		return 2 * mag
	case r <= 5:
		return 5 * mag
	}
	return 10 * mag
}

func formatTick(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%g", v)
}

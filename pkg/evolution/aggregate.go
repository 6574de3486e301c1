package evolution

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Point summarizes the values of one class at one subset size.
type Point struct {
	N      int
	Count  int
	Min    float64
	Q1     float64
	Median float64
	Mean   float64
	Q3     float64
	Max    float64
}

// Curve is the evolution of one class with the number of organisms.
type Curve struct {
	Class  string
	Points []Point
}

// Aggregate groups samples by size and summarizes every class. Sizes run
// from 1 to maxN; sizes without a value for a class are left out of that
// class's curve.
func Aggregate(samples []Sample, classes []string, maxN int) []Curve {
	curves := make([]Curve, 0, len(classes))
	for _, class := range classes {
		byN := make(map[int][]float64)
		for _, s := range samples {
			if s.N < 1 || s.N > maxN {
				continue
			}
			if v, ok := s.Value(class); ok {
				byN[s.N] = append(byN[s.N], v)
			}
		}
		c := Curve{Class: class}
		for n := 1; n <= maxN; n++ {
			vals := byN[n]
			if len(vals) == 0 {
				continue
			}
			slices.Sort(vals)
			c.Points = append(c.Points, Point{
				N:      n,
				Count:  len(vals),
				Min:    floats.Min(vals),
				Q1:     Quantile(vals, 0.25),
				Median: Quantile(vals, 0.5),
				Mean:   stat.Mean(vals, nil),
				Q3:     Quantile(vals, 0.75),
				Max:    floats.Max(vals),
			})
		}
		curves = append(curves, c)
	}
	return curves
}

// Quantile returns the p-quantile of sorted values by linear
// interpolation between closest ranks (h = (n-1)p).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	hi := min(lo+1, n-1)
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// IQRArea returns the area of the band between the first and third
// quartiles of a curve, as the polygon running along Q1 by increasing N
// and back along Q3.
func (c Curve) IQRArea() float64 {
	if len(c.Points) == 0 {
		return math.NaN()
	}
	m := len(c.Points)
	xs := make([]float64, 0, 2*m)
	ys := make([]float64, 0, 2*m)
	for _, p := range c.Points {
		xs = append(xs, float64(p.N))
		ys = append(ys, p.Q1)
	}
	for i := m - 1; i >= 0; i-- {
		xs = append(xs, float64(c.Points[i].N))
		ys = append(ys, c.Points[i].Q3)
	}
	return polygonArea(xs, ys)
}

// polygonArea is the shoelace formula.
func polygonArea(xs, ys []float64) float64 {
	n := len(xs)
	sum := 0.0
	for i := range n {
		j := (i + n - 1) % n
		sum += xs[i]*ys[j] - ys[i]*xs[j]
	}
	return math.Abs(sum) / 2
}

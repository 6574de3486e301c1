package evolution

import (
	"math"
	"testing"

	"github.com/matzehuels/panpart/pkg/partition"
)

func TestQuantile(t *testing.T) {
	vals := []float64{1, 2, 3, 4}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1}, {0.25, 1.75}, {0.5, 2.5}, {0.75, 3.25}, {1, 4},
	}
	for _, tt := range tests {
		if got := Quantile(vals, tt.p); got != tt.want {
			t.Errorf("Quantile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := Quantile([]float64{7}, 0.25); got != 7 {
		t.Errorf("single value quantile = %v", got)
	}
	if !math.IsNaN(Quantile(nil, 0.5)) {
		t.Error("empty quantile not NaN")
	}
}

func sample(n, persistent, undefined int) Sample {
	return Sample{N: n, Stats: partition.Stats{
		Persistent: persistent, Undefined: undefined,
		ExactCore: persistent, ExactAccessory: undefined,
		SoftCore: persistent, SoftAccessory: undefined, Q: 3,
	}}
}

func TestAggregate(t *testing.T) {
	samples := []Sample{
		sample(2, 10, 0),
		sample(2, 20, 0),
		sample(2, 99, 1), // persistent is NA
		sample(3, 5, 0),
		sample(9, 1, 0), // beyond maxN
	}
	curves := Aggregate(samples, []string{"persistent", "exact_core"}, 4)
	if len(curves) != 2 {
		t.Fatalf("%d curves", len(curves))
	}

	persistent := curves[0]
	if len(persistent.Points) != 2 {
		t.Fatalf("points = %+v", persistent.Points)
	}
	p := persistent.Points[0]
	if p.N != 2 || p.Count != 2 || p.Min != 10 || p.Max != 20 || p.Mean != 15 || p.Median != 15 {
		t.Errorf("N=2 point = %+v", p)
	}

	core := curves[1]
	if core.Points[0].Count != 3 || core.Points[0].Max != 99 {
		t.Errorf("exact_core ignored a row with undefined families: %+v", core.Points[0])
	}
}

func TestIQRArea(t *testing.T) {
	c := Curve{Points: []Point{
		{N: 1, Q1: 0, Q3: 2},
		{N: 2, Q1: 0, Q3: 2},
		{N: 3, Q1: 0, Q3: 2},
	}}
	if got := c.IQRArea(); got != 4 {
		t.Errorf("IQRArea = %v, want 4", got)
	}
	if !math.IsNaN((Curve{}).IQRArea()) {
		t.Error("empty curve area not NaN")
	}
}

package evolution

import (
	"fmt"
	"slices"
	"strings"
	"testing"
)

func orgs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("o%d", i+1)
	}
	return out
}

func TestBinomial(t *testing.T) {
	tests := []struct {
		n, k int
		want float64
	}{
		{5, 2, 10},
		{10, 0, 1},
		{10, 10, 1},
		{6, 3, 20},
		{3, 4, 0},
		{3, -1, 0},
		{52, 5, 2598960},
	}
	for _, tt := range tests {
		if got := Binomial(tt.n, tt.k); got != tt.want {
			t.Errorf("Binomial(%d, %d) = %v, want %v", tt.n, tt.k, got, tt.want)
		}
	}
}

func TestRepeats(t *testing.T) {
	r := Resampling{Ratio: 0.1, MinRepeats: 3, MaxRepeats: 4, Step: 1, Limit: Unlimited, QMode: QFixed}
	want := map[int]int{1: 3, 2: 3, 3: 4, 4: 4, 5: 4, 6: 3, 7: 3}
	for k, w := range want {
		if got := r.Repeats(8, k); got != w {
			t.Errorf("Repeats(8, %d) = %d, want %d", k, got, w)
		}
	}
	// Never more than the number of combinations.
	r.MinRepeats, r.MaxRepeats = 50, 100
	if got := r.Repeats(5, 1); got != 5 {
		t.Errorf("Repeats(5, 1) = %d, want 5", got)
	}
}

func TestDrawSubsetsEnumeratesSmallPangenomes(t *testing.T) {
	subsets := DrawSubsets(orgs(5), DefaultResampling(), 42)
	sizes := map[int]int{}
	seen := map[string]bool{}
	for _, s := range subsets {
		sizes[len(s)]++
		key := strings.Join(s, ",")
		if seen[key] {
			t.Errorf("subset %v drawn twice", s)
		}
		seen[key] = true
	}
	want := map[int]int{1: 5, 2: 10, 3: 10, 4: 5}
	for k, n := range want {
		if sizes[k] != n {
			t.Errorf("size %d: %d subsets, want %d", k, sizes[k], n)
		}
	}
	if len(subsets) != 30 {
		t.Errorf("%d subsets, want 30", len(subsets))
	}
}

func TestDrawSubsetsDrawsDistinctSubsets(t *testing.T) {
	r := Resampling{Ratio: 0.1, MinRepeats: 3, MaxRepeats: 4, Step: 1, Limit: Unlimited, QMode: QFixed}
	all := orgs(8)
	subsets := DrawSubsets(all, r, 7)
	if len(subsets) != 24 {
		t.Fatalf("%d subsets, want 24", len(subsets))
	}
	seen := map[string]bool{}
	for _, s := range subsets {
		key := strings.Join(s, ",")
		if seen[key] {
			t.Errorf("subset %v drawn twice", s)
		}
		seen[key] = true
		// Organisms keep the input order.
		idx := make([]int, len(s))
		for i, o := range s {
			idx[i] = slices.Index(all, o)
		}
		if !slices.IsSorted(idx) {
			t.Errorf("subset %v not in input order", s)
		}
	}
}

func TestDrawSubsetsStepAndLimit(t *testing.T) {
	r := DefaultResampling()
	r.Step, r.Limit = 2, 4
	for _, s := range DrawSubsets(orgs(7), r, 1) {
		if n := len(s); n%2 != 0 || n > 4 {
			t.Errorf("subset of size %d kept", n)
		}
	}
}

func TestDrawSubsetsDeterministic(t *testing.T) {
	a := DrawSubsets(orgs(6), DefaultResampling(), 42)
	b := DrawSubsets(orgs(6), DefaultResampling(), 42)
	c := DrawSubsets(orgs(6), DefaultResampling(), 43)
	eq := func(x, y [][]string) bool {
		return slices.EqualFunc(x, y, func(p, q []string) bool { return slices.Equal(p, q) })
	}
	if !eq(a, b) {
		t.Error("same seed gave different samples")
	}
	if eq(a, c) {
		t.Error("different seeds gave the same order")
	}
}

func TestDrawSubsetsSingleOrganism(t *testing.T) {
	if got := DrawSubsets(orgs(1), DefaultResampling(), 42); len(got) != 0 {
		t.Errorf("Sample of one organism = %v", got)
	}
}

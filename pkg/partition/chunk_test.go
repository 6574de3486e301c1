package partition

import (
	"fmt"
	"slices"
	"testing"

	"github.com/matzehuels/panpart/pkg/errors"
)

func organisms(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("org%03d", i)
	}
	return out
}

func TestPlanCoverage(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		chunkSize int
		wantSizes []int
	}{
		{"single chunk", 6, 500, []int{6}},
		{"exact fit", 6, 6, []int{6}},
		{"even split", 6, 3, []int{3, 3}},
		{"remainder", 7, 3, []int{3, 3, 1}},
		{"size one", 3, 1, []int{1, 1, 1}},
		{"empty", 0, 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orgs := organisms(tt.n)
			chunks, err := Plan(orgs, tt.chunkSize)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}

			var sizes []int
			var union []string
			seen := make(map[string]bool)
			for i, c := range chunks {
				if c.Index != i {
					t.Errorf("chunk %d has index %d", i, c.Index)
				}
				if len(c.Organisms) > tt.chunkSize {
					t.Errorf("chunk %d has %d organisms, max %d", i, len(c.Organisms), tt.chunkSize)
				}
				sizes = append(sizes, len(c.Organisms))
				for _, o := range c.Organisms {
					if seen[o] {
						t.Errorf("organism %s in two chunks", o)
					}
					seen[o] = true
					union = append(union, o)
				}
			}
			if !slices.Equal(sizes, tt.wantSizes) {
				t.Errorf("sizes = %v, want %v", sizes, tt.wantSizes)
			}
			if !slices.Equal(union, orgs) {
				t.Errorf("union = %v, want %v", union, orgs)
			}
		})
	}
}

func TestPlanPassThroughIsCopy(t *testing.T) {
	orgs := organisms(4)
	chunks, err := Plan(orgs, 500)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || !slices.Equal(chunks[0].Organisms, orgs) {
		t.Fatalf("chunks = %v", chunks)
	}
	chunks[0].Organisms[0] = "changed"
	if orgs[0] == "changed" {
		t.Error("Plan aliased the caller's slice")
	}
}

func TestPlanInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := Plan(organisms(3), size); !errors.Is(err, errors.ErrCodeConfiguration) {
			t.Errorf("Plan(size=%d) err = %v, want configuration error", size, err)
		}
	}
}

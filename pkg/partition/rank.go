package partition

import (
	"fmt"
	"slices"

	"github.com/matzehuels/panpart/pkg/nem"
	"github.com/matzehuels/panpart/pkg/pangenome"
)

// Vote is the label one chunk assigns to a family.
type Vote struct {
	Partition    pangenome.Partition
	Subpartition string
}

// ChunkResult is the ranked outcome of clustering one chunk.
type ChunkResult struct {
	Chunk Chunk
	Q     int
	ICL   float64
	// Votes maps family IDs to the chunk's label.
	Votes map[string]Vote
	// Ranking lists solver components from most to least present.
	Ranking []int
}

// Undefined returns the number of families the chunk left undefined.
func (c *ChunkResult) Undefined() int {
	n := 0
	for _, v := range c.Votes {
		if v.Partition == pangenome.Undefined {
			n++
		}
	}
	return n
}

// Rank names the components of a solver result. Components are ordered by
// the mean presence ratio of their families, descending; a component with
// no family uses the fraction of organisms its center expects. Ties keep
// component order. The first component is persistent, the last cloud and
// the ones in between shell S1, S2, and so on.
//
// families and ratios are parallel to res.Labels.
func Rank(res *nem.Result, families []string, ratios []float64) (map[string]Vote, []int, error) {
	if len(families) != len(res.Labels) || len(ratios) != len(res.Labels) {
		return nil, nil, fmt.Errorf("rank: %d labels for %d families and %d ratios",
			len(res.Labels), len(families), len(ratios))
	}

	votes := make(map[string]Vote, len(families))
	if res.Undefined() == len(res.Labels) {
		for _, id := range families {
			votes[id] = Vote{Partition: pangenome.Undefined, Subpartition: "U"}
		}
		return votes, nil, nil
	}

	sum := make([]float64, res.Q)
	size := make([]int, res.Q)
	for i, l := range res.Labels {
		if l < 0 || l >= res.Q {
			continue
		}
		sum[l] += ratios[i]
		size[l]++
	}
	mean := make([]float64, res.Q)
	for k := range res.Q {
		switch {
		case size[k] > 0:
			mean[k] = sum[k] / float64(size[k])
		case k < len(res.Params.Centers) && len(res.Params.Centers[k]) > 0:
			on := 0
			for _, v := range res.Params.Centers[k] {
				if v {
					on++
				}
			}
			mean[k] = float64(on) / float64(len(res.Params.Centers[k]))
		}
	}

	order := make([]int, res.Q)
	for k := range order {
		order[k] = k
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case mean[a] > mean[b]:
			return -1
		case mean[a] < mean[b]:
			return 1
		}
		return 0
	})

	named := make([]Vote, res.Q)
	for pos, k := range order {
		switch pos {
		case 0:
			named[k] = Vote{Partition: pangenome.Persistent, Subpartition: "P"}
		case res.Q - 1:
			named[k] = Vote{Partition: pangenome.Cloud, Subpartition: "C"}
		default:
			named[k] = Vote{Partition: pangenome.Shell, Subpartition: fmt.Sprintf("S%d", pos)}
		}
	}

	for i, id := range families {
		l := res.Labels[i]
		if l < 0 || l >= res.Q {
			votes[id] = Vote{Partition: pangenome.Undefined, Subpartition: "U"}
			continue
		}
		votes[id] = named[l]
	}
	return votes, order, nil
}

package pangenome

import (
	"fmt"
	"slices"
)

// SubEdge is an edge of a [Subgraph], by index into Subgraph.Families.
// I < J always holds. Weight counts only the subset organisms.
type SubEdge struct {
	I, J   int
	Weight int
}

// Subgraph is the restriction of a graph to an organism subset.
type Subgraph struct {
	// Organisms are the subset organism IDs, in the order given.
	Organisms []string
	// Families are the families present in at least one subset organism.
	Families []*Family
	// Counts[i][j] is the gene count of family i in organism j.
	Counts [][]int
	// Edges are the co-occurrence edges observed within the subset.
	Edges []SubEdge

	degree []int
}

// Subgraph builds the sub-graph induced by the given organisms. Families
// and edges keep the graph's insertion order. A nil filter keeps every
// family; otherwise only families for which keep returns true are included.
func (g *Graph) Subgraph(organisms []string, keep func(*Family) bool) (*Subgraph, error) {
	orgs := make([]*Organism, len(organisms))
	column := make(map[int]int, len(organisms))
	for j, id := range organisms {
		o := g.Organism(id)
		if o == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOrganism, id)
		}
		if _, dup := column[o.index]; dup {
			return nil, fmt.Errorf("%w: %s listed twice", ErrDuplicateOrganism, id)
		}
		orgs[j] = o
		column[o.index] = j
	}

	s := &Subgraph{Organisms: slices.Clone(organisms)}
	row := make(map[int64]int)
	for _, f := range g.families {
		if keep != nil && !keep(f) {
			continue
		}
		counts := make([]int, len(orgs))
		present := false
		for j, o := range orgs {
			if c := f.counts[o.index]; c > 0 {
				counts[j] = c
				present = true
			}
		}
		if !present {
			continue
		}
		row[f.node] = len(s.Families)
		s.Families = append(s.Families, f)
		s.Counts = append(s.Counts, counts)
	}

	s.degree = make([]int, len(s.Families))
	for k, members := range g.adjacency {
		i, okA := row[k.a]
		j, okB := row[k.b]
		if !okA || !okB {
			continue
		}
		w := 0
		for o := range members {
			if _, in := column[o]; in {
				w++
			}
		}
		if w == 0 {
			continue
		}
		if i > j {
			i, j = j, i
		}
		s.Edges = append(s.Edges, SubEdge{I: i, J: j, Weight: w})
		s.degree[i]++
		s.degree[j]++
	}
	slices.SortFunc(s.Edges, func(x, y SubEdge) int {
		if x.I != y.I {
			return x.I - y.I
		}
		return x.J - y.J
	})
	return s, nil
}

// NumFamilies returns the number of families in the sub-graph.
func (s *Subgraph) NumFamilies() int { return len(s.Families) }

// NumOrganisms returns the number of subset organisms.
func (s *Subgraph) NumOrganisms() int { return len(s.Organisms) }

// Degree returns the number of neighbors of family i within the sub-graph.
func (s *Subgraph) Degree(i int) int { return s.degree[i] }

// Present returns the number of subset organisms carrying family i.
func (s *Subgraph) Present(i int) int {
	n := 0
	for _, c := range s.Counts[i] {
		if c > 0 {
			n++
		}
	}
	return n
}

// Ratio returns the presence ratio of family i within the subset.
func (s *Subgraph) Ratio(i int) float64 {
	if len(s.Organisms) == 0 {
		return 0
	}
	return float64(s.Present(i)) / float64(len(s.Organisms))
}

// Presence returns the binary presence matrix, families by organisms.
func (s *Subgraph) Presence() [][]bool {
	m := make([][]bool, len(s.Counts))
	for i, row := range s.Counts {
		m[i] = make([]bool, len(row))
		for j, c := range row {
			m[i][j] = c > 0
		}
	}
	return m
}

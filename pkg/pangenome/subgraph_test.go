package pangenome

import (
	"errors"
	"slices"
	"testing"
)

func TestSubgraph(t *testing.T) {
	g := buildLinear(t, map[string][]string{
		"o1": {"A", "B", "C"},
		"o2": {"A", "B", "D"},
		"o3": {"D", "E"},
	}, []string{"o1", "o2", "o3"})

	s, err := g.Subgraph([]string{"o2", "o1"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, f := range s.Families {
		ids = append(ids, f.ID)
	}
	if !slices.Equal(ids, []string{"A", "B", "C", "D"}) {
		t.Fatalf("families = %v", ids)
	}
	if !slices.Equal(s.Counts[2], []int{0, 1}) {
		t.Errorf("C counts = %v, want [0 1] (columns follow subset order)", s.Counts[2])
	}
	if s.Present(0) != 2 || s.Ratio(3) != 0.5 {
		t.Errorf("Present(A)=%d Ratio(D)=%v", s.Present(0), s.Ratio(3))
	}

	want := []SubEdge{
		{I: 0, J: 1, Weight: 2}, // A-B in o1 and o2
		{I: 1, J: 2, Weight: 1}, // B-C in o1
		{I: 1, J: 3, Weight: 1}, // B-D in o2; D-E (o3) dropped
	}
	if !slices.Equal(s.Edges, want) {
		t.Errorf("edges = %v, want %v", s.Edges, want)
	}
	if s.Degree(1) != 3 || s.Degree(3) != 1 {
		t.Errorf("Degree(B)=%d Degree(D)=%d", s.Degree(1), s.Degree(3))
	}
}

func TestSubgraphFilterAndErrors(t *testing.T) {
	g := buildLinear(t, map[string][]string{
		"o1": {"A", "B", "B"},
	}, []string{"o1"})

	s, err := g.Subgraph([]string{"o1"}, func(f *Family) bool { return f.MaxCopies() <= 1 })
	if err != nil {
		t.Fatal(err)
	}
	if s.NumFamilies() != 1 || s.Families[0].ID != "A" || len(s.Edges) != 0 {
		t.Errorf("filtered subgraph: %d families, %d edges", s.NumFamilies(), len(s.Edges))
	}

	if _, err := g.Subgraph([]string{"nope"}, nil); !errors.Is(err, ErrUnknownOrganism) {
		t.Errorf("unknown organism: err = %v", err)
	}
	if _, err := g.Subgraph([]string{"o1", "o1"}, nil); !errors.Is(err, ErrDuplicateOrganism) {
		t.Errorf("duplicate organism: err = %v", err)
	}
}

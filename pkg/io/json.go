package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/pangenome"
)

type document struct {
	Organisms []organism `json:"organisms"`
	Families  []family   `json:"families,omitempty"`
	Q         int        `json:"q,omitempty"`
}

type organism struct {
	ID      string   `json:"id"`
	Contigs []contig `json:"contigs,omitempty"`
}

type contig struct {
	ID       string `json:"id"`
	Circular bool   `json:"circular,omitempty"`
	Genes    []gene `json:"genes"`
}

type gene struct {
	ID     string `json:"id"`
	Family string `json:"family"`
}

type family struct {
	ID              string         `json:"id"`
	Partition       string         `json:"partition,omitempty"`
	Subpartition    string         `json:"subpartition,omitempty"`
	FormerPartition string         `json:"former_partition,omitempty"`
	SoftPartition   string         `json:"soft_partition,omitempty"`
	Presence        map[string]int `json:"presence,omitempty"`
}

// WriteJSON encodes a pangenome graph as JSON and writes it to w.
// Labels are written for partitioned graphs only. The output can be
// re-imported with [ReadJSON].
func WriteJSON(g *pangenome.Graph, w io.Writer) error {
	out := document{Organisms: make([]organism, 0, g.NumOrganisms())}
	var matrixOnly []*pangenome.Organism
	for _, o := range g.Organisms() {
		org := organism{ID: o.ID}
		for _, c := range o.Contigs {
			genes := make([]gene, len(c.Genes))
			for i, gn := range c.Genes {
				genes[i] = gene{ID: gn.ID, Family: gn.Family}
			}
			org.Contigs = append(org.Contigs, contig{ID: c.ID, Circular: c.Circular, Genes: genes})
		}
		if len(o.Contigs) == 0 {
			matrixOnly = append(matrixOnly, o)
		}
		out.Organisms = append(out.Organisms, org)
	}

	for _, f := range g.Families() {
		fam := family{ID: f.ID}
		if g.Partitioned() && f.Labeled() {
			fam.Partition = string(f.Partition)
			fam.Subpartition = f.Subpartition
			fam.FormerPartition = string(f.FormerPartition)
			fam.SoftPartition = string(f.SoftPartition)
		}
		for _, o := range matrixOnly {
			if n := f.Count(o); n > 0 {
				if fam.Presence == nil {
					fam.Presence = make(map[string]int)
				}
				fam.Presence[o.ID] = n
			}
		}
		if fam.Partition != "" || fam.Presence != nil {
			out.Families = append(out.Families, fam)
		}
	}
	if g.Partitioned() {
		out.Q = g.Q()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a graph to a JSON file at path.
func ExportJSON(g *pangenome.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	defer f.Close()
	return WriteJSON(g, f)
}

// ReadJSON decodes a JSON pangenome from r and returns the finalized graph.
//
// ReadJSON returns an INVALID_FORMAT error for malformed JSON and wraps the
// builder errors of the graph (duplicate organism, contig or gene IDs,
// invalid identifiers) with the element that caused them. ReadJSON does not
// close r.
func ReadJSON(r io.Reader) (*pangenome.Graph, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode pangenome")
	}

	g := pangenome.New()
	for _, o := range doc.Organisms {
		if _, err := g.AddOrganism(o.ID); err != nil {
			return nil, fmt.Errorf("organism %s: %w", o.ID, err)
		}
		for _, c := range o.Contigs {
			if _, err := g.AddContig(o.ID, c.ID, c.Circular); err != nil {
				return nil, fmt.Errorf("contig %s/%s: %w", o.ID, c.ID, err)
			}
			for _, gn := range c.Genes {
				if err := g.AddGene(o.ID, c.ID, gn.ID, gn.Family); err != nil {
					return nil, fmt.Errorf("gene %s: %w", gn.ID, err)
				}
			}
		}
	}

	labels := make(map[string]pangenome.Label, len(doc.Families))
	for _, f := range doc.Families {
		for orgID, n := range f.Presence {
			if err := g.AddPresence(f.ID, orgID, n); err != nil {
				return nil, fmt.Errorf("family %s in %s: %w", f.ID, orgID, err)
			}
		}
		if doc.Q == 0 || f.Partition == "" {
			continue
		}
		l, err := parseLabel(f)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "family %s", f.ID)
		}
		labels[f.ID] = l
	}
	g.Finalize()

	if doc.Q > 0 {
		for id := range labels {
			if g.Family(id) == nil {
				return nil, fmt.Errorf("family %s: %w", id, pangenome.ErrUnknownFamily)
			}
		}
		g.ApplyLabels(labels, doc.Q)
	}
	return g, nil
}

func parseLabel(f family) (pangenome.Label, error) {
	p, err := pangenome.ParsePartition(f.Partition)
	if err != nil {
		return pangenome.Label{}, err
	}
	l := pangenome.Label{
		Partition:       p,
		Subpartition:    f.Subpartition,
		FormerPartition: pangenome.ExactAccessory,
		SoftPartition:   pangenome.SoftAccessory,
	}
	switch pangenome.FormerPartition(f.FormerPartition) {
	case pangenome.ExactCore:
		l.FormerPartition = pangenome.ExactCore
	case pangenome.ExactAccessory, "":
	default:
		return l, fmt.Errorf("unknown former partition %q", f.FormerPartition)
	}
	switch pangenome.SoftPartition(f.SoftPartition) {
	case pangenome.SoftCore:
		l.SoftPartition = pangenome.SoftCore
	case pangenome.SoftAccessory, "":
	default:
		return l, fmt.Errorf("unknown soft partition %q", f.SoftPartition)
	}
	return l, nil
}

// ImportJSON reads a JSON pangenome from the file at path.
func ImportJSON(path string) (*pangenome.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	g, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

package pangenome

import (
	"errors"
	"slices"

	"gonum.org/v1/gonum/graph/simple"

	perrors "github.com/matzehuels/panpart/pkg/errors"
)

var (
	// ErrFinalized is returned by the builder methods once [Graph.Finalize]
	// has been called. Membership is append-only until then.
	ErrFinalized = errors.New("pangenome graph is finalized")

	// ErrDuplicateOrganism is returned by [Graph.AddOrganism] when an
	// organism with the same ID already exists.
	ErrDuplicateOrganism = errors.New("duplicate organism ID")

	// ErrDuplicateContig is returned by [Graph.AddContig] when the organism
	// already has a contig with the same ID.
	ErrDuplicateContig = errors.New("duplicate contig ID")

	// ErrDuplicateGene is returned by [Graph.AddGene] when a gene with the
	// same ID was already added anywhere in the graph.
	ErrDuplicateGene = errors.New("duplicate gene ID")

	// ErrUnknownOrganism is returned when an organism ID is not in the graph.
	ErrUnknownOrganism = errors.New("unknown organism")

	// ErrUnknownContig is returned by [Graph.AddGene] when the contig was
	// not declared with [Graph.AddContig].
	ErrUnknownContig = errors.New("unknown contig")

	// ErrUnknownFamily is returned when a family ID is not in the graph.
	ErrUnknownFamily = errors.New("unknown gene family")
)

// Gene is a single gene of an organism, assigned to one family.
type Gene struct {
	ID     string
	Family string
}

// Contig is an ordered run of genes. Consecutive genes link their families.
type Contig struct {
	ID       string
	Circular bool
	Genes    []Gene
}

// Organism is one genome of the pangenome.
type Organism struct {
	ID      string
	Contigs []*Contig

	index int
}

// NumGenes returns the number of genes over all contigs.
func (o *Organism) NumGenes() int {
	n := 0
	for _, c := range o.Contigs {
		n += len(c.Genes)
	}
	return n
}

func (o *Organism) contig(id string) *Contig {
	for _, c := range o.Contigs {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Family is a gene family: the genes of all organisms that were clustered
// together, plus the partition labels assigned by the last partition run.
type Family struct {
	ID string

	Partition       Partition
	FormerPartition FormerPartition
	SoftPartition   SoftPartition
	// Subpartition is "P", "C", "U" or "S1".."S<Q-2>" for shell families.
	Subpartition string

	counts  map[int]int // organism index -> gene count
	genes   int
	node    int64
	labeled bool
}

// Labeled reports whether the last partition run assigned the family its
// labels. Families filtered out of that run keep undefined labels but are
// not labeled.
func (f *Family) Labeled() bool { return f.labeled }

// Count returns the number of genes o contributes to the family.
func (f *Family) Count(o *Organism) int {
	if o == nil {
		return 0
	}
	return f.counts[o.index]
}

// NumOrganisms returns the number of organisms carrying the family.
func (f *Family) NumOrganisms() int {
	return len(f.counts)
}

// NumGenes returns the total number of genes in the family.
func (f *Family) NumGenes() int {
	return f.genes
}

// MaxCopies returns the largest per-organism gene count.
func (f *Family) MaxCopies() int {
	m := 0
	for _, c := range f.counts {
		m = max(m, c)
	}
	return m
}

// Edge is an undirected co-occurrence edge between two families.
// Weight is the number of organisms in which the two are adjacent.
type Edge struct {
	From   string
	To     string
	Weight int
}

type edgeKey struct{ a, b int64 }

func newEdgeKey(a, b int64) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Graph is a pangenome graph. The zero value is not usable; call [New].
type Graph struct {
	organisms []*Organism
	orgIndex  map[string]int
	families  []*Family
	famIndex  map[string]int
	genes     map[string]struct{}

	// topology holds the co-occurrence edges weighted by organism count.
	topology *simple.WeightedUndirectedGraph
	// adjacency records in which organisms each edge was observed.
	adjacency map[edgeKey]map[int]struct{}

	finalized   bool
	partitioned bool
	q           int
}

// New creates an empty pangenome graph.
func New() *Graph {
	return &Graph{
		orgIndex:  make(map[string]int),
		famIndex:  make(map[string]int),
		genes:     make(map[string]struct{}),
		topology:  simple.NewWeightedUndirectedGraph(0, 0),
		adjacency: make(map[edgeKey]map[int]struct{}),
	}
}

// AddOrganism adds an organism. The ID must be a valid identifier.
func (g *Graph) AddOrganism(id string) (*Organism, error) {
	if g.finalized {
		return nil, ErrFinalized
	}
	if err := perrors.ValidateIdentifier(id); err != nil {
		return nil, err
	}
	if _, ok := g.orgIndex[id]; ok {
		return nil, ErrDuplicateOrganism
	}
	o := &Organism{ID: id, index: len(g.organisms)}
	g.orgIndex[id] = o.index
	g.organisms = append(g.organisms, o)
	return o, nil
}

// AddContig declares a contig of an existing organism.
func (g *Graph) AddContig(orgID, contigID string, circular bool) (*Contig, error) {
	if g.finalized {
		return nil, ErrFinalized
	}
	o := g.Organism(orgID)
	if o == nil {
		return nil, ErrUnknownOrganism
	}
	if o.contig(contigID) != nil {
		return nil, ErrDuplicateContig
	}
	c := &Contig{ID: contigID, Circular: circular}
	o.Contigs = append(o.Contigs, c)
	return c, nil
}

// AddGene appends a gene to the end of a contig and assigns it to a family,
// creating the family on first use. The family of the previous gene on the
// contig, if any, is linked to this one for the organism.
func (g *Graph) AddGene(orgID, contigID, geneID, familyID string) error {
	if g.finalized {
		return ErrFinalized
	}
	o := g.Organism(orgID)
	if o == nil {
		return ErrUnknownOrganism
	}
	c := o.contig(contigID)
	if c == nil {
		return ErrUnknownContig
	}
	if geneID == "" {
		return perrors.New(perrors.ErrCodeInvalidIdentifier, "gene identifier cannot be empty")
	}
	if _, ok := g.genes[geneID]; ok {
		return ErrDuplicateGene
	}
	f, err := g.family(familyID)
	if err != nil {
		return err
	}

	g.genes[geneID] = struct{}{}
	f.counts[o.index]++
	f.genes++
	if n := len(c.Genes); n > 0 {
		prev := g.families[g.famIndex[c.Genes[n-1].Family]]
		g.link(prev, f, o.index)
	}
	c.Genes = append(c.Genes, Gene{ID: geneID, Family: familyID})
	return nil
}

// AddPresence records count genes of a family in an organism without gene
// order. It is used by presence/absence matrix inputs, which carry no
// adjacency information.
func (g *Graph) AddPresence(familyID, orgID string, count int) error {
	if g.finalized {
		return ErrFinalized
	}
	if count < 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "negative gene count %d for %s in %s", count, familyID, orgID)
	}
	o := g.Organism(orgID)
	if o == nil {
		return ErrUnknownOrganism
	}
	f, err := g.family(familyID)
	if err != nil {
		return err
	}
	if count > 0 {
		f.counts[o.index] += count
		f.genes += count
	}
	return nil
}

// Link records that two families are adjacent in an organism.
func (g *Graph) Link(familyA, familyB, orgID string) error {
	if g.finalized {
		return ErrFinalized
	}
	o := g.Organism(orgID)
	if o == nil {
		return ErrUnknownOrganism
	}
	a, b := g.Family(familyA), g.Family(familyB)
	if a == nil || b == nil {
		return ErrUnknownFamily
	}
	g.link(a, b, o.index)
	return nil
}

func (g *Graph) family(id string) (*Family, error) {
	if i, ok := g.famIndex[id]; ok {
		return g.families[i], nil
	}
	if err := perrors.ValidateIdentifier(id); err != nil {
		return nil, err
	}
	f := &Family{
		ID:              id,
		Partition:       Undefined,
		FormerPartition: ExactAccessory,
		SoftPartition:   SoftAccessory,
		counts:          make(map[int]int),
		node:            int64(len(g.families)),
	}
	g.famIndex[id] = len(g.families)
	g.families = append(g.families, f)
	g.topology.AddNode(simple.Node(f.node))
	return f, nil
}

// link adds organism org to the adjacency of a and b. Self loops are
// ignored: a family cannot smooth itself.
func (g *Graph) link(a, b *Family, org int) {
	if a.node == b.node {
		return
	}
	k := newEdgeKey(a.node, b.node)
	orgs, ok := g.adjacency[k]
	if !ok {
		orgs = make(map[int]struct{})
		g.adjacency[k] = orgs
	}
	orgs[org] = struct{}{}
	g.topology.SetWeightedEdge(simple.WeightedEdge{
		F: simple.Node(k.a),
		T: simple.Node(k.b),
		W: float64(len(orgs)),
	})
}

// Finalize closes circular contigs and freezes membership. It is safe to
// call more than once.
func (g *Graph) Finalize() {
	if g.finalized {
		return
	}
	for _, o := range g.organisms {
		for _, c := range o.Contigs {
			if !c.Circular || len(c.Genes) < 3 {
				continue
			}
			first := g.families[g.famIndex[c.Genes[0].Family]]
			last := g.families[g.famIndex[c.Genes[len(c.Genes)-1].Family]]
			g.link(last, first, o.index)
		}
	}
	g.finalized = true
}

// Finalized reports whether [Graph.Finalize] has been called.
func (g *Graph) Finalized() bool { return g.finalized }

// Organism returns the organism with the given ID, or nil.
func (g *Graph) Organism(id string) *Organism {
	i, ok := g.orgIndex[id]
	if !ok {
		return nil
	}
	return g.organisms[i]
}

// Organisms returns all organisms in insertion order.
func (g *Graph) Organisms() []*Organism { return g.organisms }

// OrganismIDs returns the organism IDs in insertion order.
func (g *Graph) OrganismIDs() []string {
	ids := make([]string, len(g.organisms))
	for i, o := range g.organisms {
		ids[i] = o.ID
	}
	return ids
}

// NumOrganisms returns the number of organisms.
func (g *Graph) NumOrganisms() int { return len(g.organisms) }

// Family returns the family with the given ID, or nil.
func (g *Graph) Family(id string) *Family {
	i, ok := g.famIndex[id]
	if !ok {
		return nil
	}
	return g.families[i]
}

// Families returns all families in insertion order.
func (g *Graph) Families() []*Family { return g.families }

// NumFamilies returns the number of families.
func (g *Graph) NumFamilies() int { return len(g.families) }

// NumEdges returns the number of co-occurrence edges.
func (g *Graph) NumEdges() int { return len(g.adjacency) }

// Degree returns the number of distinct neighbors of a family.
func (g *Graph) Degree(familyID string) int {
	f := g.Family(familyID)
	if f == nil {
		return 0
	}
	return g.topology.From(f.node).Len()
}

// Neighbors returns the IDs of the families adjacent to familyID, sorted
// by insertion order of the families.
func (g *Graph) Neighbors(familyID string) []string {
	f := g.Family(familyID)
	if f == nil {
		return nil
	}
	var nodes []int64
	it := g.topology.From(f.node)
	for it.Next() {
		nodes = append(nodes, it.Node().ID())
	}
	slices.Sort(nodes)
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = g.families[n].ID
	}
	return ids
}

// Weight returns the weight of the edge between two families, or 0.
func (g *Graph) Weight(familyA, familyB string) int {
	a, b := g.Family(familyA), g.Family(familyB)
	if a == nil || b == nil {
		return 0
	}
	w, ok := g.topology.Weight(a.node, b.node)
	if !ok || a.node == b.node {
		return 0
	}
	return int(w)
}

// Edges returns all edges ordered by (From, To) family insertion order.
func (g *Graph) Edges() []Edge {
	keys := make([]edgeKey, 0, len(g.adjacency))
	for k := range g.adjacency {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareEdgeKeys)
	edges := make([]Edge, len(keys))
	for i, k := range keys {
		edges[i] = Edge{
			From:   g.families[k.a].ID,
			To:     g.families[k.b].ID,
			Weight: len(g.adjacency[k]),
		}
	}
	return edges
}

func compareEdgeKeys(x, y edgeKey) int {
	if x.a != y.a {
		if x.a < y.a {
			return -1
		}
		return 1
	}
	switch {
	case x.b < y.b:
		return -1
	case x.b > y.b:
		return 1
	}
	return 0
}

// Q returns the number of components of the last in-place partition run.
func (g *Graph) Q() int { return g.q }

// Partitioned reports whether labels were applied by a partition run.
func (g *Graph) Partitioned() bool { return g.partitioned }

// Package pangenome provides the pangenome graph: organisms, gene families
// and the weighted co-occurrence edges between families.
//
// # Overview
//
// A pangenome is the union of the gene families found across a set of
// related organisms. Each [Family] records how many of its genes each
// [Organism] carries (paralogs count more than once), and two families are
// connected by an undirected [Edge] whenever a gene of one sits next to a
// gene of the other on some contig. The edge weight is the number of
// organisms in which that adjacency is observed.
//
// The weighted edges are the topology of the Markov Random Field used by
// the partitioning engine: neighboring families are encouraged to share a
// partition.
//
// # Building a graph
//
// Graphs are append-only until [Graph.Finalize]:
//
//	g := pangenome.New()
//	g.AddOrganism("ecoli_k12")
//	g.AddContig("ecoli_k12", "chr", true)
//	g.AddGene("ecoli_k12", "chr", "b0001", "thrL")
//	g.AddGene("ecoli_k12", "chr", "b0002", "thrA")
//	g.Finalize()
//
// Genes added to the same contig link their families in order; circular
// contigs also link the last gene to the first on finalization. Matrix
// inputs without gene order use [Graph.AddPresence].
//
// # Partitions
//
// After a partition run every family carries three labels:
//
//   - [Partition]: persistent, shell, cloud or undefined (model based)
//   - [FormerPartition]: exact_core or exact_accessory (present everywhere or not)
//   - [SoftPartition]: soft_core or soft_accessory (presence ratio threshold)
//
// [Graph.ApplyLabels] overwrites all three for every family at once.
// [ClassifyCoreAccessory] derives the last two from a presence count.
//
// # Chunk sub-graphs
//
// [Graph.Subgraph] restricts the graph to an organism subset: the families
// present in at least one of those organisms, their presence matrix, and
// the edges whose adjacency was observed within the subset, re-weighted by
// the subset alone.
//
// # Concurrency
//
// A finalized graph may be read concurrently. Mutation (building or
// [Graph.ApplyLabels]) requires external synchronization.
package pangenome

// Package io reads and writes pangenome graphs and partition results.
//
// # JSON Format
//
// The JSON format carries the full graph: organisms, their contigs and the
// ordered genes of each contig, plus the labels of a partition run:
//
//	{
//	  "organisms": [
//	    {
//	      "id": "ecoli_k12",
//	      "contigs": [
//	        {"id": "chr", "circular": true, "genes": [
//	          {"id": "b0001", "family": "thrL"},
//	          {"id": "b0002", "family": "thrA"}
//	        ]}
//	      ]
//	    }
//	  ],
//	  "families": [
//	    {"id": "thrL", "partition": "persistent", "subpartition": "P",
//	     "former_partition": "exact_core", "soft_partition": "soft_core"}
//	  ],
//	  "q": 3
//	}
//
// Family adjacency is derived from gene order on import; circular contigs
// also link their last gene to the first. Organisms loaded from a matrix
// have no contigs, so their gene counts are stored per family under
// "presence". The "families" array and "q" are optional; when "q" is set the
// labels are applied and the graph is marked as partitioned.
//
// # Presence/Absence Matrix
//
// [ReadRtab] loads a tab separated matrix with one family per row and one
// organism per column. The first header cell is ignored; cells hold gene
// counts. Matrices carry no gene order, so the resulting graph has no
// edges. [WriteRtab] writes the 1/0 presence matrix of a graph.
//
// # Partition Results
//
// [WriteResults] writes the per class family lists under partitions/, the
// list of all families to pangenome.txt and a human readable
// summary_stats.txt.
package io

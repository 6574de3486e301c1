// Package pkg provides the core libraries for panpart pangenome partitioning.
//
// # Overview
//
// Panpart classifies the gene families of a pangenome as persistent, shell
// or cloud. Families are clustered on their presence/absence pattern across
// organisms with a multivariate Bernoulli mixture, smoothed over the gene
// neighborhood graph so that neighboring families tend to share a class.
// Rarefaction (evolution) curves follow the class sizes as organisms are
// added and fit Heaps' law on them.
//
// # Architecture
//
// The typical data flow:
//
//	JSON pangenome / Rtab matrix
//	         ↓
//	    [io] package (import)
//	         ↓
//	    [pangenome] package (families, organisms, neighborhood graph)
//	         ↓
//	    [pipeline] package (chunks → [nem] fits → [partition] selection and merge)
//	         ↓
//	    [evolution] package (resampling, aggregation, Heaps' law)
//	         ↓
//	    [io] result files, [render] figures, [store] run database
//
// # Quick Start
//
//	g, _ := io.Import("pangenome.json")
//	runner := pipeline.NewRunner(nil, nil, nil, logger)
//	res, _ := runner.Partition(ctx, g, pipeline.DefaultOptions())
//	fmt.Println(res.Stats.Persistent, res.Stats.Shell, res.Stats.Cloud)
//
// # Main Packages
//
// [pangenome] - Organisms, contigs, genes and families with the weighted
// family neighborhood graph. Subgraphs restrict a pangenome to an organism
// subset for chunking and resampling.
//
// [nem] - The neighborhood EM primitive: presence matrix, neighbor lists and
// the [nem.Solver] contract with its default EM implementation.
//
// [partition] - Chunk planning, Q selection by ICL, component ranking and
// the merge of chunk votes into final labels and class counts.
//
// [pipeline] - Options, defaults and the [pipeline.Runner] tying the
// pieces together with the chunk cache and a bounded worker pool.
//
// [evolution] - Organism subset resampling, the evolution log, per-size
// summaries and Heaps' law fits.
//
// ## Infrastructure
//
// [cache] - Chunk selection cache with file, Redis and null backends.
//
// [config] - TOML and YAML configuration files.
//
// [store] - SQLite database of evolution runs.
//
// [observability] - Partition, evolution and cache hooks, with a Prometheus
// implementation in observability/prom.
//
// [errors] - Coded errors shared by every package.
//
// ## Visualization
//
// [render] - SVG to PDF/PNG conversion and the partition palette.
//
//   - [render/nodelink]: The family graph through Graphviz
//   - [render/plot]: U-shape histogram and evolution curves
//
// # Testing
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/partition/... # Specific package
//	go test -run Example        # Examples only
//
// [io]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/io
// [pangenome]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/pangenome
// [nem]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/nem
// [partition]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/partition
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/pipeline
// [evolution]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/evolution
// [cache]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/config
// [store]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/store
// [observability]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/errors
// [render]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/render
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/render/nodelink
// [render/plot]: https://pkg.go.dev/github.com/matzehuels/panpart/pkg/render/plot
package pkg

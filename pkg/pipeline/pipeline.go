// Package pipeline runs partitioning over a pangenome graph.
//
// This package implements the complete plan → cluster → merge flow that is
// shared by the partition command, the evolution resampler and any library
// caller. Centralizing it keeps defaults, caching and the working directory
// layout identical across entry points.
//
// # Architecture
//
// A partition run consists of four stages:
//
//  1. Plan: split the selected organisms into chunks
//  2. Cluster: fit the mixture model per chunk, choosing Q by ICL
//  3. Merge: reconcile per-chunk votes into one label per family
//  4. Apply: write labels back onto the graph (in-place runs only)
//
// # Usage
//
//	runner := pipeline.NewRunner(nil, nil, nil, logger)
//	res, err := runner.Partition(ctx, g, pipeline.Options{
//	    ChunkSize: 500,
//	    InPlace:   true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Stats.Persistent)
package pipeline

import (
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/pangenome"
	"github.com/matzehuels/panpart/pkg/partition"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Library Callers
// =============================================================================

const (
	// DefaultBeta is the smoothing strength applied by the CLI.
	DefaultBeta = 2.5

	// DefaultMaxDegree is the smoothing degree cap applied by the CLI.
	DefaultMaxDegree = 10

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)

	// DefaultWorkers is the default number of parallel model fits.
	DefaultWorkers = 1

	// MinChunkSize is the smallest chunk that can be clustered.
	MinChunkSize = 2
)

// =============================================================================
// Options - Partition Configuration
// =============================================================================

// Options contains all configuration for a partition run.
//
// Beta, MaxDegree and Margin are used as given: zero disables smoothing,
// lifts the degree cap and picks the best ICL respectively. Use
// [DefaultOptions] for the recommended values.
type Options struct {
	// Organisms restricts the run to a subset, in the given order.
	// Empty means every organism of the graph.
	Organisms []string `json:"organisms,omitempty"`

	// Model selection
	Q      int     `json:"q,omitempty"` // 0 selects Q by ICL
	Qmin   int     `json:"qmin,omitempty"`
	Qmax   int     `json:"qmax,omitempty"`
	Margin float64 `json:"icl_margin,omitempty"`

	// Model
	Beta           float64 `json:"beta"`
	MaxDegree      int     `json:"max_degree"`
	FreeDispersion bool    `json:"free_dispersion,omitempty"`
	// Seed 0 selects DefaultSeed, so the seed of a run is never 0.
	Seed           uint64  `json:"seed,omitempty"`

	// Chunking and labels
	ChunkSize         int     `json:"chunk_size,omitempty"`
	SoftCoreThreshold float64 `json:"soft_core,omitempty"`
	RemoveHighCopy    int     `json:"remove_high_copy,omitempty"` // drop families with this many copies in an organism; 0 keeps every family

	// Former model state to start from (a kept working directory).
	FormerDir string `json:"former_dir,omitempty"`

	// Execution
	Workers       int    `json:"workers,omitempty"`
	Workdir       string `json:"workdir,omitempty"`
	KeepTempFiles bool   `json:"keep_tmp,omitempty"`
	InPlace       bool   `json:"in_place,omitempty"`
	StatsOnly     bool   `json:"stats_only,omitempty"`
	Refresh       bool   `json:"refresh,omitempty"` // ignore cached chunk results

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// DefaultOptions returns the options used by the command line tool.
func DefaultOptions() Options {
	return Options{
		Qmin:              partition.DefaultQmin,
		Qmax:              partition.DefaultQmax,
		Margin:            partition.DefaultICLMargin,
		Beta:              DefaultBeta,
		MaxDegree:         DefaultMaxDegree,
		Seed:              DefaultSeed,
		ChunkSize:         partition.DefaultChunkSize,
		SoftCoreThreshold: pangenome.DefaultSoftCoreThreshold,
		Workers:           DefaultWorkers,
		InPlace:           true,
	}
}

// Result contains the outputs of a partition run.
type Result struct {
	// Stats is the class count record of the run.
	Stats partition.Stats

	// Labels holds one label per considered family.
	Labels map[string]pangenome.Label

	// Chunks reports every chunk in plan order.
	Chunks []ChunkReport

	// Workdir is the working directory, empty once removed.
	Workdir string

	// Duration is the wall time of the run.
	Duration time.Duration
}

// ChunkReport summarizes the clustering of one chunk.
type ChunkReport struct {
	Index      int
	Organisms  int
	Families   int
	Q          int
	ICL        float64
	Scanned    bool
	Candidates []partition.Candidate
	Undefined  int
	CacheHit   bool
	Duration   time.Duration
}

// Converged reports whether the chunk produced a usable clustering.
func (c ChunkReport) Converged() bool {
	return c.Families == 0 || c.Undefined < c.Families
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and fills in defaults for
// fields whose zero value is not meaningful. Every violation is a
// configuration error. This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.Qmin == 0 {
		o.Qmin = partition.DefaultQmin
	}
	if o.Qmax == 0 {
		o.Qmax = max(partition.DefaultQmax, o.Qmin)
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = partition.DefaultChunkSize
	}
	if o.SoftCoreThreshold == 0 {
		o.SoftCoreThreshold = pangenome.DefaultSoftCoreThreshold
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Workers < 1 {
		o.Workers = DefaultWorkers
	}

	if o.Q != 0 && o.Q < partition.MinQ {
		return errors.Configuration("number of partitions must be at least %d, got %d", partition.MinQ, o.Q)
	}
	if o.Qmin < partition.MinQ {
		return errors.Configuration("minimum number of partitions must be at least %d, got %d", partition.MinQ, o.Qmin)
	}
	if o.Qmax < o.Qmin {
		return errors.Configuration("maximum number of partitions (%d) is below the minimum (%d)", o.Qmax, o.Qmin)
	}
	if o.Margin < 0 || o.Margin >= 1 || math.IsNaN(o.Margin) {
		return errors.Configuration("ICL margin must be in [0, 1), got %v", o.Margin)
	}
	if o.Beta < 0 || math.IsNaN(o.Beta) {
		return errors.Configuration("beta must be non-negative, got %v", o.Beta)
	}
	if o.MaxDegree < 0 {
		return errors.Configuration("max degree must be non-negative, got %d", o.MaxDegree)
	}
	if o.ChunkSize < MinChunkSize {
		return errors.Configuration("chunk size must be at least %d, got %d", MinChunkSize, o.ChunkSize)
	}
	if !(o.SoftCoreThreshold > 0 && o.SoftCoreThreshold < 1) {
		return errors.Configuration("soft core threshold must be in (0, 1), got %v", o.SoftCoreThreshold)
	}
	if o.RemoveHighCopy < 0 {
		return errors.Configuration("high copy threshold must be non-negative, got %d", o.RemoveHighCopy)
	}
	if o.FormerDir != "" {
		if err := errors.ValidatePath(o.FormerDir); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "invalid former state directory")
		}
	}
	if o.Workdir != "" {
		if err := errors.ValidatePath(o.Workdir); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "invalid working directory")
		}
	}
	seen := make(map[string]bool, len(o.Organisms))
	for _, id := range o.Organisms {
		if seen[id] {
			return errors.Configuration("organism %q selected twice", id)
		}
		seen[id] = true
	}

	o.validated = true
	return nil
}

// SelectOptions returns the model selection options. formerQ is the
// number of components of a loaded former state, 0 when there is none.
func (o *Options) SelectOptions(formerQ, workers int) partition.SelectOptions {
	return partition.SelectOptions{
		Q:       o.Q,
		FormerQ: formerQ,
		Qmin:    o.Qmin,
		Qmax:    o.Qmax,
		Margin:  o.Margin,
		Workers: workers,
	}
}

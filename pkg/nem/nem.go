// Package nem defines the clustering primitive used by the partitioning
// engine and ships a built-in solver.
//
// A [Solver] fits a Q-component Bernoulli mixture to a binary presence
// matrix (families by organisms) with optional Markov Random Field
// smoothing over a neighbor graph, and reports per-family components
// together with the model's Integrated Completed Likelihood (ICL).
//
// Solvers never fail on data they cannot cluster: too few organisms, too
// few families or a run that does not converge all produce a [Result]
// whose labels are [Undefined] and whose Converged flag is false. Errors
// are reserved for malformed input and context cancellation.
package nem

import (
	"context"
	"fmt"
	"math"
	"slices"
)

// Undefined is the component assigned to families that could not be
// clustered.
const Undefined = -1

// Neighbor is a weighted edge to another family, by row index.
type Neighbor struct {
	Index  int     `json:"index"`
	Weight float64 `json:"weight"`
}

// Params are the mixture parameters. Centers are binary: true means the
// component expects the family in that organism.
type Params struct {
	Proportions []float64 `json:"proportions"`
	Centers     [][]bool  `json:"centers"`
	Dispersions []float64 `json:"dispersions"`
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	c := Params{
		Proportions: slices.Clone(p.Proportions),
		Dispersions: slices.Clone(p.Dispersions),
		Centers:     make([][]bool, len(p.Centers)),
	}
	for k, row := range p.Centers {
		c.Centers[k] = slices.Clone(row)
	}
	return c
}

// Input is one clustering problem.
type Input struct {
	// Presence[i][j] reports whether family i is present in organism j.
	Presence [][]bool
	// Neighbors[i] lists the co-occurrence edges of family i. Weights are
	// organism counts; solvers normalize them by the number of organisms.
	Neighbors [][]Neighbor
	// Q is the number of mixture components.
	Q int
	// Beta is the smoothing strength. Zero disables smoothing.
	Beta float64
	// MaxDegree excludes families with more neighbors than this from
	// smoothing. Zero means no cap.
	MaxDegree int
	// FreeDispersion fits one dispersion per component instead of a
	// single shared value.
	FreeDispersion bool
	// Seed makes runs reproducible.
	Seed uint64
	// Init optionally provides starting parameters, e.g. from a former run.
	// It is ignored when its shape does not match Q and the organism count.
	Init *Params
}

// NumFamilies returns the number of rows.
func (in Input) NumFamilies() int { return len(in.Presence) }

// NumOrganisms returns the number of columns.
func (in Input) NumOrganisms() int {
	if len(in.Presence) == 0 {
		return 0
	}
	return len(in.Presence[0])
}

// Validate checks the shape of the input.
func (in Input) Validate() error {
	if in.Q < 2 {
		return fmt.Errorf("nem: Q must be at least 2, got %d", in.Q)
	}
	if in.Beta < 0 || math.IsNaN(in.Beta) {
		return fmt.Errorf("nem: beta must be non-negative, got %v", in.Beta)
	}
	if in.MaxDegree < 0 {
		return fmt.Errorf("nem: max degree must be non-negative, got %d", in.MaxDegree)
	}
	d := in.NumOrganisms()
	for i, row := range in.Presence {
		if len(row) != d {
			return fmt.Errorf("nem: row %d has %d columns, want %d", i, len(row), d)
		}
	}
	if in.Neighbors != nil && len(in.Neighbors) != len(in.Presence) {
		return fmt.Errorf("nem: %d neighbor lists for %d families", len(in.Neighbors), len(in.Presence))
	}
	for i, nbs := range in.Neighbors {
		for _, nb := range nbs {
			if nb.Index < 0 || nb.Index >= len(in.Presence) || nb.Index == i {
				return fmt.Errorf("nem: family %d has invalid neighbor %d", i, nb.Index)
			}
			if nb.Weight < 0 {
				return fmt.Errorf("nem: family %d has negative edge weight", i)
			}
		}
	}
	return nil
}

// Result is the outcome of one clustering run.
type Result struct {
	Q      int   `json:"q"`
	Labels []int `json:"labels"`
	Params Params `json:"params"`

	LogLikelihood          float64 `json:"log_likelihood"`
	CompletedLogLikelihood float64 `json:"completed_log_likelihood"`
	ICL                    float64 `json:"icl"`

	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
}

// Undefined returns the number of families labeled [Undefined].
func (r *Result) Undefined() int {
	n := 0
	for _, l := range r.Labels {
		if l == Undefined {
			n++
		}
	}
	return n
}

// Sizes returns the number of families per component.
func (r *Result) Sizes() []int {
	sizes := make([]int, r.Q)
	for _, l := range r.Labels {
		if l >= 0 && l < r.Q {
			sizes[l]++
		}
	}
	return sizes
}

// UndefinedResult returns a result with every one of n families undefined.
func UndefinedResult(q, n, iterations int) *Result {
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Undefined
	}
	nan := math.NaN()
	return &Result{
		Q:                      q,
		Labels:                 labels,
		LogLikelihood:          nan,
		CompletedLogLikelihood: nan,
		ICL:                    nan,
		Iterations:             iterations,
	}
}

// Solver fits the mixture model for one input.
type Solver interface {
	Solve(ctx context.Context, in Input) (*Result, error)
}

// SolverFunc adapts a function to the [Solver] interface.
type SolverFunc func(ctx context.Context, in Input) (*Result, error)

// Solve calls f.
func (f SolverFunc) Solve(ctx context.Context, in Input) (*Result, error) {
	return f(ctx, in)
}

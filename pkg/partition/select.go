package partition

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/nem"
)

// Model selection defaults.
const (
	MinQ             = 3
	DefaultQmin      = 3
	DefaultQmax      = 20
	DefaultICLMargin = 0.05
)

// SelectOptions controls how Q is chosen for one clustering input.
type SelectOptions struct {
	// Q fixes the number of components. Zero selects it automatically.
	Q int
	// FormerQ is the Q of a former run. When set it wins over Q and the
	// scan is skipped.
	FormerQ int
	// Qmin and Qmax bound the automatic scan (inclusive).
	Qmin, Qmax int
	// Margin is the fraction of the ICL range a smaller Q may lose to the
	// best model and still be preferred.
	Margin float64
	// Workers bounds concurrent solver runs during the scan.
	Workers int
}

// Validate rejects option sets that must never reach the solver.
func (o SelectOptions) Validate() error {
	if o.Q != 0 && o.Q < MinQ {
		return errors.Configuration("Q must be at least %d, got %d", MinQ, o.Q)
	}
	if o.FormerQ != 0 && o.FormerQ < MinQ {
		return errors.Configuration("former state has %d components, at least %d required", o.FormerQ, MinQ)
	}
	if o.Qmin < MinQ {
		return errors.Configuration("Qmin must be at least %d, got %d", MinQ, o.Qmin)
	}
	if o.Qmax < o.Qmin {
		return errors.Configuration("Qmax (%d) must not be lower than Qmin (%d)", o.Qmax, o.Qmin)
	}
	if o.Margin < 0 || o.Margin >= 1 || math.IsNaN(o.Margin) {
		return errors.Configuration("ICL margin must be in [0, 1), got %v", o.Margin)
	}
	return nil
}

// Candidate is one evaluated Q.
type Candidate struct {
	Q         int     `json:"q"`
	ICL       float64 `json:"icl"`
	Converged bool    `json:"converged"`
}

// Selection is the outcome of [Selector.Select].
type Selection struct {
	Q          int
	Result     *nem.Result
	Candidates []Candidate
	// Scanned is false when a single Q was run.
	Scanned bool
	// Results holds the solver output for every candidate, by Q.
	Results map[int]*nem.Result
}

// Selector chooses the number of components by ICL.
type Selector struct {
	Solver nem.Solver
	Logger *log.Logger
}

// NewSelector returns a selector using solver.
func NewSelector(solver nem.Solver, logger *log.Logger) *Selector {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Selector{Solver: solver, Logger: logger}
}

// Select runs the solver for the candidate Q values and returns the
// chosen model. The input's Q field is ignored.
func (s *Selector) Select(ctx context.Context, in nem.Input, opts SelectOptions) (*Selection, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var qs []int
	switch {
	case opts.FormerQ > 0:
		qs = []int{opts.FormerQ}
	case opts.Q > 0:
		qs = []int{opts.Q}
	case opts.Qmin == opts.Qmax:
		qs = []int{opts.Qmin}
	default:
		for q := opts.Qmin; q <= opts.Qmax; q++ {
			qs = append(qs, q)
		}
	}

	results := make([]*nem.Result, len(qs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, q := range qs {
		g.Go(func() error {
			run := in
			run.Q = q
			start := time.Now()
			res, err := s.Solver.Solve(gctx, run)
			if err != nil {
				return err
			}
			s.Logger.Debug("evaluated model", "q", q, "icl", res.ICL, "converged", res.Converged,
				"iterations", res.Iterations, "elapsed", time.Since(start))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sel := &Selection{
		Scanned:    len(qs) > 1,
		Candidates: make([]Candidate, len(qs)),
		Results:    make(map[int]*nem.Result, len(qs)),
	}
	for i, q := range qs {
		sel.Candidates[i] = Candidate{Q: q, ICL: results[i].ICL, Converged: results[i].Converged}
		sel.Results[q] = results[i]
	}

	q, ok := ChooseQ(sel.Candidates, opts.Margin)
	if !ok {
		q = qs[0]
	}
	sel.Q = q
	sel.Result = sel.Results[q]
	return sel, nil
}

// ChooseQ returns the smallest converged Q whose ICL is within margin of
// the best one, that is ICL >= max - margin*(max-min) over the converged
// candidates. It reports false when no candidate converged.
func ChooseQ(candidates []Candidate, margin float64) (int, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range candidates {
		if !usable(c) {
			continue
		}
		lo = min(lo, c.ICL)
		hi = max(hi, c.ICL)
	}
	if math.IsInf(hi, -1) {
		return 0, false
	}
	threshold := hi - margin*(hi-lo)
	best := 0
	for _, c := range candidates {
		if usable(c) && c.ICL >= threshold && (best == 0 || c.Q < best) {
			best = c.Q
		}
	}
	return best, true
}

func usable(c Candidate) bool {
	return c.Converged && !math.IsNaN(c.ICL) && !math.IsInf(c.ICL, 0)
}

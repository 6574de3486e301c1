package nem

import (
	"context"
	"math"
	"math/rand/v2"
)

// Default EM settings.
const (
	DefaultMaxIterations  = 1000
	DefaultTolerance      = 1e-8
	DefaultMeanFieldSteps = 5
)

const (
	minDispersion  = 1e-6
	maxDispersion  = 0.5 - 1e-6
	minProportion  = 1e-12
	initJitter     = 1e-3
	posteriorDelta = 1e-9
)

// EM is the built-in solver: a Bernoulli mixture with binary centers fitted
// by neighborhood EM. The E-step is a mean-field update of
//
//	t_ik ∝ π_k f_k(x_i) exp(β Σ_j w_ij t_jk)
//
// where w_ij is the edge weight divided by the number of organisms.
//
// The zero value uses the package defaults.
type EM struct {
	MaxIterations  int
	Tolerance      float64
	MeanFieldSteps int
}

// NewEM returns an EM solver with default settings.
func NewEM() *EM {
	return &EM{
		MaxIterations:  DefaultMaxIterations,
		Tolerance:      DefaultTolerance,
		MeanFieldSteps: DefaultMeanFieldSteps,
	}
}

func (e *EM) settings() (maxIter int, tol float64, steps int) {
	maxIter, tol, steps = DefaultMaxIterations, DefaultTolerance, DefaultMeanFieldSteps
	if e != nil {
		if e.MaxIterations > 0 {
			maxIter = e.MaxIterations
		}
		if e.Tolerance > 0 {
			tol = e.Tolerance
		}
		if e.MeanFieldSteps > 0 {
			steps = e.MeanFieldSteps
		}
	}
	return maxIter, tol, steps
}

// model holds the working state of one run.
type model struct {
	x     [][]bool
	n, d  int
	q     int
	beta  float64
	free  bool
	neigh [][]Neighbor

	params Params
	t      [][]float64 // posteriors
	logf   [][]float64 // log f_k(x_i)
}

// Solve implements [Solver].
func (e *EM) Solve(ctx context.Context, in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	n, d := in.NumFamilies(), in.NumOrganisms()
	if n < in.Q || d < 2 {
		return UndefinedResult(in.Q, n, 0), nil
	}
	maxIter, tol, steps := e.settings()

	m := &model{
		x:     in.Presence,
		n:     n,
		d:     d,
		q:     in.Q,
		beta:  in.Beta,
		free:  in.FreeDispersion,
		neigh: smoothingNeighbors(in, d),
		t:     newMatrix(n, in.Q),
		logf:  newMatrix(n, in.Q),
	}
	rng := rand.New(rand.NewPCG(in.Seed, in.Seed^0xdeadbeef))

	if in.Init != nil && compatible(*in.Init, in.Q, d) {
		m.params = in.Init.Clone()
		m.clampParams()
		m.densities()
		m.eStep(steps)
	} else {
		m.initPosteriors(rng)
		m.params = Params{
			Proportions: make([]float64, in.Q),
			Dispersions: make([]float64, in.Q),
			Centers:     make([][]bool, in.Q),
		}
		for k := range m.params.Centers {
			m.params.Centers[k] = make([]bool, d)
		}
	}

	var (
		prev      = math.Inf(-1)
		ll        float64
		converged bool
		iter      int
	)
	for iter = 1; iter <= maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.mStep()
		m.densities()
		delta := m.eStep(steps)
		ll = m.logLikelihood()
		if math.IsNaN(ll) || math.IsInf(ll, 0) {
			return UndefinedResult(in.Q, n, iter), nil
		}
		if iter > 1 && (math.Abs(ll-prev) <= tol*math.Abs(ll) || delta < posteriorDelta) {
			converged = true
			break
		}
		prev = ll
	}
	if !converged {
		return UndefinedResult(in.Q, n, maxIter), nil
	}

	labels := make([]int, n)
	lc := 0.0
	for i := range n {
		best := 0
		for k := 1; k < m.q; k++ {
			if m.t[i][k] > m.t[i][best] {
				best = k
			}
		}
		labels[i] = best
		lc += math.Log(m.params.Proportions[best]) + m.logf[i][best]
	}
	if math.IsNaN(lc) {
		return UndefinedResult(in.Q, n, iter), nil
	}

	return &Result{
		Q:                      m.q,
		Labels:                 labels,
		Params:                 m.params,
		LogLikelihood:          ll,
		CompletedLogLikelihood: lc,
		ICL:                    lc - 0.5*float64(FreeParameters(m.q, d, m.free))*math.Log(float64(n)),
		Iterations:             iter,
		Converged:              true,
	}, nil
}

// FreeParameters returns the number of free parameters of a Q component
// model over d organisms.
func FreeParameters(q, d int, free bool) int {
	nu := (q - 1) + q*d
	if free {
		return nu + q
	}
	return nu + 1
}

func compatible(p Params, q, d int) bool {
	if len(p.Proportions) != q || len(p.Centers) != q || len(p.Dispersions) != q {
		return false
	}
	for _, c := range p.Centers {
		if len(c) != d {
			return false
		}
	}
	return true
}

// smoothingNeighbors drops edges touching families above the degree cap
// and normalizes weights by the organism count.
func smoothingNeighbors(in Input, d int) [][]Neighbor {
	if in.Beta == 0 || in.Neighbors == nil {
		return nil
	}
	capped := func(i int) bool {
		return in.MaxDegree > 0 && len(in.Neighbors[i]) > in.MaxDegree
	}
	out := make([][]Neighbor, len(in.Neighbors))
	for i, nbs := range in.Neighbors {
		if capped(i) {
			continue
		}
		for _, nb := range nbs {
			if capped(nb.Index) {
				continue
			}
			out[i] = append(out[i], Neighbor{Index: nb.Index, Weight: nb.Weight / float64(d)})
		}
	}
	return out
}

// initPosteriors assigns each family to the components whose level is
// closest to its presence ratio. Component 0 sits at ratio 1, component
// Q-1 at ratio 0 and the others are spread evenly in between.
func (m *model) initPosteriors(rng *rand.Rand) {
	sigma := 1 / (4 * float64(m.q-1))
	for i, row := range m.x {
		present := 0
		for _, v := range row {
			if v {
				present++
			}
		}
		r := float64(present) / float64(m.d)
		sum := 0.0
		for k := range m.q {
			level := float64(m.q-1-k) / float64(m.q-1)
			z := (r - level) / sigma
			m.t[i][k] = math.Exp(-0.5*z*z) + initJitter*rng.Float64()
			sum += m.t[i][k]
		}
		for k := range m.q {
			m.t[i][k] /= sum
		}
	}
}

func (m *model) mStep() {
	nk := make([]float64, m.q)
	ones := newMatrix(m.q, m.d)
	for i, row := range m.x {
		for k := range m.q {
			w := m.t[i][k]
			nk[k] += w
			for j, v := range row {
				if v {
					ones[k][j] += w
				}
			}
		}
	}

	for k := range m.q {
		m.params.Proportions[k] = max(nk[k]/float64(m.n), minProportion)
		if nk[k] < minProportion {
			continue
		}
		for j := range m.d {
			m.params.Centers[k][j] = ones[k][j] >= 0.5*nk[k]
		}
	}

	dist := make([]float64, m.q)
	for i, row := range m.x {
		for k := range m.q {
			dist[k] += m.t[i][k] * float64(hamming(row, m.params.Centers[k]))
		}
	}
	if m.free {
		for k := range m.q {
			if nk[k] < minProportion {
				m.params.Dispersions[k] = maxDispersion
				continue
			}
			m.params.Dispersions[k] = dist[k] / (nk[k] * float64(m.d))
		}
	} else {
		total := 0.0
		for _, v := range dist {
			total += v
		}
		eps := total / float64(m.n*m.d)
		for k := range m.q {
			m.params.Dispersions[k] = eps
		}
	}
	m.clampParams()
}

func (m *model) clampParams() {
	sum := 0.0
	for k, p := range m.params.Proportions {
		p = max(p, minProportion)
		m.params.Proportions[k] = p
		sum += p
	}
	for k := range m.params.Proportions {
		m.params.Proportions[k] /= sum
	}
	for k, e := range m.params.Dispersions {
		m.params.Dispersions[k] = min(max(e, minDispersion), maxDispersion)
	}
}

// densities fills logf with log f_k(x_i) = D log ε + (d-D) log(1-ε),
// D being the Hamming distance to the component center.
func (m *model) densities() {
	for i, row := range m.x {
		for k := range m.q {
			eps := m.params.Dispersions[k]
			dist := float64(hamming(row, m.params.Centers[k]))
			m.logf[i][k] = dist*math.Log(eps) + (float64(m.d)-dist)*math.Log(1-eps)
		}
	}
}

// eStep runs up to steps mean-field sweeps and returns the largest change
// of any posterior over the whole step.
func (m *model) eStep(steps int) float64 {
	if m.beta == 0 || m.neigh == nil {
		steps = 1
	}
	start := newMatrix(m.n, m.q)
	for i := range m.t {
		copy(start[i], m.t[i])
	}
	logits := make([]float64, m.q)
	next := newMatrix(m.n, m.q)
	for range steps {
		delta := 0.0
		for i := range m.n {
			for k := range m.q {
				logits[k] = math.Log(m.params.Proportions[k]) + m.logf[i][k]
			}
			if m.beta > 0 {
				for _, nb := range m.neigh[i] {
					for k := range m.q {
						logits[k] += m.beta * nb.Weight * m.t[nb.Index][k]
					}
				}
			}
			softmax(logits, next[i])
			for k := range m.q {
				delta = max(delta, math.Abs(next[i][k]-m.t[i][k]))
			}
		}
		m.t, next = next, m.t
		if delta < posteriorDelta {
			break
		}
	}
	total := 0.0
	for i := range m.t {
		for k := range m.q {
			total = max(total, math.Abs(m.t[i][k]-start[i][k]))
		}
	}
	return total
}

// logLikelihood returns the mixture log-likelihood without the field term.
func (m *model) logLikelihood() float64 {
	ll := 0.0
	logits := make([]float64, m.q)
	for i := range m.n {
		for k := range m.q {
			logits[k] = math.Log(m.params.Proportions[k]) + m.logf[i][k]
		}
		ll += logSumExp(logits)
	}
	return ll
}

func hamming(row, center []bool) int {
	n := 0
	for j, v := range row {
		if v != center[j] {
			n++
		}
	}
	return n
}

func softmax(logits, out []float64) {
	lse := logSumExp(logits)
	for k, l := range logits {
		out[k] = math.Exp(l - lse)
	}
}

func logSumExp(v []float64) float64 {
	m := math.Inf(-1)
	for _, x := range v {
		m = max(m, x)
	}
	if math.IsInf(m, -1) {
		return m
	}
	s := 0.0
	for _, x := range v {
		s += math.Exp(x - m)
	}
	return m + math.Log(s)
}

func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	backing := make([]float64, rows*cols)
	for i := range m {
		m[i] = backing[i*cols : (i+1)*cols]
	}
	return m
}

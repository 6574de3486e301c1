package evolution

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/panpart/pkg/errors"
)

// DefaultMinOrganismsForFit is the default size above which samples enter
// the Heaps' law fit.
const DefaultMinOrganismsForFit = 15

// Fit is a Heaps' law fit count = Kappa * N^Gamma for one class.
// Fields are NaN when the fit failed.
type Fit struct {
	Class       string
	Kappa       float64
	Gamma       float64
	KappaStdErr float64
	GammaStdErr float64
	IQRArea     float64
	Points      int
}

// OK reports whether every fitted value is finite.
func (f Fit) OK() bool {
	for _, v := range []float64{f.Kappa, f.Gamma, f.KappaStdErr, f.GammaStdErr} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

const (
	lmMaxIterations = 200
	lmTolerance     = 1e-12
)

// FitHeaps fits y = kappa * x^gamma by Levenberg-Marquardt least squares,
// started from a log-log linear regression. Standard errors come from the
// covariance s^2 (J^T J)^-1 with s^2 = SSR/(n-2). A fit that cannot be
// computed or produces non-finite values returns a FIT_FAILURE error and
// NaN parameters.
func FitHeaps(xs, ys []float64) (kappa, gamma, kappaErr, gammaErr float64, err error) {
	nan := math.NaN()
	n := len(xs)
	if n != len(ys) {
		return nan, nan, nan, nan, errors.New(errors.ErrCodeInternal, "fit: %d sizes for %d values", n, len(ys))
	}
	if n < 3 {
		return nan, nan, nan, nan, errors.New(errors.ErrCodeFitFailure, "fit: %d points, need at least 3", n)
	}

	kappa, gamma = initialGuess(xs, ys)
	ssr := sumSquares(xs, ys, kappa, gamma)
	lambda := 1e-3
	for range lmMaxIterations {
		jtj, jtr := normalEquations(xs, ys, kappa, gamma)
		improved := false
		for range 30 {
			a := mat.NewDense(2, 2, []float64{
				jtj.At(0, 0) * (1 + lambda), jtj.At(0, 1),
				jtj.At(1, 0), jtj.At(1, 1) * (1 + lambda),
			})
			var step mat.VecDense
			if err := step.SolveVec(a, jtr); err != nil {
				lambda *= 10
				continue
			}
			k, g := kappa+step.AtVec(0), gamma+step.AtVec(1)
			if s := sumSquares(xs, ys, k, g); s <= ssr && !math.IsNaN(s) {
				done := ssr-s <= lmTolerance*max(ssr, 1)
				kappa, gamma, ssr = k, g, s
				lambda = max(lambda/10, 1e-12)
				improved = !done
				break
			}
			lambda *= 10
		}
		if !improved {
			break
		}
	}

	jtj, _ := normalEquations(xs, ys, kappa, gamma)
	var cov mat.Dense
	if err := cov.Inverse(jtj); err != nil {
		return nan, nan, nan, nan, errors.Wrap(errors.ErrCodeFitFailure, err, "fit: singular covariance")
	}
	s2 := ssr / float64(n-2)
	kappaErr = math.Sqrt(s2 * cov.At(0, 0))
	gammaErr = math.Sqrt(s2 * cov.At(1, 1))
	for _, v := range []float64{kappa, gamma, kappaErr, gammaErr} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nan, nan, nan, nan, errors.New(errors.ErrCodeFitFailure, "fit: non-finite parameters")
		}
	}
	return kappa, gamma, kappaErr, gammaErr, nil
}

// initialGuess regresses log y on log x over the positive points. Without
// two such points it starts from a flat curve at the mean.
func initialGuess(xs, ys []float64) (kappa, gamma float64) {
	var lx, ly []float64
	for i := range xs {
		if xs[i] > 0 && ys[i] > 0 {
			lx = append(lx, math.Log(xs[i]))
			ly = append(ly, math.Log(ys[i]))
		}
	}
	if len(lx) >= 2 && stat.Variance(lx, nil) > 0 {
		alpha, beta := stat.LinearRegression(lx, ly, nil, false)
		return math.Exp(alpha), beta
	}
	return stat.Mean(ys, nil), 0
}

func sumSquares(xs, ys []float64, kappa, gamma float64) float64 {
	s := 0.0
	for i := range xs {
		r := ys[i] - kappa*math.Pow(xs[i], gamma)
		s += r * r
	}
	return s
}

// normalEquations returns J^T J and J^T r of the model at (kappa, gamma).
func normalEquations(xs, ys []float64, kappa, gamma float64) (*mat.SymDense, *mat.VecDense) {
	n := len(xs)
	jac := mat.NewDense(n, 2, nil)
	res := mat.NewVecDense(n, nil)
	for i, x := range xs {
		p := math.Pow(x, gamma)
		jac.Set(i, 0, p)
		jac.Set(i, 1, kappa*p*math.Log(x))
		res.SetVec(i, ys[i]-kappa*p)
	}
	var jtj mat.SymDense
	jtj.SymOuterK(1, jac.T())
	var jtr mat.VecDense
	jtr.MulVec(jac.T(), res)
	return &jtj, &jtr
}

// FitCurves fits every class on the samples larger than minN and attaches
// the IQR area of the matching curve. Failed fits keep NaN parameters.
func FitCurves(samples []Sample, curves []Curve, minN int) []Fit {
	fits := make([]Fit, 0, len(curves))
	for _, c := range curves {
		var xs, ys []float64
		for _, s := range samples {
			if s.N <= minN {
				continue
			}
			if v, ok := s.Value(c.Class); ok {
				xs = append(xs, float64(s.N))
				ys = append(ys, v)
			}
		}
		f := Fit{Class: c.Class, IQRArea: c.IQRArea(), Points: len(xs)}
		f.Kappa, f.Gamma, f.KappaStdErr, f.GammaStdErr, _ = FitHeaps(xs, ys)
		if !f.OK() {
			f.Kappa, f.Gamma, f.KappaStdErr, f.GammaStdErr = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		}
		fits = append(fits, f)
	}
	return fits
}

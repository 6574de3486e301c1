package evolution

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/partition"
)

func heaps(kappa, gamma float64, ns ...int) ([]float64, []float64) {
	xs := make([]float64, len(ns))
	ys := make([]float64, len(ns))
	for i, n := range ns {
		xs[i] = float64(n)
		ys[i] = kappa * math.Pow(float64(n), gamma)
	}
	return xs, ys
}

func TestFitHeapsExact(t *testing.T) {
	xs, ys := heaps(120, 0.35, 16, 18, 20, 25, 30, 35, 40)
	kappa, gamma, ke, ge, err := FitHeaps(xs, ys)
	require.NoError(t, err)
	require.InDelta(t, 120, kappa, 1e-6)
	require.InDelta(t, 0.35, gamma, 1e-9)
	require.GreaterOrEqual(t, ke, 0.0)
	require.GreaterOrEqual(t, ge, 0.0)
	require.Less(t, ke, 1e-3)
}

func TestFitHeapsNoisy(t *testing.T) {
	var xs, ys []float64
	for n := 16; n <= 60; n++ {
		for _, jitter := range []float64{-3, 0, 3} {
			xs = append(xs, float64(n))
			ys = append(ys, 800*math.Pow(float64(n), 0.2)+jitter)
		}
	}
	kappa, gamma, ke, ge, err := FitHeaps(xs, ys)
	require.NoError(t, err)
	require.InEpsilon(t, 800, kappa, 0.02)
	require.InDelta(t, 0.2, gamma, 0.01)
	require.Greater(t, ke, 0.0)
	require.Greater(t, ge, 0.0)
}

func TestFitHeapsFailures(t *testing.T) {
	_, _, _, _, err := FitHeaps([]float64{16, 17}, []float64{1, 2})
	require.True(t, errors.Is(err, errors.ErrCodeFitFailure), "too few points: %v", err)

	xs, ys := heaps(0, 0, 16, 17, 18, 19)
	for i := range ys {
		ys[i] = 0
	}
	kappa, _, _, _, err := FitHeaps(xs, ys)
	require.True(t, errors.Is(err, errors.ErrCodeFitFailure), "all zero: %v", err)
	require.True(t, math.IsNaN(kappa))
}

func TestFitCurvesWritesNA(t *testing.T) {
	var samples []Sample
	for n := 1; n <= 20; n++ {
		samples = append(samples, Sample{N: n, Stats: partition.Stats{
			Persistent: 100, Shell: 10 * n, Cloud: 0,
			ExactCore: 100, ExactAccessory: 10 * n,
			SoftCore: 100, SoftAccessory: 10 * n, Q: 3,
		}})
	}
	curves := Aggregate(samples, []string{"shell", "cloud"}, 20)
	fits := FitCurves(samples, curves, 15)
	require.Len(t, fits, 2)
	require.True(t, fits[0].OK())
	require.InDelta(t, 1.0, fits[0].Gamma, 1e-6)
	require.False(t, fits[1].OK(), "constant zero class must not fit")

	var buf bytes.Buffer
	require.NoError(t, WriteParams(&buf, fits))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, "partition,kappa,gamma,kappa_std_error,gamma_std_error,IQR_area", lines[0])
	require.True(t, strings.HasPrefix(lines[2], "cloud,NA,NA,NA,NA,"), lines[2])
}

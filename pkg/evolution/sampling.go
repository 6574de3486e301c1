package evolution

import (
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
)

// Binomial returns the number of k-subsets of n items as a float64. The
// value is exact while it stays below 2^53 and grows to +Inf on overflow.
func Binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	k = min(k, n-k)
	c := 1.0
	for i := 1; i <= k; i++ {
		c = c * float64(n-k+i) / float64(i)
	}
	return math.Round(c)
}

// Repeats returns the number of subsets of size k drawn from n organisms:
// ceil(ratio*C(n,k)) bounded to [MinRepeats, MaxRepeats] and to C(n,k).
func (r Resampling) Repeats(n, k int) int {
	c := Binomial(n, k)
	target := math.Ceil(r.Ratio * c)
	target = max(target, float64(r.MinRepeats))
	target = min(target, float64(r.MaxRepeats), c)
	if target >= math.MaxInt {
		return math.MaxInt
	}
	return int(target)
}

// NewRand returns the generator used for one seeded sampling run.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// DrawSubsets draws the organism subsets of an evolution run. Sizes run from 1
// to len(organisms)-1, keeping multiples of Step up to Limit. When every
// combination of a size is wanted they are all enumerated; otherwise
// distinct subsets are drawn at random. The flattened list is shuffled.
// Organisms inside a subset keep the order of the input.
func DrawSubsets(organisms []string, r Resampling, seed uint64) [][]string {
	n := len(organisms)
	rng := NewRand(seed)

	var out [][]string
	for k := 1; k < n; k++ {
		if k%r.Step != 0 || k > r.Limit {
			continue
		}
		want := r.Repeats(n, k)
		var combos [][]int
		if float64(want) == Binomial(n, k) {
			combos = allCombinations(n, k)
		} else {
			combos = drawCombinations(rng, n, k, want)
		}
		for _, c := range combos {
			subset := make([]string, k)
			for i, idx := range c {
				subset[i] = organisms[idx]
			}
			out = append(out, subset)
		}
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// allCombinations enumerates the k-subsets of [0,n) in lexicographic order.
func allCombinations(n, k int) [][]int {
	var out [][]int
	c := make([]int, k)
	for i := range c {
		c[i] = i
	}
	for {
		out = append(out, slices.Clone(c))
		i := k - 1
		for i >= 0 && c[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		c[i]++
		for j := i + 1; j < k; j++ {
			c[j] = c[j-1] + 1
		}
	}
}

// drawCombinations draws want distinct k-subsets of [0,n). want must not
// exceed C(n,k).
func drawCombinations(rng *rand.Rand, n, k, want int) [][]int {
	seen := make(map[string]bool, want)
	out := make([][]int, 0, want)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	var key strings.Builder
	for len(out) < want {
		// Partial Fisher-Yates: the first k slots form a uniform subset.
		for i := range k {
			j := i + rng.IntN(n-i)
			perm[i], perm[j] = perm[j], perm[i]
		}
		c := slices.Clone(perm[:k])
		slices.Sort(c)

		key.Reset()
		for _, v := range c {
			key.WriteString(strconv.Itoa(v))
			key.WriteByte(',')
		}
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		out = append(out, c)
	}
	return out
}

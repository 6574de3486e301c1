package evolution

import (
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/panpart/pkg/errors"
)

// QMode selects how the number of components is chosen for each sample.
type QMode int

const (
	// QFixed runs every sample at one Q: the full pangenome's Q when it is
	// partitioned, otherwise the requested Q, otherwise 3.
	QFixed QMode = 1
	// QBounded selects Q per sample between Qmin and the full pangenome's
	// Q (or the requested Q, or Qmax).
	QBounded QMode = 2
	// QAuto selects Q per sample between Qmin and Qmax.
	QAuto QMode = 3
)

// Unlimited is the value of MaxRepeats and Limit given as "Inf".
const Unlimited = math.MaxInt

// Resampling controls how organism subsets are drawn.
type Resampling struct {
	// Ratio is the fraction of all combinations drawn for each size.
	Ratio float64 `json:"ratio" toml:"ratio" yaml:"ratio"`
	// MinRepeats and MaxRepeats bound the number of subsets per size.
	MinRepeats int `json:"min" toml:"min" yaml:"min"`
	MaxRepeats int `json:"max" toml:"max" yaml:"max"`
	// Step keeps only subset sizes that are a multiple of it.
	Step int `json:"step" toml:"step" yaml:"step"`
	// Limit is the largest subset size.
	Limit int `json:"limit" toml:"limit" yaml:"limit"`
	// QMode is the per-sample Q policy.
	QMode QMode `json:"q_mode" toml:"q_mode" yaml:"q_mode"`
}

// DefaultResampling returns the default resampling: 10% of the
// combinations, exactly 10 subsets per size, every size, Q fixed.
func DefaultResampling() Resampling {
	return Resampling{Ratio: 0.1, MinRepeats: 10, MaxRepeats: 10, Step: 1, Limit: Unlimited, QMode: QFixed}
}

// ParseResampling parses the six positional parameters
// ratio,min,max,step,limit,evolutionQ. They may be given as six values
// or as one comma separated value. "Inf" is accepted for max and limit.
func ParseResampling(args ...string) (Resampling, error) {
	if len(args) == 1 {
		args = strings.Split(args[0], ",")
	}
	if len(args) != 6 {
		return Resampling{}, errors.Configuration("resampling takes 6 parameters (ratio,min,max,step,limit,evolutionQ), got %d", len(args))
	}
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}

	var r Resampling
	var err error
	if r.Ratio, err = strconv.ParseFloat(args[0], 64); err != nil {
		return Resampling{}, errors.Configuration("resampling ratio %q is not a number", args[0])
	}
	ints := []struct {
		name string
		dst  *int
		inf  bool
	}{
		{"minimum resampling", &r.MinRepeats, false},
		{"maximum resampling", &r.MaxRepeats, true},
		{"step", &r.Step, false},
		{"limit", &r.Limit, true},
	}
	for i, p := range ints {
		s := args[i+1]
		if p.inf && strings.EqualFold(s, "inf") {
			*p.dst = Unlimited
			continue
		}
		if *p.dst, err = strconv.Atoi(s); err != nil {
			return Resampling{}, errors.Configuration("%s %q is not an integer", p.name, s)
		}
	}
	mode, err := strconv.Atoi(args[5])
	if err != nil {
		return Resampling{}, errors.Configuration("evolution Q mode %q is not an integer", args[5])
	}
	r.QMode = QMode(mode)
	return r, r.Validate()
}

// Validate checks the parameters.
func (r Resampling) Validate() error {
	switch {
	case !(r.Ratio > 0) || math.IsInf(r.Ratio, 0):
		return errors.Configuration("resampling ratio must be positive, got %v", r.Ratio)
	case r.MinRepeats < 1:
		return errors.Configuration("minimum resampling must be at least 1, got %d", r.MinRepeats)
	case r.MaxRepeats < r.MinRepeats:
		return errors.Configuration("maximum resampling (%d) is below the minimum (%d)", r.MaxRepeats, r.MinRepeats)
	case r.Step < 1:
		return errors.Configuration("step must be at least 1, got %d", r.Step)
	case r.Limit < 1:
		return errors.Configuration("limit must be at least 1, got %d", r.Limit)
	case r.QMode < QFixed || r.QMode > QAuto:
		return errors.Configuration("evolution Q mode must be 1, 2 or 3, got %d", r.QMode)
	}
	return nil
}

// String formats r in the positional form accepted by [ParseResampling].
func (r Resampling) String() string {
	inf := func(n int) string {
		if n == Unlimited {
			return "Inf"
		}
		return strconv.Itoa(n)
	}
	return strings.Join([]string{
		strconv.FormatFloat(r.Ratio, 'g', -1, 64),
		strconv.Itoa(r.MinRepeats),
		inf(r.MaxRepeats),
		strconv.Itoa(r.Step),
		inf(r.Limit),
		strconv.Itoa(int(r.QMode)),
	}, ",")
}

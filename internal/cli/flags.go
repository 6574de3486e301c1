package cli

import (
	"github.com/spf13/pflag"

	"github.com/matzehuels/panpart/pkg/pipeline"
)

// modelFlags are the partition options shared by the partition and
// evolution commands. Only flags set on the command line override the
// configuration file.
type modelFlags struct {
	q, qmin, qmax  int
	margin, beta   float64
	maxDegree      int
	freeDispersion bool
	seed           uint64
	chunkSize      int
	softCore       float64
	removeHighCopy int
	formerDir      string
	workdir        string
	keepTmp        bool
	organisms      []string
	workers        int
}

// register adds the flags to fs. Chunk workers are only registered for
// commands that run a single partition.
func (f *modelFlags) register(fs *pflag.FlagSet, withWorkers bool) {
	d := pipeline.DefaultOptions()
	fs.IntVarP(&f.q, "q", "Q", 0, "number of partitions (0 selects it by ICL)")
	fs.IntVar(&f.qmin, "qmin", d.Qmin, "smallest number of partitions tried")
	fs.IntVar(&f.qmax, "qmax", d.Qmax, "largest number of partitions tried")
	fs.Float64Var(&f.margin, "icl-margin", d.Margin, "ICL margin for choosing Q, as a fraction of the ICL range")
	fs.Float64VarP(&f.beta, "beta", "b", d.Beta, "strength of the neighborhood smoothing (0 disables it)")
	fs.IntVar(&f.maxDegree, "max-degree", d.MaxDegree, "ignore the neighbors of families with more neighbors (0 keeps all)")
	fs.BoolVar(&f.freeDispersion, "free-dispersion", false, "estimate one dispersion per organism and partition")
	fs.Uint64Var(&f.seed, "seed", d.Seed, "random seed (0 uses the default)")
	fs.IntVar(&f.chunkSize, "chunk-size", d.ChunkSize, "organisms per chunk on large pangenomes")
	fs.Float64Var(&f.softCore, "soft-core", d.SoftCoreThreshold, "soft core presence threshold, in (0, 1)")
	fs.IntVar(&f.removeHighCopy, "remove-high-copy", 0, "drop families with this many copies or more in some organism (0 keeps all)")
	fs.StringVar(&f.formerDir, "former-dir", "", "start from the model kept in this working directory")
	fs.StringVar(&f.workdir, "workdir", "", "working directory (default: a temporary directory)")
	fs.BoolVar(&f.keepTmp, "keep-tmp", false, "keep the working directory")
	fs.StringSliceVar(&f.organisms, "organisms", nil, "restrict the run to these organisms (comma-separated)")
	if withWorkers {
		fs.IntVarP(&f.workers, "workers", "w", d.Workers, "chunks partitioned in parallel")
	}
}

// apply overrides opts with every flag set on the command line.
func (f *modelFlags) apply(fs *pflag.FlagSet, opts *pipeline.Options) {
	setters := map[string]func(){
		"q":                func() { opts.Q = f.q },
		"qmin":             func() { opts.Qmin = f.qmin },
		"qmax":             func() { opts.Qmax = f.qmax },
		"icl-margin":       func() { opts.Margin = f.margin },
		"beta":             func() { opts.Beta = f.beta },
		"max-degree":       func() { opts.MaxDegree = f.maxDegree },
		"free-dispersion":  func() { opts.FreeDispersion = f.freeDispersion },
		"seed":             func() { opts.Seed = f.seed },
		"chunk-size":       func() { opts.ChunkSize = f.chunkSize },
		"soft-core":        func() { opts.SoftCoreThreshold = f.softCore },
		"remove-high-copy": func() { opts.RemoveHighCopy = f.removeHighCopy },
		"former-dir":       func() { opts.FormerDir = f.formerDir },
		"workdir":          func() { opts.Workdir = f.workdir },
		"keep-tmp":         func() { opts.KeepTempFiles = f.keepTmp },
		"organisms":        func() { opts.Organisms = f.organisms },
		"workers":          func() { opts.Workers = f.workers },
	}
	fs.Visit(func(fl *pflag.Flag) {
		if set, ok := setters[fl.Name]; ok {
			set()
		}
	})
}

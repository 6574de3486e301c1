package partition

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/nem"
	"github.com/matzehuels/panpart/pkg/pangenome"
)

// Working directory file names.
const (
	ColumnOrgFile = "column_org_file"
	SummarySuffix = "summary.mf"
	IndexFile     = "nem_file.index"
	MatrixFile    = "nem_file.dat"
	NeighborFile  = "nem_file.nei"
	LabelsFile    = "nem_file.labels.tsv"
)

// FormerState is the model of a former run read back from its working
// directory.
type FormerState struct {
	Dir       string
	Organisms []string
	Params    nem.Params
}

// Q returns the number of components of the former model.
func (f *FormerState) Q() int { return len(f.Params.Proportions) }

// LoadFormerState reads a former working directory. It must contain the
// column organism file and exactly one summary file.
func LoadFormerState(dir string) (*FormerState, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.Configuration("former state %q is not a directory", dir)
	}

	orgs, err := readLines(filepath.Join(dir, ColumnOrgFile))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "former state %q has no readable %s", dir, ColumnOrgFile)
	}
	if len(orgs) == 0 {
		return nil, errors.Configuration("former state %q lists no organisms", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*"+SummarySuffix))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "former state %q", dir)
	}
	switch len(matches) {
	case 0:
		return nil, errors.Configuration("former state %q has no *%s file", dir, SummarySuffix)
	case 1:
	default:
		return nil, errors.Configuration("former state %q has %d *%s files, expected exactly one", dir, len(matches), SummarySuffix)
	}

	lines, err := readLines(matches[0])
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "read %s", matches[0])
	}
	params, err := parseSummary(lines, len(orgs))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "parse %s", matches[0])
	}
	if len(params.Proportions) < MinQ {
		return nil, errors.Configuration("former state %q has %d components, at least %d required", dir, len(params.Proportions), MinQ)
	}
	return &FormerState{Dir: dir, Organisms: orgs, Params: params}, nil
}

// ParamsFor maps the former parameters onto a new organism order. It
// returns nil when an organism is missing from the former columns.
func (f *FormerState) ParamsFor(organisms []string) *nem.Params {
	col := make(map[string]int, len(f.Organisms))
	for j, o := range f.Organisms {
		col[o] = j
	}
	idx := make([]int, len(organisms))
	for j, o := range organisms {
		c, ok := col[o]
		if !ok {
			return nil
		}
		idx[j] = c
	}
	p := f.Params.Clone()
	for k, center := range f.Params.Centers {
		mapped := make([]bool, len(organisms))
		for j, c := range idx {
			mapped[j] = center[c]
		}
		p.Centers[k] = mapped
	}
	return &p
}

func parseSummary(lines []string, organisms int) (nem.Params, error) {
	var p nem.Params
	for n, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			return p, fmt.Errorf("line %d: expected 4 tab separated fields, got %d", n+1, len(fields))
		}
		prop, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return p, fmt.Errorf("line %d: proportion: %w", n+1, err)
		}
		disp, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return p, fmt.Errorf("line %d: dispersion: %w", n+1, err)
		}
		if len(fields[3]) != organisms {
			return p, fmt.Errorf("line %d: center has %d columns, want %d", n+1, len(fields[3]), organisms)
		}
		center := make([]bool, organisms)
		for j, c := range fields[3] {
			switch c {
			case '1':
				center[j] = true
			case '0':
			default:
				return p, fmt.Errorf("line %d: invalid center bit %q", n+1, c)
			}
		}
		p.Proportions = append(p.Proportions, prop)
		p.Dispersions = append(p.Dispersions, disp)
		p.Centers = append(p.Centers, center)
	}
	return p, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if line := strings.TrimRight(sc.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

// WriteInputFiles writes the clustering input of a chunk to dir: the
// family index, the organism columns, the presence matrix and the
// neighbor lists.
func WriteInputFiles(dir string, sub *pangenome.Subgraph, in nem.Input) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var b strings.Builder
	for i, f := range sub.Families {
		fmt.Fprintf(&b, "%d\t%s\n", i+1, f.ID)
	}
	if err := os.WriteFile(filepath.Join(dir, IndexFile), []byte(b.String()), 0o644); err != nil {
		return err
	}

	b.Reset()
	for _, o := range sub.Organisms {
		b.WriteString(o)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, ColumnOrgFile), []byte(b.String()), 0o644); err != nil {
		return err
	}

	b.Reset()
	for _, row := range in.Presence {
		for j, v := range row {
			if j > 0 {
				b.WriteByte('\t')
			}
			if v {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		b.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, MatrixFile), []byte(b.String()), 0o644); err != nil {
		return err
	}

	b.Reset()
	for i, nbs := range in.Neighbors {
		fmt.Fprintf(&b, "%d\t%d", i+1, len(nbs))
		for _, nb := range nbs {
			fmt.Fprintf(&b, "\t%d\t%g", nb.Index+1, nb.Weight)
		}
		b.WriteByte('\n')
	}
	return os.WriteFile(filepath.Join(dir, NeighborFile), []byte(b.String()), 0o644)
}

// WriteSummary writes the component summary of a result. Component lines
// are written in persistent to cloud order when ranking is given.
func WriteSummary(path string, res *nem.Result, ranking []int) error {
	order := ranking
	if len(order) == 0 {
		order = make([]int, len(res.Params.Proportions))
		for k := range order {
			order[k] = k
		}
	}
	var b strings.Builder
	for pos, k := range order {
		if k >= len(res.Params.Proportions) {
			continue
		}
		label := "S" + strconv.Itoa(pos)
		switch pos {
		case 0:
			label = "P"
		case len(order) - 1:
			label = "C"
		}
		bits := make([]byte, len(res.Params.Centers[k]))
		for j, v := range res.Params.Centers[k] {
			bits[j] = '0'
			if v {
				bits[j] = '1'
			}
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", label,
			strconv.FormatFloat(res.Params.Proportions[k], 'g', -1, 64),
			strconv.FormatFloat(res.Params.Dispersions[k], 'g', -1, 64),
			bits)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// WriteLabels writes one family per line with its component and label.
func WriteLabels(path string, families []string, res *nem.Result, votes map[string]Vote) error {
	var b strings.Builder
	for i, id := range families {
		fmt.Fprintf(&b, "%s\t%d\t%s\n", id, res.Labels[i], votes[id].Subpartition)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/pangenome"
)

// ReadRtab reads a tab separated presence/absence matrix and returns the
// finalized graph. Blank lines are skipped; every row must have one cell
// per header column.
func ReadRtab(r io.Reader) (*pangenome.Graph, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	g := pangenome.New()
	var organisms []string
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		cells := strings.Split(text, "\t")
		if organisms == nil {
			if len(cells) < 2 {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "matrix header has no organism columns")
			}
			organisms = cells[1:]
			for _, o := range organisms {
				if _, err := g.AddOrganism(o); err != nil {
					return nil, fmt.Errorf("organism %s: %w", o, err)
				}
			}
			continue
		}
		if len(cells) != len(organisms)+1 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "matrix line %d has %d cells, want %d", line, len(cells), len(organisms)+1)
		}
		fam := cells[0]
		for i, cell := range cells[1:] {
			n, err := strconv.Atoi(strings.TrimSpace(cell))
			if err != nil || n < 0 {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "matrix line %d: %q is not a gene count", line, cell)
			}
			if err := g.AddPresence(fam, organisms[i], n); err != nil {
				return nil, fmt.Errorf("matrix line %d: %w", line, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read matrix")
	}
	if organisms == nil {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "matrix is empty")
	}
	g.Finalize()
	return g, nil
}

// ImportRtab reads a presence/absence matrix from the file at path.
func ImportRtab(path string) (*pangenome.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	g, err := ReadRtab(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// WriteRtab writes the 1/0 presence matrix of g, families in graph order.
func WriteRtab(g *pangenome.Graph, w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("Gene")
	for _, o := range g.Organisms() {
		bw.WriteByte('\t')
		bw.WriteString(o.ID)
	}
	bw.WriteByte('\n')
	for _, f := range g.Families() {
		bw.WriteString(f.ID)
		for _, o := range g.Organisms() {
			if f.Count(o) > 0 {
				bw.WriteString("\t1")
			} else {
				bw.WriteString("\t0")
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ExportRtab writes the presence matrix of g to a file at path.
func ExportRtab(g *pangenome.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	defer f.Close()
	return WriteRtab(g, f)
}

// Import loads a graph, choosing the reader by file extension: .json for
// the JSON format, anything else is read as a matrix.
func Import(path string) (*pangenome.Graph, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ImportJSON(path)
	}
	return ImportRtab(path)
}

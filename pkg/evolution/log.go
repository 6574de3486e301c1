package evolution

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/partition"
)

// File names written by a run.
const (
	StatsFile   = "evol_stats.csv"
	SummaryFile = "evol_summary.csv"
	ParamsFile  = "evol_param.csv"
)

// NA marks a missing value.
const NA = "NA"

// LogHeader is the header of the evolution log.
var LogHeader = []string{
	"nb_org", "persistent", "shell", "cloud", "undefined",
	"exact_core", "exact_accessory", "soft_core", "soft_accessory",
	"pangenome", "Q",
}

// LogWriter writes evolution log rows. Every row is flushed as soon as it
// is written. It is not safe for concurrent use; one collector owns it.
type LogWriter struct {
	w *csv.Writer
}

// NewLogWriter writes the header and returns the writer.
func NewLogWriter(w io.Writer) (*LogWriter, error) {
	lw := &LogWriter{w: csv.NewWriter(w)}
	if err := lw.write(LogHeader); err != nil {
		return nil, err
	}
	return lw, nil
}

// Write appends one sample.
func (lw *LogWriter) Write(s Sample) error {
	row := []string{strconv.Itoa(s.N)}
	for _, class := range LogHeader[1:] {
		if v, ok := s.Value(class); ok {
			row = append(row, strconv.Itoa(int(v)))
		} else {
			row = append(row, NA)
		}
	}
	return lw.write(row)
}

func (lw *LogWriter) write(row []string) error {
	if err := lw.w.Write(row); err != nil {
		return err
	}
	lw.w.Flush()
	return lw.w.Error()
}

// ReadLog parses an evolution log. Model classes written as NA are read
// back as zero with Undefined carrying the count that caused them.
func ReadLog(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(LogHeader)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read evolution log")
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "evolution log is empty")
	}
	for i, name := range LogHeader {
		if records[0][i] != name {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "evolution log column %d is %q, want %q", i+1, records[0][i], name)
		}
	}

	samples := make([]Sample, 0, len(records)-1)
	for line, rec := range records[1:] {
		vals := make([]int, len(rec))
		for i, field := range rec {
			if field == NA {
				continue
			}
			v, err := strconv.Atoi(field)
			if err != nil {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "evolution log line %d: %s is not a count", line+2, LogHeader[i])
			}
			vals[i] = v
		}
		samples = append(samples, Sample{
			N: vals[0],
			Stats: partition.Stats{
				Persistent:     vals[1],
				Shell:          vals[2],
				Cloud:          vals[3],
				Undefined:      vals[4],
				ExactCore:      vals[5],
				ExactAccessory: vals[6],
				SoftCore:       vals[7],
				SoftAccessory:  vals[8],
				Q:              vals[10],
			},
		})
	}
	return samples, nil
}

// WriteSummary writes the per class and size statistics.
func WriteSummary(w io.Writer, curves []Curve) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"partition", "nb_org", "count", "min", "q1", "median", "mean", "q3", "max"})
	for _, c := range curves {
		for _, p := range c.Points {
			_ = cw.Write([]string{
				c.Class, strconv.Itoa(p.N), strconv.Itoa(p.Count),
				formatFloat(p.Min), formatFloat(p.Q1), formatFloat(p.Median),
				formatFloat(p.Mean), formatFloat(p.Q3), formatFloat(p.Max),
			})
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteParams writes one Heaps' law fit per class. Failed fits are
// written as NA; the IQR area is always reported.
func WriteParams(w io.Writer, fits []Fit) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"partition", "kappa", "gamma", "kappa_std_error", "gamma_std_error", "IQR_area"})
	for _, f := range fits {
		row := []string{f.Class, NA, NA, NA, NA, formatFloat(f.IQRArea)}
		if f.OK() {
			row[1] = formatFloat(f.Kappa)
			row[2] = formatFloat(f.Gamma)
			row[3] = formatFloat(f.KappaStdErr)
			row[4] = formatFloat(f.GammaStdErr)
		}
		_ = cw.Write(row)
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// String formats a sample as a log line, without the trailing newline.
func (s Sample) String() string {
	out := strconv.Itoa(s.N)
	for _, class := range LogHeader[1:] {
		if v, ok := s.Value(class); ok {
			out += fmt.Sprintf(",%d", int(v))
		} else {
			out += "," + NA
		}
	}
	return out
}

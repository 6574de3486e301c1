// Package store keeps evolution runs in a SQLite database.
//
// Evolution runs are long, and their text logs are spread over output
// directories. A store collects the rows and fits of many runs in one file
// so curves of different parameter sets can be compared later without
// re-running anything:
//
//	st, err := store.Open(ctx, "runs.db")
//	id, err := st.SaveReport(ctx, store.RunInfo{Input: "pan.json"}, report)
//	runs, err := st.Runs(ctx)
//	rows, err := st.Samples(ctx, id)
//
// The database uses the pure Go modernc.org/sqlite driver, so no C
// toolchain is needed.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/evolution"
	"github.com/matzehuels/panpart/pkg/partition"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	input      TEXT NOT NULL,
	resampling TEXT NOT NULL,
	organisms  INTEGER NOT NULL,
	samples    INTEGER NOT NULL,
	failures   INTEGER NOT NULL,
	duration   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS samples (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq    INTEGER NOT NULL,
	n      INTEGER NOT NULL,
	full   INTEGER NOT NULL,
	stats  BLOB NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS fits (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	class         TEXT NOT NULL,
	kappa         REAL,
	gamma         REAL,
	kappa_std_err REAL,
	gamma_std_err REAL,
	iqr_area      REAL,
	points        INTEGER NOT NULL,
	PRIMARY KEY (run_id, class)
);`

// timeLayout has a fixed width so timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run describes one stored evolution run.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Input      string
	Resampling string
	Organisms  int
	Samples    int
	Failures   int
	Duration   time.Duration
}

// RunInfo is the run metadata not carried by an evolution report.
type RunInfo struct {
	Input      string
	Resampling evolution.Resampling
	Organisms  int
}

// Store is an evolution run database. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeInvalidPath, "store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create store directory")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open sqlite %s", path)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "enable foreign keys")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create schema")
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveReport stores the rows and fits of report as a new run and returns
// its id.
func (s *Store) SaveReport(ctx context.Context, info RunInfo, report *evolution.Report) (id string, retErr error) {
	if report == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "no evolution report to store")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "begin transaction")
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	id = uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, input, resampling, organisms, samples, failures, duration)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(timeLayout), info.Input, info.Resampling.String(),
		info.Organisms, report.Samples, len(report.Failures), int64(report.Duration),
	); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "insert run")
	}

	for i, row := range report.Rows {
		stats, err := json.Marshal(row.Stats)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInternal, err, "encode sample %d", i)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO samples (run_id, seq, n, full, stats) VALUES (?, ?, ?, ?, ?)`,
			id, i, row.N, row.Full, stats,
		); err != nil {
			return "", errors.Wrap(errors.ErrCodeInternal, err, "insert sample %d", i)
		}
	}

	for _, f := range report.Fits {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fits (run_id, class, kappa, gamma, kappa_std_err, gamma_std_err, iqr_area, points)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, f.Class, nullable(f.Kappa), nullable(f.Gamma), nullable(f.KappaStdErr),
			nullable(f.GammaStdErr), nullable(f.IQRArea), f.Points,
		); err != nil {
			return "", errors.Wrap(errors.ErrCodeInternal, err, "insert fit %s", f.Class)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "commit run")
	}
	return id, nil
}

// Runs lists the stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, input, resampling, organisms, samples, failures, duration
		 FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "select runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created string
			dur     int64
		)
		if err := rows.Scan(&r.ID, &created, &r.Input, &r.Resampling, &r.Organisms, &r.Samples, &r.Failures, &dur); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "scan run")
		}
		if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "run %s timestamp", r.ID)
		}
		r.Duration = time.Duration(dur)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns one stored run. id may be a unique prefix of the run id.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return Run{}, err
	}
	var match []Run
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
		if id != "" && strings.HasPrefix(r.ID, id) {
			match = append(match, r)
		}
	}
	switch len(match) {
	case 0:
		return Run{}, errors.New(errors.ErrCodeInvalidInput, "no stored run %q", id)
	case 1:
		return match[0], nil
	}
	return Run{}, errors.New(errors.ErrCodeInvalidInput, "run id %q is ambiguous (%d runs)", id, len(match))
}

// Samples returns the rows of a run in their logged order.
func (s *Store) Samples(ctx context.Context, id string) ([]evolution.Sample, error) {
	run, err := s.Run(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT n, full, stats FROM samples WHERE run_id = ? ORDER BY seq`, run.ID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "select samples")
	}
	defer func() { _ = rows.Close() }()

	var out []evolution.Sample
	for rows.Next() {
		var (
			smp  evolution.Sample
			data []byte
		)
		if err := rows.Scan(&smp.N, &smp.Full, &data); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "scan sample")
		}
		var stats partition.Stats
		if err := json.Unmarshal(data, &stats); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode sample stats")
		}
		smp.Stats = stats
		out = append(out, smp)
	}
	return out, rows.Err()
}

// Fits returns the Heaps' law fits of a run ordered by class.
func (s *Store) Fits(ctx context.Context, id string) ([]evolution.Fit, error) {
	run, err := s.Run(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT class, kappa, gamma, kappa_std_err, gamma_std_err, iqr_area, points
		 FROM fits WHERE run_id = ? ORDER BY class`, run.ID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "select fits")
	}
	defer func() { _ = rows.Close() }()

	var out []evolution.Fit
	for rows.Next() {
		var (
			f                            evolution.Fit
			kappa, gamma, kErr, gErr, ia sql.NullFloat64
		)
		if err := rows.Scan(&f.Class, &kappa, &gamma, &kErr, &gErr, &ia, &f.Points); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "scan fit")
		}
		f.Kappa, f.Gamma = orNaN(kappa), orNaN(gamma)
		f.KappaStdErr, f.GammaStdErr, f.IQRArea = orNaN(kErr), orNaN(gErr), orNaN(ia)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete removes a run with its rows and fits.
func (s *Store) Delete(ctx context.Context, id string) error {
	run, err := s.Run(ctx, id)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "begin transaction")
	}
	for _, table := range []string{"fits", "samples"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, run.ID); err != nil {
			_ = tx.Rollback()
			return errors.Wrap(errors.ErrCodeInternal, err, "delete %s of run %s", table, run.ID)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(errors.ErrCodeInternal, err, "delete run %s", run.ID)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "commit delete")
	}
	return nil
}

// nullable maps non-finite values to NULL; SQLite has no NaN.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

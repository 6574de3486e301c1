package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/evolution"
	"github.com/matzehuels/panpart/pkg/partition"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testReport() *evolution.Report {
	return &evolution.Report{
		Samples: 3,
		Rows: []evolution.Sample{
			{N: 4, Full: true, Stats: partition.Stats{Persistent: 10, Shell: 3, Cloud: 2, ExactCore: 9, ExactAccessory: 6, SoftCore: 10, SoftAccessory: 5, Q: 3}},
			{N: 2, Stats: partition.Stats{Persistent: 8, Shell: 1, Cloud: 1, ExactCore: 8, ExactAccessory: 2, SoftCore: 8, SoftAccessory: 2, Q: 3}},
			{N: 1, Stats: partition.Stats{Persistent: 7, ExactCore: 7, SoftCore: 7, Q: 3}},
		},
		Failures: []*evolution.TaskFailure{{Task: evolution.Task{Index: 3}}},
		Fits: []evolution.Fit{
			{Class: "shell", Kappa: 1.5, Gamma: 0.4, KappaStdErr: 0.1, GammaStdErr: 0.01, IQRArea: 2, Points: 5},
			{Class: "cloud", Kappa: math.NaN(), Gamma: math.NaN(), KappaStdErr: math.NaN(), GammaStdErr: math.NaN(), IQRArea: 0, Points: 1},
		},
		Duration: 1500 * time.Millisecond,
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	report := testReport()

	id, err := st.SaveReport(ctx, RunInfo{Input: "pan.json", Resampling: evolution.DefaultResampling(), Organisms: 4}, report)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := st.Run(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "pan.json", run.Input)
	require.Equal(t, "0.1,10,10,1,Inf,1", run.Resampling)
	require.Equal(t, 4, run.Organisms)
	require.Equal(t, 3, run.Samples)
	require.Equal(t, 1, run.Failures)
	require.Equal(t, 1500*time.Millisecond, run.Duration)
	require.WithinDuration(t, time.Now(), run.CreatedAt, time.Minute)

	rows, err := st.Samples(ctx, id)
	require.NoError(t, err)
	require.Equal(t, report.Rows, rows)

	fits, err := st.Fits(ctx, id)
	require.NoError(t, err)
	require.Len(t, fits, 2)
	require.Equal(t, "cloud", fits[0].Class)
	require.True(t, math.IsNaN(fits[0].Kappa))
	require.False(t, fits[0].OK())
	require.Equal(t, report.Fits[0], fits[1])
}

func TestRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	first, err := st.SaveReport(ctx, RunInfo{Input: "a"}, testReport())
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := st.SaveReport(ctx, RunInfo{Input: "b"}, testReport())
	require.NoError(t, err)

	runs, err := st.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, second, runs[0].ID)
	require.Equal(t, first, runs[1].ID)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	st, err := Open(ctx, path)
	require.NoError(t, err)
	id, err := st.SaveReport(ctx, RunInfo{Input: "pan.json"}, testReport())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(ctx, path)
	require.NoError(t, err)
	defer st.Close()
	rows, err := st.Samples(ctx, id)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	id, err := st.SaveReport(ctx, RunInfo{}, testReport())
	require.NoError(t, err)

	require.NoError(t, st.Delete(ctx, id))
	_, err = st.Samples(ctx, id)
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	_, err = st.Fits(ctx, id)
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	var count int
	require.NoError(t, st.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&count))
	require.Zero(t, count, "samples not removed with their run")

	require.True(t, errors.Is(st.Delete(ctx, id), errors.ErrCodeInvalidInput))
}

func TestBadInput(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.True(t, errors.Is(err, errors.ErrCodeInvalidPath))

	_, err = openStore(t).SaveReport(context.Background(), RunInfo{}, nil)
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestRunByPrefix(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	id, err := st.SaveReport(ctx, RunInfo{Input: "pan.json"}, testReport())
	require.NoError(t, err)

	run, err := st.Run(ctx, id[:8])
	require.NoError(t, err)
	require.Equal(t, id, run.ID)

	fits, err := st.Fits(ctx, id[:8])
	require.NoError(t, err)
	require.Len(t, fits, 2)

	_, err = st.SaveReport(ctx, RunInfo{}, testReport())
	require.NoError(t, err)
	_, err = st.Run(ctx, "")
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

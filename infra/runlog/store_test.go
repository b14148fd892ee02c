package runlog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/simforecast/config"
	"github.com/kilianp07/simforecast/core/model"
	"github.com/kilianp07/simforecast/core/runlog"
)

func sampleRecords(base time.Time) []runlog.RunRecord {
	v42, v99 := 42, 99
	at := 69.0
	return []runlog.RunRecord{
		{ID: "1", Kind: model.KindPosition, Timestamp: base, VehicleID: &v42, Target: &at, Outcome: model.OutcomeFitted, Values: []float64{1, 2}, Samples: 150},
		{ID: "2", Kind: model.KindPosition, Timestamp: base.Add(time.Minute), VehicleID: &v99, Target: &at, Outcome: model.OutcomeFallback, Values: []float64{0, 0}},
		{ID: "3", Kind: model.KindSequence, Timestamp: base.Add(2 * time.Minute), Outcome: model.OutcomeFitted, Values: []float64{7.5}, Samples: 20, Loss: 0.1},
		{ID: "4", Kind: model.KindSequence, Timestamp: base.Add(3 * time.Minute), Outcome: model.OutcomeError, Error: "sequence: no training pairs"},
	}
}

func exercise(t *testing.T, store runlog.Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, r := range sampleRecords(base) {
		require.NoError(t, store.Append(ctx, r))
	}

	all, err := store.Query(ctx, runlog.RunQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "1", all[0].ID)
	assert.Equal(t, []float64{1, 2}, all[0].Values)
	assert.Equal(t, 69.0, *all[0].Target)

	v42 := 42
	res, err := store.Query(ctx, runlog.RunQuery{VehicleID: &v42})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "1", res[0].ID)

	res, err = store.Query(ctx, runlog.RunQuery{Kind: model.KindSequence})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, model.OutcomeError, res[1].Outcome)

	res, err = store.Query(ctx, runlog.RunQuery{Start: base.Add(30 * time.Second), End: base.Add(150 * time.Second)})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "2", res[0].ID)

	res, err = store.Query(ctx, runlog.RunQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "4", res[0].ID)
}

func TestRotatingJSONLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "forecast_runs.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 3, 0)
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.Close()) }()
	exercise(t, store)
}

func TestRotatingJSONLStoreReadsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forecast_runs.jsonl")
	old := runlog.RunRecord{ID: "old", Kind: model.KindSequence, Timestamp: time.Unix(10, 0).UTC()}
	line, err := json.Marshal(old)
	require.NoError(t, err)
	backup := filepath.Join(dir, "forecast_runs-2026-01-01T00-00-00.000.jsonl")
	require.NoError(t, os.WriteFile(backup, append(line, '\n'), 0o644))

	store, err := NewRotatingJSONLStore(path, 1, 3, 0)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	require.NoError(t, store.Append(context.Background(), runlog.RunRecord{ID: "new", Kind: model.KindSequence, Timestamp: time.Now()}))

	res, err := store.Query(context.Background(), runlog.RunQuery{})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "old", res[0].ID)
	assert.Equal(t, "new", res[1].ID)
}

func TestRotatingJSONLStoreSkipsUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")
	stray := runlog.RunRecord{ID: "stray", Kind: model.KindSequence, Timestamp: time.Unix(10, 0).UTC()}
	line, err := json.Marshal(stray)
	require.NoError(t, err)
	for _, name := range []string{"runs_other.jsonl", "runs-archive.jsonl", "runs-2026-01-01.jsonl"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), append(line, '\n'), 0o644))
	}

	store, err := NewRotatingJSONLStore(path, 1, 3, 0)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	require.NoError(t, store.Append(context.Background(), runlog.RunRecord{ID: "own", Kind: model.KindSequence, Timestamp: time.Now()}))

	res, err := store.Query(context.Background(), runlog.RunQuery{})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "own", res[0].ID)
}

func TestRotatingJSONLStoreEmpty(t *testing.T) {
	store, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "none.jsonl"), 1, 1, 0)
	require.NoError(t, err)
	res, err := store.Query(context.Background(), runlog.RunQuery{})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.Close()) }()
	exercise(t, store)
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	s, err := New(config.RunLogConfig{Backend: "none"})
	require.NoError(t, err)
	assert.IsType(t, runlog.NopStore{}, s)

	s, err = New(config.RunLogConfig{Backend: "jsonl", Path: filepath.Join(dir, "r.jsonl"), MaxSizeMB: 1})
	require.NoError(t, err)
	assert.IsType(t, &RotatingJSONLStore{}, s)
	require.NoError(t, s.Close())

	s, err = New(config.RunLogConfig{Backend: "sqlite", Path: filepath.Join(dir, "r.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = New(config.RunLogConfig{Backend: "csv"})
	assert.Error(t, err)
}

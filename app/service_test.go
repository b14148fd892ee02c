package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/simforecast/config"
	"github.com/kilianp07/simforecast/core/model"
	"github.com/kilianp07/simforecast/core/regression"
	"github.com/kilianp07/simforecast/core/runlog"
	"github.com/kilianp07/simforecast/infra/logger"
)

type recordingSink struct{ events []model.ForecastEvent }

func (r *recordingSink) RecordForecast(ev model.ForecastEvent) error {
	r.events = append(r.events, ev)
	return nil
}
func (r *recordingSink) Close() error { return nil }

type memStore struct{ recs []runlog.RunRecord }

func (m *memStore) Append(_ context.Context, rec runlog.RunRecord) error {
	m.recs = append(m.recs, rec)
	return nil
}
func (m *memStore) Query(_ context.Context, q runlog.RunQuery) ([]runlog.RunRecord, error) {
	var out []runlog.RunRecord
	for _, r := range m.recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return q.Tail(out), nil
}
func (m *memStore) Close() error { return nil }

type mockPublisher struct{ mock.Mock }

func (p *mockPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.Called(ctx, topic, payload).Error(0)
}
func (p *mockPublisher) Close() error { return nil }

type recordingMonitor struct {
	errs []error
	tags []map[string]string
}

func (m *recordingMonitor) CaptureException(err error, tags map[string]string) {
	m.errs = append(m.errs, err)
	m.tags = append(m.tags, tags)
}
func (m *recordingMonitor) Flush(time.Duration) bool { return true }

type fixture struct {
	svc   *Service
	cfg   *config.Config
	sink  *recordingSink
	store *memStore
	pub   *mockPublisher
	mon   *recordingMonitor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Position.Dataset = filepath.Join(dir, "simulator_data.csv")
	cfg.Position.Output = filepath.Join(dir, "outputSVR.txt")
	cfg.Sequence.Input = filepath.Join(dir, "inputLSTM.txt")
	cfg.Sequence.Recent = filepath.Join(dir, "inputLSTMTestData.txt")
	cfg.Sequence.Output = filepath.Join(dir, "outputLSTM.txt")
	cfg.Sequence.Hidden = 4
	cfg.Sequence.Epochs = 3
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	f := fixture{cfg: cfg, sink: &recordingSink{}, store: &memStore{}, pub: &mockPublisher{}, mon: &recordingMonitor{}}
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.svc = newService(cfg, f.sink, f.store, f.pub, logger.NopLogger{})
	f.svc.mon = f.mon
	f.svc.newID = func() string { return "run-1" }
	return f
}

func writeDataset(t *testing.T, path string, vehicle, n int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("timestamp,vehicleId,towerId,rssi,distance,x,y\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,%d,1,-70,100,%d,%d\n", i, vehicle, i*2, 500-i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func TestRunPositionFitted(t *testing.T) {
	f := newFixture(t)
	writeDataset(t, f.cfg.Position.Dataset, 42, 200)

	res, err := f.svc.RunPosition(context.Background(), 42, 210)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFitted, res.Outcome)
	assert.Equal(t, 150, res.Samples)

	b, err := os.ReadFile(f.cfg.Position.Output)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(b), " \n "))
	fields := strings.Fields(string(b))
	require.Len(t, fields, 2)
	for _, s := range fields {
		_, err := strconv.ParseFloat(s, 64)
		assert.NoError(t, err)
	}
	assert.NotEqual(t, "0 0 \n ", string(b))

	require.Len(t, f.store.recs, 1)
	rec := f.store.recs[0]
	assert.Equal(t, "run-1", rec.ID)
	assert.Equal(t, model.KindPosition, rec.Kind)
	assert.Equal(t, 42, *rec.VehicleID)
	assert.Equal(t, 210.0, *rec.Target)
	assert.Len(t, rec.Values, 2)

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, model.OutcomeFitted, f.sink.events[0].Outcome)
	f.pub.AssertNumberOfCalls(t, "Publish", 1)
	f.pub.AssertCalled(t, "Publish", mock.Anything, "simforecast/position/42", mock.MatchedBy(func(b []byte) bool {
		return strings.Contains(string(b), `"outcome":"fitted"`) && strings.Contains(string(b), `"run_id":"run-1"`)
	}))
	assert.Empty(t, f.mon.errs)
}

func TestRunPositionFallback(t *testing.T) {
	f := newFixture(t)
	writeDataset(t, f.cfg.Position.Dataset, 42, 20)

	res, err := f.svc.RunPosition(context.Background(), 99, 50)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFallback, res.Outcome)

	b, err := os.ReadFile(f.cfg.Position.Output)
	require.NoError(t, err)
	assert.Equal(t, "0 0 \n ", string(b))
	assert.Equal(t, model.OutcomeFallback, f.store.recs[0].Outcome)
}

func TestRunPositionMissingDataset(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RunPosition(context.Background(), 42, 1)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, statErr := os.Stat(f.cfg.Position.Output)
	assert.ErrorIs(t, statErr, os.ErrNotExist)

	require.Len(t, f.store.recs, 1)
	assert.Equal(t, model.OutcomeError, f.store.recs[0].Outcome)
	assert.NotEmpty(t, f.store.recs[0].Error)
	require.Len(t, f.sink.events, 1)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, f.mon.errs, 1)
	assert.Equal(t, map[string]string{"kind": "position", "run_id": "run-1", "vehicle_id": "42"}, f.mon.tags[0])
}

func TestRunPositionRejectsNonFiniteRow(t *testing.T) {
	f := newFixture(t)
	data := "timestamp,vehicleId,towerId,rssi,distance,x,y\n" +
		"1,42,1,-70,100,10,20\n" +
		"2,42,1,-70,100,NaN,21\n"
	require.NoError(t, os.WriteFile(f.cfg.Position.Dataset, []byte(data), 0o644))

	_, err := f.svc.RunPosition(context.Background(), 42, 3)
	require.ErrorContains(t, err, "not a finite number")
	_, statErr := os.Stat(f.cfg.Position.Output)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
	require.Len(t, f.store.recs, 1)
	assert.Equal(t, model.OutcomeError, f.store.recs[0].Outcome)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunPositionNonFiniteTimestamp(t *testing.T) {
	f := newFixture(t)
	writeDataset(t, f.cfg.Position.Dataset, 42, 20)

	_, err := f.svc.RunPosition(context.Background(), 42, math.NaN())
	require.ErrorIs(t, err, regression.ErrNonFinite)
	_, statErr := os.Stat(f.cfg.Position.Output)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunSequence(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.cfg.Sequence.Input, []byte("1\t2\t3\t4\t5\t6\t7\t8\n"), 0o644))
	require.NoError(t, os.WriteFile(f.cfg.Sequence.Recent, []byte("4 6\n"), 0o644))

	res, err := f.svc.RunSequence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pairs)
	assert.Equal(t, []float64{5, 10, 15, 20, 25}, res.Query)

	b, err := os.ReadFile(f.cfg.Sequence.Output)
	require.NoError(t, err)
	line := string(b)
	require.True(t, strings.HasSuffix(line, "\n"))
	_, err = strconv.ParseFloat(strings.TrimSuffix(line, "\n"), 32)
	assert.NoError(t, err)

	require.Len(t, f.store.recs, 1)
	assert.Equal(t, 3, f.store.recs[0].Samples)
	f.pub.AssertCalled(t, "Publish", mock.Anything, "simforecast/sequence", mock.Anything)
}

func TestRunSequenceTooShort(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.cfg.Sequence.Input, []byte("1 2 3 4 5\n"), 0o644))
	require.NoError(t, os.WriteFile(f.cfg.Sequence.Recent, []byte("1\n"), 0o644))

	_, err := f.svc.RunSequence(context.Background())
	require.Error(t, err)
	_, statErr := os.Stat(f.cfg.Sequence.Output)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
	assert.Equal(t, model.OutcomeError, f.store.recs[0].Outcome)
	require.Len(t, f.mon.errs, 1)
	assert.ErrorContains(t, f.mon.errs[0], "no training pairs")
	assert.Equal(t, "sequence", f.mon.tags[0]["kind"])
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	writeDataset(t, f.cfg.Position.Dataset, 1, 5)
	_, err := f.svc.RunPosition(context.Background(), 1, 6)
	require.NoError(t, err)
	_, err = f.svc.RunPosition(context.Background(), 2, 6)
	require.NoError(t, err)

	id := 2
	recs, err := f.svc.History(context.Background(), runlog.RunQuery{VehicleID: &id})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.OutcomeFallback, recs[0].Outcome)
}

func TestNewWithDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.RunLog.Path = filepath.Join(dir, "runs.jsonl")
	cfg.Position.Dataset = filepath.Join(dir, "data.csv")
	cfg.Position.Output = filepath.Join(dir, "out.txt")
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	svc, err := New(cfg)
	require.NoError(t, err)
	writeDataset(t, cfg.Position.Dataset, 3, 10)
	_, err = svc.RunPosition(context.Background(), 3, 11)
	require.NoError(t, err)

	recs, err := svc.History(context.Background(), runlog.RunQuery{Start: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.KindPosition, recs[0].Kind)
	require.NoError(t, svc.Close())
}

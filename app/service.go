package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/simforecast/config"
	coremetrics "github.com/kilianp07/simforecast/core/metrics"
	"github.com/kilianp07/simforecast/core/model"
	coremon "github.com/kilianp07/simforecast/core/monitoring"
	"github.com/kilianp07/simforecast/core/prediction/position"
	"github.com/kilianp07/simforecast/core/prediction/sequence"
	"github.com/kilianp07/simforecast/core/publish"
	"github.com/kilianp07/simforecast/core/runlog"
	"github.com/kilianp07/simforecast/infra/dataset"
	"github.com/kilianp07/simforecast/infra/logger"
	_ "github.com/kilianp07/simforecast/infra/metrics"
	"github.com/kilianp07/simforecast/infra/monitoring"
	"github.com/kilianp07/simforecast/infra/mqtt"
	"github.com/kilianp07/simforecast/infra/output"
	infrarunlog "github.com/kilianp07/simforecast/infra/runlog"
)

// Service runs forecasts and records their results.
type Service struct {
	cfg   *config.Config
	sink  coremetrics.Sink
	store runlog.Store
	pub   publish.Publisher
	mon   coremon.Monitor
	log   logger.Logger

	now   func() time.Time
	newID func() string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logg := logger.New("service")

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := infrarunlog.New(cfg.RunLog)
	if err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("run log: %w", err)
	}

	var pub publish.Publisher = publish.NopPublisher{}
	if cfg.Publish.Enabled {
		timeout := time.Duration(cfg.Publish.TimeoutMS) * time.Millisecond
		p, err := mqtt.NewPahoPublisher(cfg.Publish.MQTT, cfg.Publish.QoS, cfg.Publish.Retain, timeout)
		if err != nil {
			logg.Warnf("publishing disabled: %v", err)
		} else {
			pub = p
		}
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Monitoring)
	if err != nil {
		logg.Warnf("error monitoring disabled: %v", err)
		mon = coremon.NopMonitor{}
	}
	svc := newService(cfg, sink, store, pub, logg)
	svc.mon = mon
	return svc, nil
}

func newService(cfg *config.Config, sink coremetrics.Sink, store runlog.Store, pub publish.Publisher, log logger.Logger) *Service {
	return &Service{
		cfg:   cfg,
		sink:  sink,
		store: store,
		pub:   pub,
		mon:   coremon.NopMonitor{},
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// RunPosition forecasts the position of vehicleID at timestamp at and writes
// it to the configured position output.
func (s *Service) RunPosition(ctx context.Context, vehicleID int, at float64) (position.Result, error) {
	start := s.now()
	rec := runlog.RunRecord{
		ID:        s.newID(),
		Kind:      model.KindPosition,
		Timestamp: start,
		VehicleID: &vehicleID,
		Target:    &at,
		Output:    s.cfg.Position.Output,
	}

	newModel, err := s.cfg.Position.Kernel.Factory()
	if err != nil {
		return position.Result{}, s.fail(ctx, rec, start, err)
	}
	src := dataset.NewCSVSource(s.cfg.Position.Dataset)
	f := position.NewForecaster(src, newModel, s.cfg.Position.Window, logger.New("position"))
	res, err := f.Forecast(ctx, vehicleID, at)
	if err != nil {
		return position.Result{}, s.fail(ctx, rec, start, err)
	}
	if err := output.WriteFile(s.cfg.Position.Output, output.PositionLine(res.Position, res.Outcome)); err != nil {
		return position.Result{}, s.fail(ctx, rec, start, err)
	}

	rec.Outcome = res.Outcome
	rec.Values = []float64{res.Position.X, res.Position.Y}
	rec.Samples = res.Samples
	s.finish(ctx, rec, start)
	s.log.Infow("position forecast written", map[string]any{
		"run_id":     rec.ID,
		"vehicle_id": vehicleID,
		"at":         at,
		"outcome":    string(res.Outcome),
		"output":     s.cfg.Position.Output,
	})
	return res, nil
}

// RunSequence trains the sequence model and writes the next value to the
// configured sequence output.
func (s *Service) RunSequence(ctx context.Context) (sequence.Result, error) {
	start := s.now()
	rec := runlog.RunRecord{
		ID:        s.newID(),
		Kind:      model.KindSequence,
		Timestamp: start,
		Output:    s.cfg.Sequence.Output,
	}

	f := sequence.NewForecaster(s.cfg.Sequence.Forecaster(), logger.New("sequence"))
	res, err := f.ForecastFiles(ctx, s.cfg.Sequence.Input, s.cfg.Sequence.Recent)
	if err != nil {
		return sequence.Result{}, s.fail(ctx, rec, start, err)
	}
	if err := output.WriteFile(s.cfg.Sequence.Output, output.ScalarLine(res.Value)); err != nil {
		return sequence.Result{}, s.fail(ctx, rec, start, err)
	}

	rec.Outcome = model.OutcomeFitted
	rec.Values = []float64{res.Value}
	rec.Samples = res.Pairs
	rec.Loss = res.Loss
	s.finish(ctx, rec, start)
	s.log.Infow("sequence forecast written", map[string]any{
		"run_id": rec.ID,
		"pairs":  res.Pairs,
		"loss":   res.Loss,
		"output": s.cfg.Sequence.Output,
	})
	return res, nil
}

// History returns the recorded runs matching q.
func (s *Service) History(ctx context.Context, q runlog.RunQuery) ([]runlog.RunRecord, error) {
	return s.store.Query(ctx, q)
}

func (s *Service) fail(ctx context.Context, rec runlog.RunRecord, start time.Time, err error) error {
	rec.Outcome = model.OutcomeError
	rec.Error = err.Error()
	tags := map[string]string{"kind": string(rec.Kind), "run_id": rec.ID}
	if rec.VehicleID != nil {
		tags["vehicle_id"] = strconv.Itoa(*rec.VehicleID)
	}
	s.mon.CaptureException(err, tags)
	s.finish(ctx, rec, start)
	return err
}

// finish records the run. Failures here never fail the run itself.
func (s *Service) finish(ctx context.Context, rec runlog.RunRecord, start time.Time) {
	elapsed := s.now().Sub(start)
	rec.DurationMS = float64(elapsed) / float64(time.Millisecond)

	// the run log must be written even when the forecast was canceled
	if err := s.store.Append(context.WithoutCancel(ctx), rec); err != nil {
		s.log.Errorf("run log append: %v", err)
	}
	ev := model.ForecastEvent{
		RunID:     rec.ID,
		Kind:      rec.Kind,
		VehicleID: rec.VehicleID,
		Outcome:   rec.Outcome,
		Values:    rec.Values,
		Samples:   rec.Samples,
		Loss:      rec.Loss,
		Duration:  elapsed,
		Time:      start,
	}
	if err := s.sink.RecordForecast(ev); err != nil {
		s.log.Errorf("metrics: %v", err)
	}
	if rec.Outcome == model.OutcomeError {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Publish.TimeoutMS)*time.Millisecond)
	defer cancel()
	if err := publish.Event(pctx, s.pub, s.cfg.Publish.TopicPrefix, ev); err != nil {
		s.log.Errorf("publish: %v", err)
	}
}

// Close flushes metrics and error reports and releases the run log and
// publisher.
func (s *Service) Close() error {
	if !s.mon.Flush(time.Duration(s.cfg.Monitoring.FlushTimeoutMS) * time.Millisecond) {
		s.log.Warnf("error reports not flushed")
	}
	return errors.Join(s.sink.Close(), s.store.Close(), s.pub.Close())
}

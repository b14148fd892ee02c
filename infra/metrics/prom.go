package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/kilianp07/simforecast/core/model"
)

// promCollectors holds the forecast metrics registered on one registry.
type promCollectors struct {
	runs     *prometheus.CounterVec
	duration *prometheus.GaugeVec
	last     *prometheus.GaugeVec
	samples  *prometheus.GaugeVec
	loss     *prometheus.GaugeVec
	value    *prometheus.GaugeVec
}

func newPromCollectors(reg prometheus.Registerer) (*promCollectors, error) {
	c := &promCollectors{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_runs_total",
			Help: "Forecast runs by kind and outcome",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecast_duration_seconds",
			Help: "Wall time of the last forecast run",
		}, []string{"kind"}),
		last: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecast_last_run_timestamp_seconds",
			Help: "Unix time of the last forecast run",
		}, []string{"kind"}),
		samples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecast_training_samples",
			Help: "Training samples used by the last fitted model",
		}, []string{"kind"}),
		loss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecast_training_loss",
			Help: "Final training loss of the last sequence model",
		}, []string{"kind"}),
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecast_value",
			Help: "Last forecast values by component index",
		}, []string{"kind", "vehicle_id", "component"}),
	}
	for _, col := range []prometheus.Collector{c.runs, c.duration, c.last, c.samples, c.loss, c.value} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *promCollectors) record(ev model.ForecastEvent) {
	kind := string(ev.Kind)
	c.runs.WithLabelValues(kind, string(ev.Outcome)).Inc()
	c.duration.WithLabelValues(kind).Set(ev.Duration.Seconds())
	c.last.WithLabelValues(kind).Set(float64(ev.Time.UnixNano()) / 1e9)
	if ev.Outcome != model.OutcomeFitted {
		return
	}
	c.samples.WithLabelValues(kind).Set(float64(ev.Samples))
	if ev.Kind == model.KindSequence {
		c.loss.WithLabelValues(kind).Set(ev.Loss)
	}
	vehicle := ""
	if ev.VehicleID != nil {
		vehicle = strconv.Itoa(*ev.VehicleID)
	}
	for i, v := range ev.Values {
		c.value.WithLabelValues(kind, vehicle, strconv.Itoa(i)).Set(v)
	}
}

// TextfileSink keeps forecast metrics in a private registry and writes them
// in the Prometheus text format on Close, for the node_exporter textfile
// collector.
type TextfileSink struct {
	path string
	reg  *prometheus.Registry
	col  *promCollectors
}

// NewTextfileSink creates a sink writing to path on Close.
func NewTextfileSink(path string) (*TextfileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("textfile sink: path is required")
	}
	reg := prometheus.NewRegistry()
	col, err := newPromCollectors(reg)
	if err != nil {
		return nil, err
	}
	return &TextfileSink{path: path, reg: reg, col: col}, nil
}

// RecordForecast updates the in-memory metrics.
func (s *TextfileSink) RecordForecast(ev model.ForecastEvent) error {
	s.col.record(ev)
	return nil
}

// Close writes the metrics file.
func (s *TextfileSink) Close() error {
	return prometheus.WriteToTextfile(s.path, s.reg)
}

// PushSink pushes forecast metrics to a Prometheus Pushgateway on Close.
type PushSink struct {
	pusher *push.Pusher
	col    *promCollectors
}

// NewPushSink creates a sink pushing to url under the given job name.
func NewPushSink(url, job string) (*PushSink, error) {
	if url == "" {
		return nil, fmt.Errorf("push sink: url is required")
	}
	if job == "" {
		job = "simforecast"
	}
	reg := prometheus.NewRegistry()
	col, err := newPromCollectors(reg)
	if err != nil {
		return nil, err
	}
	return &PushSink{pusher: push.New(url, job).Gatherer(reg), col: col}, nil
}

// RecordForecast updates the in-memory metrics.
func (s *PushSink) RecordForecast(ev model.ForecastEvent) error {
	s.col.record(ev)
	return nil
}

// Close pushes the collected metrics, replacing the job's previous group.
func (s *PushSink) Close() error {
	return s.pusher.Push()
}

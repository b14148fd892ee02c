package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/simforecast/core/metrics"
	"github.com/kilianp07/simforecast/core/model"
)

func TestInfluxSink_RecordForecast(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, strings.TrimSpace(string(data)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer func() { _ = sink.Close() }()
	now := time.Now()
	id := 42
	ev := model.ForecastEvent{
		RunID:     "run-1",
		Kind:      model.KindPosition,
		VehicleID: &id,
		Outcome:   model.OutcomeFitted,
		Values:    []float64{12.5, -3},
		Samples:   150,
		Duration:  1500 * time.Microsecond,
		Time:      now,
	}
	if err := sink.RecordForecast(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("forecast_run").
		AddTag("kind", "position").
		AddTag("outcome", "fitted").
		AddTag("vehicle_id", "42").
		AddField("run_id", "run-1").
		AddField("samples", 150).
		AddField("duration_ms", 1.5).
		AddField("x", 12.5).
		AddField("y", -3.0).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != expected {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSink_RecordSequence(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = strings.TrimSpace(string(data))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	now := time.Now()
	ev := model.ForecastEvent{
		RunID:   "run-2",
		Kind:    model.KindSequence,
		Outcome: model.OutcomeFitted,
		Values:  []float64{7.25},
		Samples: 20,
		Loss:    0.5,
		Time:    now,
	}
	if err := sink.RecordForecast(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if !strings.HasPrefix(body, "forecast_run,kind=sequence,outcome=fitted ") {
		t.Errorf("unexpected body: %s", body)
	}
	if !strings.Contains(body, "value=7.25") || !strings.Contains(body, "loss=0.5") {
		t.Errorf("missing fields: %s", body)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink on failing health check, got %T", sink)
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}

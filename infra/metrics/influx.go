package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/simforecast/core/metrics"
	"github.com/kilianp07/simforecast/core/model"
	"github.com/kilianp07/simforecast/infra/logger"
)

// InfluxSink writes forecast runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordForecast writes the run as a forecast_run point.
func (s *InfluxSink) RecordForecast(ev model.ForecastEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, forecastPoint(ev))
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func forecastPoint(ev model.ForecastEvent) *write.Point {
	p := write.NewPointWithMeasurement("forecast_run").
		AddTag("kind", string(ev.Kind)).
		AddTag("outcome", string(ev.Outcome))
	if ev.VehicleID != nil {
		p = p.AddTag("vehicle_id", strconv.Itoa(*ev.VehicleID))
	}
	p = p.AddField("run_id", ev.RunID).
		AddField("samples", ev.Samples).
		AddField("duration_ms", round3(float64(ev.Duration)/float64(time.Millisecond)))
	switch ev.Kind {
	case model.KindPosition:
		if len(ev.Values) == 2 {
			p = p.AddField("x", ev.Values[0]).AddField("y", ev.Values[1])
		}
	case model.KindSequence:
		if len(ev.Values) == 1 {
			p = p.AddField("value", ev.Values[0])
		}
		p = p.AddField("loss", ev.Loss)
	}
	return p.SetTime(ev.Time)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

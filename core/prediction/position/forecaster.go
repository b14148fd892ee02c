package position

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/simforecast/core/logger"
	"github.com/kilianp07/simforecast/core/model"
	"github.com/kilianp07/simforecast/core/regression"
)

// DefaultWindow is the number of most recent records used for fitting.
const DefaultWindow = 150

// Source selects the telemetry of one vehicle.
type Source interface {
	Vehicle(ctx context.Context, vehicleID, limit int) (model.VehicleData, error)
}

// Result is the outcome of one position forecast.
type Result struct {
	Position model.Position
	Outcome  model.Outcome
	Samples  int
}

// Forecaster predicts a vehicle coordinate at a timestamp.
type Forecaster struct {
	src      Source
	newModel regression.Factory
	window   int
	log      logger.Logger
}

// NewForecaster builds a Forecaster fitting models from newModel on at most
// window records.
func NewForecaster(src Source, newModel regression.Factory, window int, log logger.Logger) *Forecaster {
	return &Forecaster{src: src, newModel: newModel, window: window, log: log}
}

// Forecast returns the predicted position of vehicleID at timestamp at, or
// the fallback position when the dataset has no rows for the vehicle.
func (f *Forecaster) Forecast(ctx context.Context, vehicleID int, at float64) (Result, error) {
	data, err := f.src.Vehicle(ctx, vehicleID, f.window)
	if err != nil {
		return Result{}, fmt.Errorf("load telemetry: %w", err)
	}
	switch d := data.(type) {
	case model.DataAbsent:
		f.log.Infof("no telemetry for vehicle %d, using fallback position", d.VehicleID)
		return Result{Position: model.FallbackPosition, Outcome: model.OutcomeFallback}, nil
	case model.DataFound:
		return f.fit(d, at)
	default:
		return Result{}, fmt.Errorf("unexpected vehicle data %T", data)
	}
}

func (f *Forecaster) fit(d model.DataFound, at float64) (Result, error) {
	n := len(d.Records)
	X := mat.NewDense(n, 1, d.Timestamps())
	xs, ys := d.Coordinates()
	Y := mat.NewDense(n, 2, nil)
	Y.SetCol(0, xs)
	Y.SetCol(1, ys)

	reg := regression.NewMultiOutput(f.newModel)
	if err := reg.Fit(X, Y); err != nil {
		return Result{}, fmt.Errorf("fit vehicle %d: %w", d.VehicleID, err)
	}
	out, err := reg.Predict([]float64{at})
	if err != nil {
		return Result{}, fmt.Errorf("predict vehicle %d: %w", d.VehicleID, err)
	}
	f.log.Debugw("position model fitted", map[string]any{
		"vehicle_id": d.VehicleID,
		"samples":    n,
		"at":         at,
	})
	return Result{
		Position: model.Position{X: out[0], Y: out[1]},
		Outcome:  model.OutcomeFitted,
		Samples:  n,
	}, nil
}

// ParseArgs converts the command line vehicle identifier and timestamp.
func ParseArgs(vehicle, timestamp string) (int, float64, error) {
	id, err := strconv.Atoi(strings.TrimSpace(vehicle))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid vehicle id %q: %w", vehicle, err)
	}
	at, err := strconv.ParseFloat(strings.TrimSpace(timestamp), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
	}
	if math.IsNaN(at) || math.IsInf(at, 0) {
		return 0, 0, fmt.Errorf("invalid timestamp %q: not a finite number", timestamp)
	}
	return id, at, nil
}

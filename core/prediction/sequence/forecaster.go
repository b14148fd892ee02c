package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/simforecast/core/logger"
)

// ErrNoTrainingPairs is returned when the history is not longer than the
// window size.
var ErrNoTrainingPairs = errors.New("sequence: no training pairs")

// Config holds the sequence forecaster settings.
type Config struct {
	Window  int
	Step    float64
	Network NetworkConfig
}

// Result is the outcome of one forecast.
type Result struct {
	Value float64
	Pairs int
	Loss  float64
	Query []float64
}

// Forecaster trains a fresh network on every call.
type Forecaster struct {
	cfg Config
	log logger.Logger
}

// NewForecaster returns a Forecaster using cfg.
func NewForecaster(cfg Config, log logger.Logger) *Forecaster {
	return &Forecaster{cfg: cfg, log: log}
}

// Forecast trains on history and predicts the value following a synthetic
// window that starts at the mean of recent.
func (f *Forecaster) Forecast(ctx context.Context, history, recent []float64) (Result, error) {
	pairs := Split(history, f.cfg.Window)
	if len(pairs) == 0 {
		return Result{}, fmt.Errorf("%w: %d values for window %d", ErrNoTrainingPairs, len(history), f.cfg.Window)
	}
	mean, err := Mean(recent)
	if err != nil {
		return Result{}, fmt.Errorf("recent sample: %w", err)
	}

	net := NewNetwork(f.cfg.Network)
	loss, err := net.Train(ctx, pairs)
	if err != nil {
		return Result{}, fmt.Errorf("train: %w", err)
	}
	f.log.Debugw("sequence model trained", map[string]any{
		"pairs":  len(pairs),
		"epochs": f.cfg.Network.Epochs,
		"loss":   loss,
	})

	query := QueryWindow(mean, f.cfg.Window, f.cfg.Step)
	return Result{
		Value: net.Predict(query),
		Pairs: len(pairs),
		Loss:  loss,
		Query: query,
	}, nil
}

// ForecastFiles reads the history and recent sample files and forecasts.
func (f *Forecaster) ForecastFiles(ctx context.Context, historyPath, recentPath string) (Result, error) {
	history, err := ReadFile(historyPath)
	if err != nil {
		return Result{}, fmt.Errorf("read history: %w", err)
	}
	recent, err := ReadFile(recentPath)
	if err != nil {
		return Result{}, fmt.Errorf("read recent sample: %w", err)
	}
	return f.Forecast(ctx, history, recent)
}

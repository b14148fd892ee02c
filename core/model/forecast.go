package model

import "time"

// ForecastKind names one of the forecasting pipelines.
type ForecastKind string

const (
	KindPosition ForecastKind = "position"
	KindSequence ForecastKind = "sequence"
)

// Outcome describes how a forecast run ended.
type Outcome string

const (
	// OutcomeFitted means a model was trained and queried.
	OutcomeFitted Outcome = "fitted"
	// OutcomeFallback means no data was available and the default was used.
	OutcomeFallback Outcome = "fallback"
	// OutcomeError means the run failed and no output was written.
	OutcomeError Outcome = "error"
)

// Window is a training pair of a fixed-length input slice and the value that
// follows it.
type Window struct {
	Inputs []float64
	Target float64
}

// ForecastEvent summarizes a finished run for metrics and publication.
type ForecastEvent struct {
	RunID     string
	Kind      ForecastKind
	VehicleID *int
	Outcome   Outcome
	Values    []float64
	Samples   int
	Loss      float64
	Duration  time.Duration
	Time      time.Time
}

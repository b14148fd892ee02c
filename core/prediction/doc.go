// Package prediction groups the forecasting pipelines invoked by the network
// simulator. Each pipeline is a single straight-line transform: load input
// files, fit a small model, query it once. The position subpackage forecasts
// a vehicle coordinate from telemetry, the sequence subpackage forecasts the
// next value of a scalar series.
package prediction

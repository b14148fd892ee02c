package config

import "fmt"

// MonitoringConfig defines settings for Sentry error monitoring. An empty
// DSN disables reporting.
type MonitoringConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
	// FlushTimeoutMS bounds the wait for pending reports on exit.
	FlushTimeoutMS int `json:"flush_timeout_ms"`
}

// SetDefaults applies sane defaults.
func (c *MonitoringConfig) SetDefaults() {
	if c.FlushTimeoutMS == 0 {
		c.FlushTimeoutMS = 2000
	}
}

// Validate checks mandatory fields.
func (c MonitoringConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate must be within [0, 1]")
	}
	return nil
}

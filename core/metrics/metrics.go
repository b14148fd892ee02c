package metrics

import (
	"errors"

	"github.com/kilianp07/simforecast/core/model"
)

// Sink records forecast runs for observability purposes.
type Sink interface {
	RecordForecast(ev model.ForecastEvent) error
	// Close flushes buffered data. Batch processes must call it before exit.
	Close() error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) RecordForecast(model.ForecastEvent) error { return nil }
func (NopSink) Close() error                             { return nil }

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordForecast forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordForecast(ev model.ForecastEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordForecast(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package publish describes how forecast results are announced to other
// simulator components in addition to the output files.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/kilianp07/simforecast/core/model"
)

// Publisher delivers a payload on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// NopPublisher drops every message.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (NopPublisher) Close() error                                  { return nil }

// Message is the JSON document published for a finished forecast.
type Message struct {
	RunID     string             `json:"run_id"`
	Kind      model.ForecastKind `json:"kind"`
	VehicleID *int               `json:"vehicle_id,omitempty"`
	Outcome   model.Outcome      `json:"outcome"`
	Values    []float64          `json:"values"`
	Timestamp int64              `json:"timestamp"`
}

// Topic returns <prefix>/position/<vehicle> or <prefix>/sequence.
func Topic(prefix string, ev model.ForecastEvent) string {
	if ev.Kind == model.KindPosition && ev.VehicleID != nil {
		return path.Join(prefix, string(ev.Kind), strconv.Itoa(*ev.VehicleID))
	}
	return path.Join(prefix, string(ev.Kind))
}

// Encode renders the event as a Message.
func Encode(ev model.ForecastEvent) ([]byte, error) {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b, err := json.Marshal(Message{
		RunID:     ev.RunID,
		Kind:      ev.Kind,
		VehicleID: ev.VehicleID,
		Outcome:   ev.Outcome,
		Values:    ev.Values,
		Timestamp: ts.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode forecast message: %w", err)
	}
	return b, nil
}

// Event publishes ev on its topic below prefix.
func Event(ctx context.Context, p Publisher, prefix string, ev model.ForecastEvent) error {
	payload, err := Encode(ev)
	if err != nil {
		return err
	}
	return p.Publish(ctx, Topic(prefix, ev), payload)
}

// Package runlog defines the append-only history of forecast invocations.
package runlog

import (
	"context"
	"time"

	"github.com/kilianp07/simforecast/core/model"
)

// RunRecord captures one forecast invocation and its result.
type RunRecord struct {
	ID         string             `json:"id" yaml:"id"`
	Kind       model.ForecastKind `json:"kind" yaml:"kind"`
	Timestamp  time.Time          `json:"timestamp" yaml:"timestamp"`
	VehicleID  *int               `json:"vehicle_id,omitempty" yaml:"vehicle_id,omitempty"`
	Target     *float64           `json:"target,omitempty" yaml:"target,omitempty"`
	Outcome    model.Outcome      `json:"outcome" yaml:"outcome"`
	Values     []float64          `json:"values,omitempty" yaml:"values,omitempty,flow"`
	Samples    int                `json:"samples" yaml:"samples"`
	Loss       float64            `json:"loss,omitempty" yaml:"loss,omitempty"`
	DurationMS float64            `json:"duration_ms" yaml:"duration_ms"`
	Output     string             `json:"output,omitempty" yaml:"output,omitempty"`
	Error      string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunQuery defines filters for retrieving records. Zero values match all.
type RunQuery struct {
	Start     time.Time
	End       time.Time
	Kind      model.ForecastKind
	VehicleID *int
	// Limit keeps only the most recent matches when > 0.
	Limit int
}

// Match reports whether r satisfies the time, kind and vehicle filters.
func (q RunQuery) Match(r RunRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.VehicleID != nil && (r.VehicleID == nil || *r.VehicleID != *q.VehicleID) {
		return false
	}
	return true
}

// Tail applies the limit to records sorted oldest first.
func (q RunQuery) Tail(recs []RunRecord) []RunRecord {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// NopStore drops every record.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error { return nil }
func (NopStore) Query(context.Context, RunQuery) ([]RunRecord, error) {
	return nil, nil
}
func (NopStore) Close() error { return nil }

package chart

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/simforecast/core/model"
	"github.com/kilianp07/simforecast/core/runlog"
)

func TestHistory(t *testing.T) {
	id := 42
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []runlog.RunRecord{
		{Kind: model.KindPosition, Timestamp: base, VehicleID: &id, Outcome: model.OutcomeFitted, Values: []float64{12.5, 7.25}},
		{Kind: model.KindSequence, Timestamp: base.Add(time.Minute), Outcome: model.OutcomeFitted, Values: []float64{31.75}},
		{Kind: model.KindSequence, Timestamp: base.Add(2 * time.Minute), Outcome: model.OutcomeError},
	}
	var buf bytes.Buffer
	require.NoError(t, History(&buf, recs))
	html := buf.String()
	assert.Contains(t, html, "Forecast history")
	assert.Contains(t, html, "2026-03-01 12:00:00")
	assert.Contains(t, html, "2026-03-01 12:01:00")
	assert.NotContains(t, html, "2026-03-01 12:02:00")
	assert.Contains(t, html, "12.5")
	assert.Contains(t, html, "31.75")
}

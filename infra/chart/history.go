// Package chart renders the run history as an HTML line chart.
package chart

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/simforecast/core/model"
	"github.com/kilianp07/simforecast/core/runlog"
)

// History plots the forecast values of successful runs in recs over time.
// Position runs contribute an x and a y series, sequence runs a value series.
func History(w io.Writer, recs []runlog.RunRecord) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Forecast history"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Run time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Forecast"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{}),
	)

	var (
		xAxis []string
		xs    []opts.LineData
		ys    []opts.LineData
		vals  []opts.LineData
	)
	for _, r := range recs {
		if r.Outcome == model.OutcomeError {
			continue
		}
		xAxis = append(xAxis, r.Timestamp.Format(time.DateTime))
		// gaps keep the series aligned with the shared time axis
		x, y, v := opts.LineData{Value: "-"}, opts.LineData{Value: "-"}, opts.LineData{Value: "-"}
		switch {
		case r.Kind == model.KindPosition && len(r.Values) == 2:
			x.Value, y.Value = r.Values[0], r.Values[1]
			if r.VehicleID != nil {
				x.Name = fmt.Sprintf("vehicle %d", *r.VehicleID)
				y.Name = x.Name
			}
		case r.Kind == model.KindSequence && len(r.Values) == 1:
			v.Value = r.Values[0]
		}
		xs, ys, vals = append(xs, x), append(ys, y), append(vals, v)
	}

	line.SetXAxis(xAxis).
		AddSeries("position x", xs).
		AddSeries("position y", ys).
		AddSeries("sequence", vals)
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

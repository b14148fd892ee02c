package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/simforecast/core/model"
	"github.com/kilianp07/simforecast/core/runlog"
	"github.com/kilianp07/simforecast/infra/chart"
	infrarunlog "github.com/kilianp07/simforecast/infra/runlog"
	"github.com/kilianp07/simforecast/infra/output"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		kind    string
		vehicle int
		since   time.Duration
		limit   int
		format  string
		chartTo string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous forecast runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			q := runlog.RunQuery{Kind: model.ForecastKind(kind), Limit: limit}
			switch q.Kind {
			case "", model.KindPosition, model.KindSequence:
			default:
				return fmt.Errorf("unknown kind %q", kind)
			}
			switch format {
			case "table", "json", "yaml":
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if cmd.Flags().Changed("vehicle") {
				q.VehicleID = &vehicle
			}
			if since > 0 {
				q.Start = time.Now().Add(-since)
			}
			store, err := infrarunlog.New(cfg.RunLog)
			if err != nil {
				return fmt.Errorf("run log: %w", err)
			}
			defer func() { _ = store.Close() }()
			recs, err := store.Query(cmd.Context(), q)
			if err != nil {
				return err
			}
			if chartTo != "" {
				if err := writeChart(chartTo, recs); err != nil {
					return err
				}
			}
			return printHistory(cmd.OutOrStdout(), format, recs)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "position or sequence")
	cmd.Flags().IntVar(&vehicle, "vehicle", 0, "only runs for this vehicle")
	cmd.Flags().DurationVar(&since, "since", 0, "only runs newer than this age, e.g. 24h")
	cmd.Flags().IntVar(&limit, "limit", 20, "most recent runs to show, 0 for all")
	cmd.Flags().StringVar(&format, "format", "table", "table, json or yaml")
	cmd.Flags().StringVar(&chartTo, "chart", "", "also write an HTML chart of the runs to this file")
	return cmd
}

func writeChart(path string, recs []runlog.RunRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := chart.History(f, recs); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printHistory(w io.Writer, format string, recs []runlog.RunRecord) error {
	if recs == nil {
		recs = []runlog.RunRecord{}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(recs); err != nil {
			return err
		}
		return enc.Close()
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKIND\tVEHICLE\tOUTCOME\tVALUES\tSAMPLES\tDURATION\tERROR")
	for _, r := range recs {
		vehicle := "-"
		if r.VehicleID != nil {
			vehicle = strconv.Itoa(*r.VehicleID)
		}
		values := make([]string, len(r.Values))
		for i, v := range r.Values {
			values[i] = output.FormatFloat(v)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%.1fms\t%s\n",
			r.Timestamp.Format(time.RFC3339), r.Kind, vehicle, r.Outcome,
			strings.Join(values, " "), r.Samples, r.DurationMS, r.Error)
	}
	return tw.Flush()
}

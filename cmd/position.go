package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/simforecast/app"
	"github.com/kilianp07/simforecast/core/prediction/position"
)

func newPositionCmd(opts *rootOptions) *cobra.Command {
	var dataset, out string
	cmd := &cobra.Command{
		Use:   "position <vehicleId> <timestamp>",
		Short: "Predict the position of a vehicle at a timestamp",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vehicleID, at, err := position.ParseArgs(args[0], args[1])
			if err != nil {
				return err
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if dataset != "" {
				cfg.Position.Dataset = dataset
			}
			if out != "" {
				cfg.Position.Output = out
			}
			return withService(cfg, func(svc *app.Service) error {
				_, err := svc.RunPosition(cmd.Context(), vehicleID, at)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "telemetry CSV (overrides position.dataset)")
	cmd.Flags().StringVar(&out, "output", "", "result file (overrides position.output)")
	return cmd
}

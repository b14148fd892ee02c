package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/simforecast/app"
)

func newSequenceCmd(opts *rootOptions) *cobra.Command {
	var input, recent, out string
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Train on a numeric sequence and predict its next value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Sequence.Input = input
			}
			if recent != "" {
				cfg.Sequence.Recent = recent
			}
			if out != "" {
				cfg.Sequence.Output = out
			}
			return withService(cfg, func(svc *app.Service) error {
				_, err := svc.RunSequence(cmd.Context())
				return err
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "history file (overrides sequence.input)")
	cmd.Flags().StringVar(&recent, "recent", "", "recent sample file (overrides sequence.recent)")
	cmd.Flags().StringVar(&out, "output", "", "result file (overrides sequence.output)")
	return cmd
}

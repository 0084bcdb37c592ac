package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Crawl, clean and load once, then publish the run report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps(opts)
			if err != nil {
				return err
			}
			defer d.Close()

			sum, err := d.pipeline.Run(cmd.Context())
			if err != nil {
				return err
			}
			d.logger.Info("run complete",
				zap.Int("collected", sum.Collected),
				zap.String("destination", string(sum.Destination)),
			)
			fmt.Fprintln(cmd.OutOrStdout(), sum.Report)
			return nil
		},
	}
}

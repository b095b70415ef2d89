package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"handbook/app/internal/app/bootstrap"
	applog "handbook/app/internal/platform/log"
)

func newBuildCommand(rt *runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render every page into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("output") {
				rt.cfg.OutputDir = output
			}

			return rt.build(cmd, func(app bootstrap.Result) error {
				report, err := app.Builder.Build(cmd.Context())
				if err != nil {
					applog.Component(rt.logger, "builder").WithError(err).Error("static build failed")
				}
				if report != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "built %d pages into %s (%d failed, %d broken links)\n",
						report.Pages, app.Builder.OutputDir(), len(report.Failed), len(report.BrokenLinks))
				}
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (overrides OUTPUT_DIR)")
	return cmd
}

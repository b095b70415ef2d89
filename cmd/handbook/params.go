package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"handbook/app/internal/app/bootstrap"
	"handbook/app/internal/domain/content"
)

func newParamsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Print the static params as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.build(cmd, func(app bootstrap.Result) error {
				params, err := app.Site.StaticParams(cmd.Context())
				if err != nil {
					return err
				}
				if params == nil {
					params = []content.Params{}
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return eris.Wrap(enc.Encode(params), "encoding static params")
			})
		},
	}
}

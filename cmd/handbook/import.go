package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"handbook/app/internal/app/bootstrap"
	"handbook/app/internal/data/database"
	"handbook/app/internal/domain/content"
)

func newImportCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Copy the content directory into the SQLite page store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			langs, err := content.ParseLangs(rt.cfg.Languages)
			if err != nil {
				return eris.Wrap(err, "parsing SITE_LANGUAGES")
			}

			src, err := bootstrap.OpenFilesystem(rt.deps(), langs)
			if err != nil {
				return err
			}

			repo, db, err := bootstrap.OpenRepository(cmd.Context(), rt.deps(), langs)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := database.Close(db); closeErr != nil {
					rt.logger.WithError(closeErr).Error("closing database")
				}
			}()

			imported, err := repo.ImportFrom(cmd.Context(), src)
			if err != nil {
				return eris.Wrapf(err, "importing after %d pages", imported)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d pages into %s\n", imported, rt.cfg.DBPath)
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/studyprep/internal/bootstrap"
	"github.com/at-ishikawa/studyprep/internal/config"
	"github.com/at-ishikawa/studyprep/internal/database"
	"github.com/at-ishikawa/studyprep/schemas"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd.Context(), func(ctx context.Context, _ *config.Config, services *bootstrap.Services) error {
				applied, err := database.Migrate(ctx, services.DB, schemas.Migrations, "migrations")
				if err != nil {
					return fmt.Errorf("database.Migrate() > %w", err)
				}
				if len(applied) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date.")
					return nil
				}
				for _, name := range applied {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
				}
				return nil
			})
		},
	}
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-importer/internal/security"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres security catalog schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations to DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return security.RunMigrations(a.cfg.DatabaseURL, a.log)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration on DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return security.RunMigrationsDown(a.cfg.DatabaseURL, a.log)
		},
	})
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finance/internal/storage"
)

func migrateCmd(a *app) *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Create or update the database schema to the latest version.
Use --status to print the applied version without changing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := a.cfg.SQLiteDBPath
			if !status {
				a.logger.Info("Running database migrations", "path", dbPath)
				if err := storage.RunMigrations(dbPath); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			}
			version, dirty, err := storage.MigrationVersion(dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t) at %s\n", version, dirty, dbPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "show the applied version without migrating")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dailyreport/infrastructure/sqlite"
)

func newMigrateCmd(load configLoader) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := sqlite.OpenDB(cfg.SQLitePath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			applied, err := sqlite.ApplyMigrations(cmd.Context(), db, dir)
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", len(applied))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to the embedded set)")
	return cmd
}

package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sharptier/cms/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations as one batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *store.Migrator) error {
			names, err := m.Up(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				logger.Info("No pending migrations")
			}
			for _, name := range names {
				logger.Info("Applied migration", zap.String("name", name))
			}
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *store.Migrator) error {
			names, err := m.Down(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				logger.Info("Nothing to roll back")
			}
			for _, name := range names {
				logger.Info("Rolled back migration", zap.String("name", name))
			}
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they have been applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *store.Migrator) error {
			statuses, err := m.Status(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tAPPLIED\tBATCH")
			for _, s := range statuses {
				batch := "-"
				if s.Applied {
					batch = fmt.Sprint(s.Batch)
				}
				fmt.Fprintf(w, "%s\t%t\t%s\n", s.Name, s.Applied, batch)
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func withMigrator(ctx context.Context, fn func(context.Context, *store.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := store.NewDB(cfg.Server.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := store.NewMigrator(db, logger)
	if err != nil {
		return err
	}
	return fn(ctx, m)
}

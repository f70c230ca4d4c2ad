package main

// Run database migrations:
//   go run ./cmd/migrate up
//   go run ./cmd/migrate down
//   go run ./cmd/migrate status

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"collateral-backend/internal/shared/config"
	"collateral-backend/internal/shared/storage/db"
	"collateral-backend/internal/shared/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var databaseURL string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the collateral database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")

	withDB := func(fn func(ctx context.Context, sqlDB *sql.DB) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			telemetry.Init(cfg.LogLevel)
			url := databaseURL
			if url == "" {
				url = cfg.DatabaseURL
			}
			ctx := cmd.Context()
			sqlDB, err := db.Connect(ctx, url, db.OptionsFromEnv(db.DefaultMigrateOptions()))
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer sqlDB.Close()
			return fn(ctx, sqlDB)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withDB(func(ctx context.Context, sqlDB *sql.DB) error {
				if err := db.RunMigrations(ctx, sqlDB); err != nil {
					return err
				}
				return reportVersion(ctx, sqlDB)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: withDB(func(ctx context.Context, sqlDB *sql.DB) error {
				if err := db.RollbackMigration(ctx, sqlDB); err != nil {
					return err
				}
				return reportVersion(ctx, sqlDB)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of every migration",
			RunE: withDB(func(ctx context.Context, sqlDB *sql.DB) error {
				return db.MigrationStatus(ctx, sqlDB)
			}),
		},
	)
	return root
}

func reportVersion(ctx context.Context, sqlDB *sql.DB) error {
	version, err := db.MigrationVersion(ctx, sqlDB)
	if err != nil {
		return err
	}
	telemetry.Info("migrate.version", map[string]any{"version": version})
	return nil
}

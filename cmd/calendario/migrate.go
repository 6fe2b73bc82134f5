package main

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"calendario/internal/store"
	"calendario/internal/store/migrations"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateSubcommand(flags, "up", "Apply all pending migrations", migrations.Up),
		migrateSubcommand(flags, "down", "Roll back the most recent migration", migrations.Down),
		migrateSubcommand(flags, "status", "Show applied migrations", migrations.Status),
	)
	return cmd
}

func migrateSubcommand(flags *rootFlags, use, short string, run func(context.Context, *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url is not configured")
			}
			ctx := cmd.Context()
			pool, err := store.OpenPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			db := stdlib.OpenDBFromPool(pool)
			defer db.Close()
			return run(ctx, db)
		},
	}
}

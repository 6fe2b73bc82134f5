package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateSettingsTable, downCreateSettingsTable)
}

func upCreateSettingsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS settings(
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

func downCreateSettingsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS settings;`)
	return err
}

package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateEventTable, downCreateEventTable)
}

func upCreateEventTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS event(
			id BIGSERIAL PRIMARY KEY,
			description TEXT NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			notification BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS event_date_idx ON event(date);
	`)
	return err
}

func downCreateEventTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS event;`)
	return err
}

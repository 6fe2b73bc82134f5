package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upAddNotificationMinOffset, downAddNotificationMinOffset)
}

// Rows written before reminders had a configurable lead time keep the old
// fixed one hour.
func upAddNotificationMinOffset(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		ALTER TABLE event
			ADD COLUMN IF NOT EXISTS notification_min_offset INTEGER NOT NULL DEFAULT 60
			CHECK (notification_min_offset >= 0);
	`)
	return err
}

func downAddNotificationMinOffset(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `ALTER TABLE event DROP COLUMN IF EXISTS notification_min_offset;`)
	return err
}

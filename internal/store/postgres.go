package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"calendario/internal/model"
)

// Postgres is the pgx-backed Repository over the event table.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool}
}

// OpenPool connects to url and verifies the connection.
func OpenPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (p *Postgres) Insert(ctx context.Context, ev model.Event) (int64, error) {
	insertQuery := `
	INSERT INTO event (description, date, notification, notification_min_offset)
	VALUES ($1, $2, $3, $4)
	RETURNING id
	`
	var id int64
	err := p.db.QueryRow(ctx, insertQuery,
		ev.Description, ev.Date, ev.Notification, ev.NotificationMinOffset).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (p *Postgres) Update(ctx context.Context, ev model.Event) (int64, error) {
	updateQuery := `
	UPDATE event
	SET description = $1, date = $2, notification = $3, notification_min_offset = $4
	WHERE id = $5
	`
	tag, err := p.db.Exec(ctx, updateQuery,
		ev.Description, ev.Date, ev.Notification, ev.NotificationMinOffset, ev.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) DeleteByID(ctx context.Context, id int64) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM event WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) QueryRange(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	rows, err := p.db.Query(ctx, `
	SELECT id, description, date, notification, notification_min_offset
	FROM event
	WHERE date >= $1 AND date < $2
	ORDER BY date, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func (p *Postgres) QueryFrom(ctx context.Context, from time.Time) ([]model.Event, error) {
	rows, err := p.db.Query(ctx, `
	SELECT id, description, date, notification, notification_min_offset
	FROM event
	WHERE date >= $1
	ORDER BY date, id
	`, from)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Event, error) {
		var ev model.Event
		err := row.Scan(&ev.ID, &ev.Description, &ev.Date, &ev.Notification, &ev.NotificationMinOffset)
		return ev, err
	})
}

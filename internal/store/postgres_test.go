package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendario/internal/apperr"
	"calendario/internal/model"
	"calendario/internal/store/migrations"
	"calendario/internal/testutil"
)

func TestPostgres_Integration(t *testing.T) {
	pool, cleanup := testutil.NewPostgresTestPool(t)
	defer cleanup()

	ctx := context.Background()
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	require.NoError(t, migrations.Up(ctx, sqlDB))

	f := NewFacade(NewPostgres(pool), time.UTC)
	day := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

	id, err := f.Insert(ctx, model.Draft{
		Description:           "dentist",
		Date:                  day.Add(9 * time.Hour),
		Notification:          true,
		NotificationMinOffset: 30,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	events, err := f.QueryByExactDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "dentist", events[0].Description)
	assert.Equal(t, 30, events[0].NotificationMinOffset)

	ev := events[0]
	ev.Date = day.AddDate(0, 0, 1).Add(10 * time.Hour)
	require.NoError(t, f.Update(ctx, ev))

	events, err = f.QueryByExactDate(ctx, day)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = f.QueryFromDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, f.DeleteByID(ctx, id))
	assert.ErrorIs(t, f.DeleteByID(ctx, id), apperr.ErrNotFound)
	assert.ErrorIs(t, f.Update(ctx, ev), apperr.ErrNotFound)

	settings, err := NewGormSettings(sqlDB)
	require.NoError(t, err)
	_, ok, err := settings.Get(ctx, model.SettingLocation)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SaveSettings(ctx, settings, model.Settings{Location: "DE", TimeFormat: model.TimeFormat12}))
	require.NoError(t, SaveSettings(ctx, settings, model.Settings{Location: "FR", TimeFormat: model.TimeFormat12}))
	got, err := LoadSettings(ctx, settings, model.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, "FR", got.Location)
	assert.Equal(t, model.TimeFormat12, got.TimeFormat)
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendario/internal/apperr"
	"calendario/internal/mocks"
	"calendario/internal/model"
	"calendario/internal/store/memstore"
)

func TestFacade_InsertClassifiesFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("disk full"))

	f := NewFacade(repo, time.UTC)
	_, err := f.Insert(context.Background(), model.Draft{Description: "x"})
	require.Error(t, err)
	assert.True(t, apperr.IsPersistence(err))
}

func TestFacade_ZeroAffectedIsNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	repo.EXPECT().DeleteByID(gomock.Any(), int64(4)).Return(int64(0), nil)

	f := NewFacade(repo, time.UTC)
	assert.ErrorIs(t, f.Update(context.Background(), model.Event{ID: 4}), apperr.ErrNotFound)
	assert.ErrorIs(t, f.DeleteByID(context.Background(), 4), apperr.ErrNotFound)
}

func TestFacade_QueryFromDateUsesDayStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)

	loc := time.FixedZone("X", 2*3600)
	now := time.Date(2024, 6, 10, 18, 45, 0, 0, loc)
	dayStart := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)

	late := model.Event{ID: 2, Date: time.Date(2024, 6, 11, 9, 0, 0, 0, loc)}
	early := model.Event{ID: 1, Date: time.Date(2024, 6, 10, 7, 0, 0, 0, loc)}
	repo.EXPECT().QueryFrom(gomock.Any(), dayStart).Return([]model.Event{late, early}, nil)

	f := NewFacade(repo, loc)
	got, err := f.QueryFromDate(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID, "earlier-today event included and sorted first")
	assert.Equal(t, int64(2), got[1].ID)
}

func TestFacade_WithMemstore(t *testing.T) {
	ctx := context.Background()
	f := NewFacade(memstore.New(), time.UTC)

	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	id1, err := f.Insert(ctx, model.Draft{Description: "b", Date: day.Add(10 * time.Hour)})
	require.NoError(t, err)
	id2, err := f.Insert(ctx, model.Draft{Description: "a", Date: day.Add(8 * time.Hour)})
	require.NoError(t, err)
	_, err = f.Insert(ctx, model.Draft{Description: "next", Date: day.AddDate(0, 0, 1)})
	require.NoError(t, err)

	events, err := f.QueryByExactDate(ctx, day.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, id2, events[0].ID)
	assert.Equal(t, id1, events[1].ID)

	require.NoError(t, f.Update(ctx, model.Event{ID: id1, Description: "b2", Date: day.AddDate(0, 0, 2)}))
	events, err = f.QueryFromDate(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b2", events[1].Description)

	require.NoError(t, f.DeleteByID(ctx, id1))
	assert.ErrorIs(t, f.DeleteByID(ctx, id1), apperr.ErrNotFound)
}

func TestLoadAndSaveSettings(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()

	got, err := LoadSettings(ctx, repo, model.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), got)

	require.NoError(t, SaveSettings(ctx, repo, model.Settings{Location: "it", TimeFormat: model.TimeFormat12}))
	got, err = LoadSettings(ctx, repo, model.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, model.Settings{Location: "IT", TimeFormat: model.TimeFormat12}, got)
}

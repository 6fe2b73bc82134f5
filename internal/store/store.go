package store

import (
	"context"
	"sort"
	"time"

	"calendario/internal/apperr"
	"calendario/internal/model"
)

// Repository is the event persistence backend. Affected-row counts of zero
// signal an unknown id.
type Repository interface {
	Insert(ctx context.Context, ev model.Event) (int64, error)
	Update(ctx context.Context, ev model.Event) (int64, error)
	DeleteByID(ctx context.Context, id int64) (int64, error)
	// QueryRange returns events with from <= date < to ordered by date.
	QueryRange(ctx context.Context, from, to time.Time) ([]model.Event, error)
	// QueryFrom returns events with date >= from ordered by date.
	QueryFrom(ctx context.Context, from time.Time) ([]model.Event, error)
}

// SettingsRepository persists name/value preferences.
type SettingsRepository interface {
	// Get returns ok=false when name has never been set.
	Get(ctx context.Context, name string) (value string, ok bool, err error)
	Set(ctx context.Context, name, value string) error
}

// Facade is the typed entry point to event persistence. It classifies
// backend failures as *apperr.PersistenceError and zero affected rows as
// apperr.ErrNotFound.
type Facade struct {
	repo Repository
	loc  *time.Location
}

// NewFacade wraps repo; calendar days are computed in loc.
func NewFacade(repo Repository, loc *time.Location) *Facade {
	if loc == nil {
		loc = time.Local
	}
	return &Facade{repo: repo, loc: loc}
}

// Location returns the zone calendar days are derived in.
func (f *Facade) Location() *time.Location {
	return f.loc
}

// Insert stores a new event and returns its id.
func (f *Facade) Insert(ctx context.Context, d model.Draft) (int64, error) {
	id, err := f.repo.Insert(ctx, d.WithID(0))
	if err != nil {
		return 0, persistence("insert", err)
	}
	return id, nil
}

// Update rewrites ev by id.
func (f *Facade) Update(ctx context.Context, ev model.Event) error {
	n, err := f.repo.Update(ctx, ev)
	if err != nil {
		return persistence("update", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteByID removes the event with id.
func (f *Facade) DeleteByID(ctx context.Context, id int64) error {
	n, err := f.repo.DeleteByID(ctx, id)
	if err != nil {
		return persistence("delete", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// QueryByExactDate returns the events on day's calendar day, ascending.
func (f *Facade) QueryByExactDate(ctx context.Context, day time.Time) ([]model.Event, error) {
	start := model.DayStart(day, f.loc)
	events, err := f.repo.QueryRange(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, persistence("query by date", err)
	}
	return f.sorted(events), nil
}

// QueryFromDate returns events from the start of day's calendar day on,
// so everything happening today is included even if already over.
func (f *Facade) QueryFromDate(ctx context.Context, day time.Time) ([]model.Event, error) {
	events, err := f.repo.QueryFrom(ctx, model.DayStart(day, f.loc))
	if err != nil {
		return nil, persistence("query from date", err)
	}
	return f.sorted(events), nil
}

func (f *Facade) sorted(events []model.Event) []model.Event {
	for i := range events {
		events[i].Date = events[i].Date.In(f.loc)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}

func persistence(op string, err error) error {
	return &apperr.PersistenceError{Op: op, Err: err}
}

package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"calendario/internal/model"
)

// Store is an in-memory Repository and SettingsRepository. It backs tests
// and the ephemeral mode of the CLI.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	events   map[int64]model.Event
	settings map[string]string
}

func New() *Store {
	return &Store{
		nextID:   1,
		events:   make(map[int64]model.Event),
		settings: make(map[string]string),
	}
}

func (s *Store) Insert(_ context.Context, ev model.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = s.nextID
	s.nextID++
	s.events[ev.ID] = ev
	return ev.ID, nil
}

func (s *Store) Update(_ context.Context, ev model.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[ev.ID]; !ok {
		return 0, nil
	}
	s.events[ev.ID] = ev
	return 1, nil
}

func (s *Store) DeleteByID(_ context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return 0, nil
	}
	delete(s.events, id)
	return 1, nil
}

func (s *Store) QueryRange(_ context.Context, from, to time.Time) ([]model.Event, error) {
	return s.filter(func(ev model.Event) bool {
		return !ev.Date.Before(from) && ev.Date.Before(to)
	}), nil
}

func (s *Store) QueryFrom(_ context.Context, from time.Time) ([]model.Event, error) {
	return s.filter(func(ev model.Event) bool {
		return !ev.Date.Before(from)
	}), nil
}

// Event returns a copy of the stored event with id.
func (s *Store) Event(id int64) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	return ev, ok
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) filter(keep func(model.Event) bool) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func (s *Store) Get(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[name]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[name] = value
	return nil
}

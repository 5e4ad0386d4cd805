// Package memory implements store.Store in process memory. It backs the
// server when no database is configured and stands in for postgres in tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/store"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memory store closed")

// Store holds events in a map guarded by a single mutex. Records are cloned
// on the way in and out so callers never share memory with the store.
type Store struct {
	mu      sync.Mutex
	events  map[string]*model.Event
	retired map[string]struct{}
	closed  bool
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		events:  make(map[string]*model.Event),
		retired: make(map[string]struct{}),
	}
}

func (s *Store) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.Unavailable("create", ErrClosed)
	}
	_, live := s.events[e.ID]
	_, gone := s.retired[e.ID]
	if live || gone {
		return store.Unavailable("create", fmt.Errorf("%w: %q", store.ErrIDInUse, e.ID))
	}
	s.events[e.ID] = e.Clone()
	return nil
}

func (s *Store) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.Unavailable("get", ErrClosed)
	}
	e, ok := s.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *Store) ListEvents(_ context.Context) ([]*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.Unavailable("list", ErrClosed)
	}
	out := make([]*model.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Clone())
	}
	slices.SortFunc(out, func(a, b *model.Event) int {
		switch {
		case model.Less(a, b):
			return -1
		case model.Less(b, a):
			return 1
		}
		return 0
	})
	return out, nil
}

// UpdateEvent runs fn on a copy while holding the store lock, so concurrent
// updates to the same id are applied one after the other.
func (s *Store) UpdateEvent(_ context.Context, id string, fn store.MutateFunc) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.Unavailable("update", ErrClosed)
	}
	cur, ok := s.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	s.events[id] = next
	return next.Clone(), nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.Unavailable("delete", ErrClosed)
	}
	e, ok := s.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.events, id)
	s.retired[id] = struct{}{}
	return e, nil
}

// Close marks the store closed and drops its contents.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.events = nil
	s.retired = nil
	return nil
}

// Package eventstore owns the event records: it validates mutations,
// assigns identity and creation time, and keeps End consistent with Status
// before handing records to a store.Store backend.
package eventstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/eventboard/internal/idgen"
	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/store"
)

// EventStore is the authoritative record keeper for events.
type EventStore struct {
	backend store.Store
	now     func() time.Time
	newID   func() (string, error)
}

// Option configures an EventStore.
type Option func(*EventStore)

// WithClock overrides the time source used for createdAt and end stamps.
func WithClock(now func() time.Time) Option {
	return func(s *EventStore) { s.now = now }
}

// WithIDGenerator overrides how new event ids are produced.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *EventStore) { s.newID = newID }
}

// New returns an EventStore persisting through backend.
func New(backend store.Store, opts ...Option) *EventStore {
	s := &EventStore{
		backend: backend,
		now:     time.Now,
		newID:   idgen.Generate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID reserves the id the next created event will carry. Callers that
// must serialise work on an id before it exists pass it to CreateWithID.
func (s *EventStore) NewID() (string, error) {
	id, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id, nil
}

// Create validates in and persists a new occurring, visible event.
func (s *EventStore) Create(ctx context.Context, in model.NewEventInput) (*model.Event, error) {
	id, err := s.NewID()
	if err != nil {
		return nil, err
	}
	return s.CreateWithID(ctx, id, in)
}

// CreateWithID is Create with an id obtained from NewID.
func (s *EventStore) CreateWithID(ctx context.Context, id string, in model.NewEventInput) (*model.Event, error) {
	start, err := in.Validate()
	if err != nil {
		return nil, err
	}

	e := &model.Event{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Start:       start,
		Status:      model.StatusOccurring,
		CreatedAt:   s.now().UTC(),
	}
	if err := model.ValidateEvent(e); err != nil {
		return nil, err
	}
	if err := s.backend.CreateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

// Get returns the event with the given id.
func (s *EventStore) Get(ctx context.Context, id string) (*model.Event, error) {
	e, err := s.backend.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, nil
}

// List returns every event ordered by start. Each call reads the backend.
func (s *EventStore) List(ctx context.Context) ([]*model.Event, error) {
	events, err := s.backend.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Update applies u to the event with the given id. Fields u leaves nil are
// untouched; a status change stamps or clears End in the same write.
func (s *EventStore) Update(ctx context.Context, id string, u model.EventUpdate) (*model.Event, error) {
	if err := model.ValidateUpdate(u); err != nil {
		return nil, err
	}
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		u.Title = &title
	}

	e, err := s.backend.UpdateEvent(ctx, id, func(e *model.Event) error {
		u.Apply(e, s.now())
		return model.ValidateEvent(e)
	})
	if err != nil {
		return nil, fmt.Errorf("update event %s: %w", id, err)
	}
	return e, nil
}

// Delete removes the event and returns it as it was before removal.
func (s *EventStore) Delete(ctx context.Context, id string) (*model.Event, error) {
	e, err := s.backend.DeleteEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete event %s: %w", id, err)
	}
	return e, nil
}

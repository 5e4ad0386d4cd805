// Package service orchestrates event mutations: it runs them against the
// EventStore and, once they succeed or fail, tells subscribers what
// happened through a Notifier.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/eventboard/internal/events"
	"github.com/alfredjeanlab/eventboard/internal/eventstore"
	"github.com/alfredjeanlab/eventboard/internal/model"
)

// lockStripes is the number of per-id mutexes mutations are spread over.
const lockStripes = 64

// Failure toasts, one per mutation kind.
const (
	msgCreateFailed = "Failed to add event."
	msgUpdateFailed = "Failed to update event."
	msgDeleteFailed = "Failed to delete event."
)

// Notifier delivers a notification to interested observers.
// *events.Bus implements it.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// EventService is the entry point every transport calls.
type EventService struct {
	store    *eventstore.EventStore
	notifier Notifier

	locks [lockStripes]sync.Mutex

	// snapMu serialises list-then-publish so the last snapshot sent is
	// never older than one sent before it.
	snapMu sync.Mutex
}

// New returns an EventService over st publishing through n.
func New(st *eventstore.EventStore, n Notifier) *EventService {
	return &EventService{store: st, notifier: n}
}

func (s *EventService) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}

// List returns the projected events ordered by start.
func (s *EventService) List(ctx context.Context) ([]*model.EventView, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return model.ProjectAll(list), nil
}

// Get returns the projected event with the given id.
func (s *EventService) Get(ctx context.Context, id string) (*model.EventView, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.Project(e), nil
}

// Create adds an event and announces it. The id's lock is held from before
// the insert, so no update of the new event can be announced ahead of its
// creation.
func (s *EventService) Create(ctx context.Context, in model.NewEventInput) (*model.EventView, error) {
	id, err := s.store.NewID()
	if err != nil {
		s.fail(ctx, "create", "", err, msgCreateFailed)
		return nil, err
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	e, err := s.store.CreateWithID(ctx, id, in)
	if err != nil {
		s.fail(ctx, "create", id, err, msgCreateFailed)
		return nil, err
	}

	view := model.Project(e)
	s.announce(ctx, events.TopicEventCreated, e.ID, view, model.Toast{
		Message:  fmt.Sprintf("New event \"%s\" added!", e.Title),
		Severity: model.SeveritySuccess,
	})
	slog.Info("event created", "event_id", e.ID, "title", e.Title)
	return view, nil
}

// Update applies u to the event and announces the result. Every accepted
// update is announced, including ones that change nothing.
func (s *EventService) Update(ctx context.Context, id string, u model.EventUpdate) (*model.EventView, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	e, err := s.store.Update(ctx, id, u)
	if err != nil {
		s.fail(ctx, "update", id, err, msgUpdateFailed)
		return nil, err
	}

	view := model.Project(e)
	s.announce(ctx, events.TopicEventUpdated, id, view, UpdateToast(e, u))
	slog.Info("event updated", "event_id", id, "fields", u.Fields())
	return view, nil
}

// Delete removes the event and announces it.
func (s *EventService) Delete(ctx context.Context, id string) error {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	e, err := s.store.Delete(ctx, id)
	if err != nil {
		s.fail(ctx, "delete", id, err, msgDeleteFailed)
		return err
	}

	s.announce(ctx, events.TopicEventDeleted, id, model.Project(e), model.Toast{
		Message:  fmt.Sprintf("Event \"%s\" deleted!", e.Title),
		Severity: model.SeverityInfo,
	})
	slog.Info("event deleted", "event_id", id)
	return nil
}

// UpdateToast picks the toast for an accepted update. A status change wins
// over a title change, which wins over other content edits; a visibility
// toggle is reported only when nothing else changed. The toast follows the
// requested status, not the previous one: resubmitting occurring on an
// occurring event still reads "Event reopened!".
func UpdateToast(e *model.Event, u model.EventUpdate) model.Toast {
	switch {
	case u.Status != nil && *u.Status == model.StatusResolved:
		return model.Toast{Message: "Event marked as resolved!", Severity: model.SeveritySuccess}
	case u.Status != nil:
		return model.Toast{Message: "Event reopened!", Severity: model.SeverityWarning}
	case u.Title != nil:
		return model.Toast{Message: fmt.Sprintf("Event \"%s\" updated!", e.Title), Severity: model.SeveritySuccess}
	case u.Description != nil || u.Start != nil:
		return model.Toast{Message: "Event updated!", Severity: model.SeveritySuccess}
	case u.IsHidden != nil && *u.IsHidden:
		return model.Toast{Message: "Event hidden!", Severity: model.SeverityInfo}
	default:
		return model.Toast{Message: "Event shown!", Severity: model.SeverityInfo}
	}
}

// announce publishes the specific topic, a fresh snapshot and the toast,
// in that order. Failures are logged and never reach the caller.
func (s *EventService) announce(ctx context.Context, topic, id string, view *model.EventView, toast model.Toast) {
	ctx = context.WithoutCancel(ctx)
	s.publish(ctx, topic, id, view)
	s.publishSnapshot(ctx)
	s.publish(ctx, events.TopicToast, id, toast)
}

func (s *EventService) publishSnapshot(ctx context.Context) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	list, err := s.store.List(ctx)
	if err != nil {
		slog.Warn("skipping snapshot: list failed", "error", err)
		return
	}
	s.publish(ctx, events.TopicEventsSnapshot, "", model.ProjectAll(list))
}

// fail reports a rejected mutation. Validation failures are the caller's
// problem and produce no notification; anything else gets an error toast.
func (s *EventService) fail(ctx context.Context, op, id string, err error, message string) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return
	}
	slog.Warn("event "+op+" failed", "event_id", id, "error", err)
	s.publish(context.WithoutCancel(ctx), events.TopicToast, id, model.Toast{
		Message:  message,
		Severity: model.SeverityError,
	})
}

func (s *EventService) publish(ctx context.Context, topic, id string, payload any) {
	if err := s.notifier.Publish(ctx, topic, payload); err != nil {
		slog.Warn("failed to publish notification", "topic", topic, "event_id", id, "error", err)
	}
}

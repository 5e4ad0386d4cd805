// Package store defines the persistence contract for events and the errors
// backends report through it.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/eventboard/internal/model"
)

// ErrNotFound is returned (possibly wrapped) when no event has the requested id.
var ErrNotFound = errors.New("event not found")

// ErrIDInUse is returned (wrapped) by CreateEvent when the id belongs to a
// live event or to one that was deleted. Ids are never reused.
var ErrIDInUse = errors.New("event id already used")

// UnavailableError reports a backend failure: the store could not be reached
// or did not complete the operation.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as an *UnavailableError unless it is nil, already
// one, or ErrNotFound.
func Unavailable(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Op: op, Err: err}
}

// MutateFunc edits an event in place. Returning an error aborts the update
// and leaves the stored record unchanged.
type MutateFunc func(e *model.Event) error

// Store is the persistence interface for events.
type Store interface {
	// CreateEvent persists a new, fully populated event. It fails with
	// ErrIDInUse if the id was ever stored before.
	CreateEvent(ctx context.Context, e *model.Event) error

	// GetEvent returns a copy of the stored event.
	GetEvent(ctx context.Context, id string) (*model.Event, error)

	// ListEvents returns every event ordered by start, then createdAt, then id.
	ListEvents(ctx context.Context) ([]*model.Event, error)

	// UpdateEvent loads the event, calls fn on it and writes the result back,
	// with no other write to the same id in between.
	UpdateEvent(ctx context.Context, id string, fn MutateFunc) (*model.Event, error)

	// DeleteEvent removes the event and returns it as it was. The id stays
	// retired: a later CreateEvent with it fails with ErrIDInUse.
	DeleteEvent(ctx context.Context, id string) (*model.Event, error)

	// Close releases the backend's resources.
	Close() error
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/store"
)

var t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newEvent(id string, start time.Time) *model.Event {
	return &model.Event{
		ID:        id,
		Title:     "event " + id,
		Start:     start,
		Status:    model.StatusOccurring,
		CreatedAt: t0,
	}
}

func TestCreateGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	e := newEvent("ev-1", t0)
	if err := s.CreateEvent(ctx, e); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	e.Title = "changed"

	got, err := s.GetEvent(ctx, "ev-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Title != "event ev-1" {
		t.Errorf("Title = %q", got.Title)
	}

	if err := s.CreateEvent(ctx, newEvent("ev-1", t0)); !errors.Is(err, store.ErrIDInUse) {
		t.Fatalf("expected ErrIDInUse, got %v", err)
	}
}

func TestCreate_DeletedIDStaysRetired(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateEvent(ctx, newEvent("ev-1", t0)); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if _, err := s.DeleteEvent(ctx, "ev-1"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	err := s.CreateEvent(ctx, newEvent("ev-1", t0))
	if !errors.Is(err, store.ErrIDInUse) {
		t.Fatalf("expected ErrIDInUse, got %v", err)
	}
	if _, err := s.GetEvent(ctx, "ev-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("retired id should stay absent, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := New()
	if _, err := s.GetEvent(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList_Ordered(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, e := range []*model.Event{
		newEvent("c", t0.Add(2*time.Hour)),
		newEvent("b", t0),
		newEvent("a", t0),
		newEvent("d", t0.Add(-time.Hour)),
	} {
		if err := s.CreateEvent(ctx, e); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	got, err := s.ListEvents(ctx)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	var ids []string
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	if want := []string{"d", "a", "b", "c"}; fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", ids, want)
	}
}

func TestList_Empty(t *testing.T) {
	got, err := New().ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %#v, want empty slice", got)
	}
}

func TestUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.CreateEvent(ctx, newEvent("ev-1", t0))

	got, err := s.UpdateEvent(ctx, "ev-1", func(e *model.Event) error {
		e.Title = "renamed"
		e.ID = "hijack"
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if got.Title != "renamed" || got.ID != "ev-1" {
		t.Fatalf("got %+v", got)
	}

	if _, err := s.UpdateEvent(ctx, "missing", func(*model.Event) error { return nil }); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_FnErrorLeavesRecord(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.CreateEvent(ctx, newEvent("ev-1", t0))

	boom := errors.New("boom")
	_, err := s.UpdateEvent(ctx, "ev-1", func(e *model.Event) error {
		e.Title = "half-written"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := s.GetEvent(ctx, "ev-1")
	if got.Title != "event ev-1" {
		t.Fatalf("record changed despite error: %+v", got)
	}
}

func TestUpdate_ConcurrentSameID(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.CreateEvent(ctx, newEvent("ev-1", t0))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.UpdateEvent(ctx, "ev-1", func(e *model.Event) error {
				e.Description += "x"
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := s.GetEvent(ctx, "ev-1")
	if len(got.Description) != n {
		t.Fatalf("lost updates: len(description) = %d, want %d", len(got.Description), n)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.CreateEvent(ctx, newEvent("ev-1", t0))

	got, err := s.DeleteEvent(ctx, "ev-1")
	if err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if got.ID != "ev-1" {
		t.Fatalf("deleted = %+v", got)
	}
	if _, err := s.DeleteEvent(ctx, "ev-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestClosed(t *testing.T) {
	s := New()
	_ = s.Close()
	_, err := s.ListEvents(context.Background())
	var ue *store.UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed in chain, got %v", err)
	}
}

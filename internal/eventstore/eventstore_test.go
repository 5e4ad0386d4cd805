package eventstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/store"
	"github.com/alfredjeanlab/eventboard/internal/store/memory"
)

// fakeClock returns a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestStore(t *testing.T) (*EventStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	n := 0
	s := New(memory.New(),
		WithClock(clock.Now),
		WithIDGenerator(func() (string, error) {
			n++
			return fmt.Sprintf("ev-%d", n), nil
		}),
	)
	return s, clock
}

func mustCreate(t *testing.T, s *EventStore, title, start string) *model.Event {
	t.Helper()
	e, err := s.Create(context.Background(), model.NewEventInput{Title: title, Start: start})
	if err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}
	return e
}

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *model.ValidationError, got %v", err)
	}
	var fields []string
	for _, fe := range ve.Errors {
		fields = append(fields, fe.Field)
	}
	return fields
}

func TestCreate_Defaults(t *testing.T) {
	s, clock := newTestStore(t)
	e := mustCreate(t, s, "Power outage", "2024-01-01T10:00:00Z")

	if e.ID != "ev-1" {
		t.Errorf("ID = %q", e.ID)
	}
	if e.Status != model.StatusOccurring || e.End != nil || e.IsHidden || e.Description != "" {
		t.Errorf("defaults not applied: %+v", e)
	}
	if !e.CreatedAt.Equal(clock.t) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, clock.t)
	}

	got, err := s.Get(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Power outage" {
		t.Errorf("stored title = %q", got.Title)
	}
}

func TestCreate_Validation(t *testing.T) {
	s, _ := newTestStore(t)
	for _, tc := range []struct {
		name  string
		in    model.NewEventInput
		field string
	}{
		{"EmptyTitle", model.NewEventInput{Start: "2024-01-01T10:00:00Z"}, "title"},
		{"WhitespaceTitle", model.NewEventInput{Title: "   ", Start: "2024-01-01T10:00:00Z"}, "title"},
		{"LongTitle", model.NewEventInput{Title: strings.Repeat("x", 501), Start: "2024-01-01T10:00:00Z"}, "title"},
		{"MissingStart", model.NewEventInput{Title: "x"}, "start"},
		{"BadStart", model.NewEventInput{Title: "x", Start: "not-a-date"}, "start"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tc.in)
			if fields := validationFields(t, err); !contains(fields, tc.field) {
				t.Errorf("fields = %v, want %q", fields, tc.field)
			}
		})
	}

	list, _ := s.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("rejected creates persisted %d events", len(list))
	}
}

func TestList_OrderedByStart(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "B", "2024-01-02T00:00:00Z")
	mustCreate(t, s, "A", "2024-01-01T00:00:00Z")

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Title != "A" || list[1].Title != "B" {
		t.Fatalf("got %v", titles(list))
	}
}

func TestUpdate_StatusDerivesEnd(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	e := mustCreate(t, s, "Outage", "2024-01-01T10:00:00Z")

	resolved := model.StatusResolved
	clock.t = clock.t.Add(30 * time.Minute)
	got, err := s.Update(ctx, e.ID, model.EventUpdate{Status: &resolved})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.End == nil || !got.End.Equal(clock.t) {
		t.Fatalf("End = %v, want %v", got.End, clock.t)
	}
	firstEnd := *got.End

	// Resolving an already resolved event keeps End.
	clock.t = clock.t.Add(time.Hour)
	got, err = s.Update(ctx, e.ID, model.EventUpdate{Status: &resolved})
	if err != nil {
		t.Fatalf("re-resolve: %v", err)
	}
	if !got.End.Equal(firstEnd) {
		t.Fatalf("End moved from %v to %v", firstEnd, *got.End)
	}

	occurring := model.StatusOccurring
	got, err = s.Update(ctx, e.ID, model.EventUpdate{Status: &occurring})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got.End != nil || got.Status != model.StatusOccurring {
		t.Fatalf("reopen left %+v", got)
	}
}

func TestUpdate_PartialLeavesOtherFields(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	e := mustCreate(t, s, "Outage", "2024-01-01T10:00:00Z")

	hidden := true
	got, err := s.Update(ctx, e.ID, model.EventUpdate{IsHidden: &hidden})
	if err != nil {
		t.Fatalf("hide: %v", err)
	}
	if !got.IsHidden || got.Title != "Outage" || got.Status != model.StatusOccurring || !got.Start.Equal(e.Start) {
		t.Fatalf("got %+v", got)
	}
}

func TestUpdate_TitleTrimmed(t *testing.T) {
	s, _ := newTestStore(t)
	e := mustCreate(t, s, "Outage", "2024-01-01T10:00:00Z")

	title := "  Renamed  "
	got, err := s.Update(context.Background(), e.ID, model.EventUpdate{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "Renamed" {
		t.Fatalf("Title = %q", got.Title)
	}
}

func TestUpdate_Errors(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	e := mustCreate(t, s, "Outage", "2024-01-01T10:00:00Z")

	if fields := validationFields(t, func() error {
		_, err := s.Update(ctx, e.ID, model.EventUpdate{})
		return err
	}()); !contains(fields, "update") {
		t.Errorf("empty update fields = %v", fields)
	}

	bad := model.Status("ocorrendo")
	if fields := validationFields(t, func() error {
		_, err := s.Update(ctx, e.ID, model.EventUpdate{Status: &bad})
		return err
	}()); !contains(fields, "status") {
		t.Errorf("bad status fields = %v", fields)
	}

	hidden := true
	if _, err := s.Update(ctx, "ev-missing", model.EventUpdate{IsHidden: &hidden}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, _ := s.Get(ctx, e.ID)
	if got.IsHidden || got.Status != model.StatusOccurring {
		t.Errorf("failed updates changed the record: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	e := mustCreate(t, s, "Outage", "2024-01-01T10:00:00Z")

	removed, err := s.Delete(ctx, e.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed.Title != "Outage" {
		t.Errorf("removed = %+v", removed)
	}
	if _, err := s.Get(ctx, e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
	if _, err := s.Delete(ctx, e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Delete: %v", err)
	}

	// Ids are never reused.
	next := mustCreate(t, s, "Next", "2024-01-01T10:00:00Z")
	if next.ID == e.ID {
		t.Errorf("id %q reused", next.ID)
	}
}

func TestBackendFailure(t *testing.T) {
	backend := memory.New()
	s := New(backend)
	_ = backend.Close()

	_, err := s.List(context.Background())
	var ue *store.UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *store.UnavailableError, got %v", err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func titles(events []*model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

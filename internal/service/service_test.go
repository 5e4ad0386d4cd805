package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/eventboard/internal/events"
	"github.com/alfredjeanlab/eventboard/internal/eventstore"
	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/store"
	"github.com/alfredjeanlab/eventboard/internal/store/memory"
)

type testEnv struct {
	svc     *EventService
	bus     *events.Bus
	sub     *events.Subscription
	backend *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := memory.New()
	bus := events.NewBus(events.BusConfig{Buffer: 256})
	t.Cleanup(func() { bus.Close() })
	return &testEnv{
		svc:     New(eventstore.New(backend), bus),
		bus:     bus,
		sub:     bus.Subscribe(),
		backend: backend,
	}
}

// drain returns every message published so far.
func (env *testEnv) drain(t *testing.T) []*events.Message {
	t.Helper()
	var out []*events.Message
	for {
		select {
		case msg := <-env.sub.C():
			out = append(out, msg)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func topics(msgs []*events.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Topic
	}
	return out
}

func decodeToast(t *testing.T, msg *events.Message) model.Toast {
	t.Helper()
	if msg.Topic != events.TopicToast {
		t.Fatalf("expected toast, got %q", msg.Topic)
	}
	var toast model.Toast
	if err := json.Unmarshal(msg.Data, &toast); err != nil {
		t.Fatalf("decode toast: %v", err)
	}
	return toast
}

func mustCreate(t *testing.T, env *testEnv, title string) *model.EventView {
	t.Helper()
	v, err := env.svc.Create(context.Background(), model.NewEventInput{Title: title, Start: "2024-01-01T10:00:00Z"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	env.drain(t)
	return v
}

func TestCreate_Announces(t *testing.T) {
	env := newTestEnv(t)

	view, err := env.svc.Create(context.Background(), model.NewEventInput{
		Title: "Queda de energia",
		Start: "2024-01-01T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Status != model.StatusOccurring || view.End != nil || view.IsHidden {
		t.Fatalf("view = %+v", view)
	}

	msgs := env.drain(t)
	want := []string{events.TopicEventCreated, events.TopicEventsSnapshot, events.TopicToast}
	if fmt.Sprint(topics(msgs)) != fmt.Sprint(want) {
		t.Fatalf("topics = %v, want %v", topics(msgs), want)
	}

	var created model.EventView
	_ = json.Unmarshal(msgs[0].Data, &created)
	if created.ID != view.ID {
		t.Errorf("event-created id = %q, want %q", created.ID, view.ID)
	}

	var snapshot []model.EventView
	_ = json.Unmarshal(msgs[1].Data, &snapshot)
	if len(snapshot) != 1 || snapshot[0].ID != view.ID {
		t.Errorf("snapshot = %+v", snapshot)
	}

	toast := decodeToast(t, msgs[2])
	if toast.Message != `New event "Queda de energia" added!` || toast.Severity != model.SeveritySuccess {
		t.Errorf("toast = %+v", toast)
	}
}

func TestCreate_ValidationIsSilent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), model.NewEventInput{Title: "", Start: "2024-01-01T10:00:00Z"})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if msgs := env.drain(t); len(msgs) != 0 {
		t.Fatalf("unexpected notifications: %v", topics(msgs))
	}
}

func TestUpdate_Toasts(t *testing.T) {
	resolved := model.StatusResolved
	occurring := model.StatusOccurring
	yes, no := true, false
	title := "Renamed"
	desc := "more detail"

	for _, tc := range []struct {
		name     string
		update   model.EventUpdate
		message  string
		severity model.Severity
	}{
		{"Resolve", model.EventUpdate{Status: &resolved}, "Event marked as resolved!", model.SeveritySuccess},
		{"Reopen", model.EventUpdate{Status: &occurring}, "Event reopened!", model.SeverityWarning},
		{"StatusBeatsTitle", model.EventUpdate{Status: &resolved, Title: &title}, "Event marked as resolved!", model.SeveritySuccess},
		{"Title", model.EventUpdate{Title: &title}, `Event "Renamed" updated!`, model.SeveritySuccess},
		{"TitleBeatsHidden", model.EventUpdate{Title: &title, IsHidden: &yes}, `Event "Renamed" updated!`, model.SeveritySuccess},
		{"Description", model.EventUpdate{Description: &desc}, "Event updated!", model.SeveritySuccess},
		{"Hide", model.EventUpdate{IsHidden: &yes}, "Event hidden!", model.SeverityInfo},
		{"Show", model.EventUpdate{IsHidden: &no}, "Event shown!", model.SeverityInfo},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			v := mustCreate(t, env, "Outage")

			if _, err := env.svc.Update(context.Background(), v.ID, tc.update); err != nil {
				t.Fatalf("Update: %v", err)
			}
			msgs := env.drain(t)
			if len(msgs) != 3 || msgs[0].Topic != events.TopicEventUpdated || msgs[1].Topic != events.TopicEventsSnapshot {
				t.Fatalf("topics = %v", topics(msgs))
			}
			toast := decodeToast(t, msgs[2])
			if toast.Message != tc.message || toast.Severity != tc.severity {
				t.Errorf("toast = %+v, want %q/%s", toast, tc.message, tc.severity)
			}
		})
	}
}

func TestUpdate_ResolveSetsEnd(t *testing.T) {
	env := newTestEnv(t)
	v := mustCreate(t, env, "Outage")

	resolved := model.StatusResolved
	got, err := env.svc.Update(context.Background(), v.ID, model.EventUpdate{Status: &resolved})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != model.StatusResolved || got.End == nil {
		t.Fatalf("got %+v", got)
	}
}

func TestUpdate_SelfTransitionStillAnnounced(t *testing.T) {
	env := newTestEnv(t)
	v := mustCreate(t, env, "Outage")

	no := false
	if _, err := env.svc.Update(context.Background(), v.ID, model.EventUpdate{IsHidden: &no}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if msgs := env.drain(t); len(msgs) != 3 {
		t.Fatalf("topics = %v", topics(msgs))
	}
}

func TestUpdate_EmptyIsSilent(t *testing.T) {
	env := newTestEnv(t)
	v := mustCreate(t, env, "Outage")

	_, err := env.svc.Update(context.Background(), v.ID, model.EventUpdate{})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if msgs := env.drain(t); len(msgs) != 0 {
		t.Fatalf("unexpected notifications: %v", topics(msgs))
	}
}

func TestUpdate_NotFoundToastsError(t *testing.T) {
	env := newTestEnv(t)

	yes := true
	_, err := env.svc.Update(context.Background(), "ev-missing", model.EventUpdate{IsHidden: &yes})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	msgs := env.drain(t)
	if len(msgs) != 1 {
		t.Fatalf("topics = %v", topics(msgs))
	}
	toast := decodeToast(t, msgs[0])
	if toast.Message != "Failed to update event." || toast.Severity != model.SeverityError {
		t.Errorf("toast = %+v", toast)
	}
}

func TestDelete_Announces(t *testing.T) {
	env := newTestEnv(t)
	v := mustCreate(t, env, "Outage")
	keep := mustCreate(t, env, "Other")

	if err := env.svc.Delete(context.Background(), v.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	msgs := env.drain(t)
	want := []string{events.TopicEventDeleted, events.TopicEventsSnapshot, events.TopicToast}
	if fmt.Sprint(topics(msgs)) != fmt.Sprint(want) {
		t.Fatalf("topics = %v, want %v", topics(msgs), want)
	}

	var deleted model.EventView
	_ = json.Unmarshal(msgs[0].Data, &deleted)
	if deleted.ID != v.ID || deleted.Title != "Outage" {
		t.Errorf("event-deleted = %+v", deleted)
	}
	var snapshot []model.EventView
	_ = json.Unmarshal(msgs[1].Data, &snapshot)
	if len(snapshot) != 1 || snapshot[0].ID != keep.ID {
		t.Errorf("snapshot = %+v", snapshot)
	}
	toast := decodeToast(t, msgs[2])
	if toast.Message != `Event "Outage" deleted!` || toast.Severity != model.SeverityInfo {
		t.Errorf("toast = %+v", toast)
	}
}

func TestDelete_NotFound(t *testing.T) {
	env := newTestEnv(t)
	if err := env.svc.Delete(context.Background(), "ev-missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	msgs := env.drain(t)
	if len(msgs) != 1 || decodeToast(t, msgs[0]).Message != "Failed to delete event." {
		t.Fatalf("messages = %v", topics(msgs))
	}
}

func TestCreate_StoreFailureToastsError(t *testing.T) {
	env := newTestEnv(t)
	_ = env.backend.Close()

	_, err := env.svc.Create(context.Background(), model.NewEventInput{Title: "x", Start: "2024-01-01T10:00:00Z"})
	var ue *store.UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	msgs := env.drain(t)
	if len(msgs) != 1 {
		t.Fatalf("topics = %v", topics(msgs))
	}
	if toast := decodeToast(t, msgs[0]); toast.Message != "Failed to add event." || toast.Severity != model.SeverityError {
		t.Errorf("toast = %+v", toast)
	}
}

func TestListAndGet_DoNotPublish(t *testing.T) {
	env := newTestEnv(t)
	v := mustCreate(t, env, "Outage")

	list, err := env.svc.List(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}
	got, err := env.svc.Get(context.Background(), v.ID)
	if err != nil || got.ID != v.ID {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if msgs := env.drain(t); len(msgs) != 0 {
		t.Fatalf("unexpected notifications: %v", topics(msgs))
	}
}

type failingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (f *failingNotifier) Publish(context.Context, string, any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("bus down")
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	n := &failingNotifier{}
	svc := New(eventstore.New(memory.New()), n)

	if _, err := svc.Create(context.Background(), model.NewEventInput{Title: "x", Start: "2024-01-01"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.calls != 3 {
		t.Fatalf("notifier calls = %d, want 3", n.calls)
	}
}

func TestUpdate_PerIDOrdering(t *testing.T) {
	env := newTestEnv(t)
	v := mustCreate(t, env, "Outage")
	sub := env.bus.Subscribe(events.TopicEventUpdated)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := fmt.Sprintf("title-%d", i)
			_, _ = env.svc.Update(context.Background(), v.ID, model.EventUpdate{Title: &title})
		}(i)
	}
	wg.Wait()

	// The last event-updated notification matches the stored state.
	var last model.EventView
	for i := 0; i < n; i++ {
		msg := <-sub.C()
		_ = json.Unmarshal(msg.Data, &last)
	}
	stored, err := env.svc.Get(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if last.Title != stored.Title {
		t.Fatalf("last notification %q, stored %q", last.Title, stored.Title)
	}
}

func TestUpdateToast_UsesStoredTitle(t *testing.T) {
	title := "  padded  "
	toast := UpdateToast(&model.Event{Title: "padded"}, model.EventUpdate{Title: &title})
	if toast.Message != `Event "padded" updated!` {
		t.Fatalf("toast = %+v", toast)
	}
}

// gatedBackend pauses CreateEvent after the row is stored, leaving the new
// id visible to other writers before Create has announced it.
type gatedBackend struct {
	*memory.Store
	inserted chan string
	release  chan struct{}
}

func (g *gatedBackend) CreateEvent(ctx context.Context, e *model.Event) error {
	if err := g.Store.CreateEvent(ctx, e); err != nil {
		return err
	}
	g.inserted <- e.ID
	<-g.release
	return nil
}

func TestCreate_AnnouncedBeforeConcurrentUpdate(t *testing.T) {
	backend := &gatedBackend{
		Store:    memory.New(),
		inserted: make(chan string, 1),
		release:  make(chan struct{}),
	}
	bus := events.NewBus(events.BusConfig{Buffer: 16})
	t.Cleanup(func() { bus.Close() })
	svc := New(eventstore.New(backend), bus)
	sub := bus.Subscribe(events.TopicEventCreated, events.TopicEventUpdated)

	created := make(chan error, 1)
	go func() {
		_, err := svc.Create(context.Background(), model.NewEventInput{Title: "Outage", Start: "2024-01-01T10:00:00Z"})
		created <- err
	}()
	id := <-backend.inserted

	updated := make(chan error, 1)
	go func() {
		yes := true
		_, err := svc.Update(context.Background(), id, model.EventUpdate{IsHidden: &yes})
		updated <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(backend.release)

	if err := <-created; err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := <-updated; err != nil {
		t.Fatalf("Update: %v", err)
	}

	var got []string
	for len(got) < 2 {
		select {
		case msg := <-sub.C():
			got = append(got, msg.Topic)
		case <-time.After(time.Second):
			t.Fatalf("topics = %v", got)
		}
	}
	if got[0] != events.TopicEventCreated || got[1] != events.TopicEventUpdated {
		t.Fatalf("topics = %v, want created before updated", got)
	}
}

func TestUpdateToast_FollowsRequestedStatus(t *testing.T) {
	resolved := model.StatusResolved
	occurring := model.StatusOccurring

	for _, tc := range []struct {
		name     string
		current  model.Status
		update   model.EventUpdate
		message  string
		severity model.Severity
	}{
		{"ReopenResolved", model.StatusResolved, model.EventUpdate{Status: &occurring}, "Event reopened!", model.SeverityWarning},
		{"OccurringAgain", model.StatusOccurring, model.EventUpdate{Status: &occurring}, "Event reopened!", model.SeverityWarning},
		{"ResolvedAgain", model.StatusResolved, model.EventUpdate{Status: &resolved}, "Event marked as resolved!", model.SeveritySuccess},
	} {
		t.Run(tc.name, func(t *testing.T) {
			toast := UpdateToast(&model.Event{Title: "Outage", Status: tc.current}, tc.update)
			if toast.Message != tc.message || toast.Severity != tc.severity {
				t.Errorf("toast = %+v, want %q/%s", toast, tc.message, tc.severity)
			}
		})
	}
}

package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/store/memory"
)

// mockDestination records calls to Write.
type mockDestination struct {
	name   string
	err    error
	writes atomic.Int64
	last   atomic.Value // []byte
}

func (d *mockDestination) Name() string { return d.name }

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return d.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seededStore returns a memory store holding n events.
func seededStore(t *testing.T, n int) *memory.Store {
	t.Helper()
	ms := memory.New()
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := range n {
		start := t0.Add(time.Duration(n-i) * time.Hour)
		e := &model.Event{
			ID:        "ev-" + string(rune('a'+i)),
			Title:     "Event " + string(rune('A'+i)),
			Start:     start,
			Status:    model.StatusOccurring,
			CreatedAt: t0,
		}
		if err := ms.CreateEvent(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
	return ms
}

func TestSchedulerStartStop(t *testing.T) {
	dest := &mockDestination{name: "mock"}
	sched := NewScheduler(seededStore(t, 1), []Destination{dest}, 50*time.Millisecond, discardLogger())
	sched.Start()

	// Wait for at least the initial backup + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes < 2 {
		t.Fatalf("expected at least 2 writes, got %d", writes)
	}

	data, ok := dest.last.Load().([]byte)
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data")
	}
	// 1 header + 1 event
	if lines := nonEmptyLines(string(data)); len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(memory.New(), nil, time.Minute, discardLogger())
	// Stop without Start should not panic.
	sched.Stop()
}

func TestRunOnce_FailingDestination(t *testing.T) {
	bad := &mockDestination{name: "bad", err: errors.New("disk full")}
	good := &mockDestination{name: "good"}
	sched := NewScheduler(seededStore(t, 2), []Destination{bad, good}, time.Minute, discardLogger())

	err := sched.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bad") {
		t.Fatalf("expected error naming the bad destination, got %v", err)
	}
	if good.writes.Load() != 1 {
		t.Fatal("a failing destination must not stop the others")
	}
}

func TestRunOnce_SourceFailure(t *testing.T) {
	ms := memory.New()
	ms.Close()
	dest := &mockDestination{name: "mock"}
	sched := NewScheduler(ms, []Destination{dest}, time.Minute, discardLogger())

	if err := sched.RunOnce(context.Background()); err == nil {
		t.Fatal("expected export error from a closed store")
	}
	if dest.writes.Load() != 0 {
		t.Fatal("nothing should be written when the export fails")
	}
}

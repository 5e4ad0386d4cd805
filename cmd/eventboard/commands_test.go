package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventboard/internal/client"
	"github.com/alfredjeanlab/eventboard/internal/events"
	"github.com/alfredjeanlab/eventboard/internal/eventstore"
	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/server"
	"github.com/alfredjeanlab/eventboard/internal/service"
	"github.com/alfredjeanlab/eventboard/internal/store/memory"
	"github.com/alfredjeanlab/eventboard/internal/ui"
)

// useTestServer points eventsClient at an HTTP server over a fresh
// in-memory store.
func useTestServer(t *testing.T) *events.Bus {
	t.Helper()
	ui.ForceNoColor()
	bus := events.NewBus(events.BusConfig{})
	svc := service.New(eventstore.New(memory.New()), bus)
	ts := httptest.NewServer(server.NewEventServer(svc, bus).NewHTTPHandler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { bus.Close() })

	prev := eventsClient
	eventsClient = client.NewHTTPClient(ts.URL)
	t.Cleanup(func() { eventsClient = prev })
	return bus
}

func runCmd(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	t.Cleanup(func() { cmd.SetOut(nil) })
	if err := cmd.RunE(cmd, args); err != nil {
		t.Fatalf("%s %v: %v", cmd.Name(), args, err)
	}
	return buf.String()
}

func setJSON(t *testing.T) {
	t.Helper()
	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })
}

func createTestEvent(t *testing.T, title string) *model.EventView {
	t.Helper()
	setJSON(t)
	out := runCmd(t, createCmd, title)
	jsonOutput = false
	var v model.EventView
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decoding create output %q: %v", out, err)
	}
	return &v
}

func TestCreateShowList(t *testing.T) {
	useTestServer(t)

	v := createTestEvent(t, "Power outage")
	if v.ID == "" || v.Status != model.StatusOccurring {
		t.Fatalf("created = %+v", v)
	}

	out := runCmd(t, showCmd, v.ID)
	for _, want := range []string{v.ID, "Power outage", "occurring"} {
		if !strings.Contains(out, want) {
			t.Errorf("show missing %q:\n%s", want, out)
		}
	}

	out = runCmd(t, listCmd)
	if !strings.Contains(out, "Power outage") || !strings.Contains(out, "1 events (1 total)") {
		t.Errorf("list output:\n%s", out)
	}
}

func TestLifecycleShortcuts(t *testing.T) {
	useTestServer(t)
	v := createTestEvent(t, "Flood")

	runCmd(t, resolveCmd, v.ID)
	got, err := eventsClient.GetEvent(t.Context(), v.ID)
	if err != nil || got.Status != model.StatusResolved || got.End == nil {
		t.Fatalf("after resolve: %+v, %v", got, err)
	}

	runCmd(t, hideCmd, v.ID)
	out := runCmd(t, listCmd)
	if strings.Contains(out, "Flood") || !strings.Contains(out, "0 events (1 total)") {
		t.Errorf("hidden event listed without --all:\n%s", out)
	}

	runCmd(t, unhideCmd, v.ID)
	runCmd(t, reopenCmd, v.ID)
	got, _ = eventsClient.GetEvent(t.Context(), v.ID)
	if got.Status != model.StatusOccurring || got.End != nil || got.IsHidden {
		t.Fatalf("after reopen/unhide: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	useTestServer(t)
	v := createTestEvent(t, "Fire")

	out := runCmd(t, deleteCmd, v.ID)
	if !strings.Contains(out, "Deleted "+v.ID) {
		t.Errorf("delete output: %q", out)
	}
	if err := deleteCmd.RunE(deleteCmd, []string{v.ID}); err == nil {
		t.Fatal("deleting twice should fail")
	}
}

func TestUpdateFromFlags(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{}
		addUpdateFlags(c)
		return c
	}

	c := newCmd()
	u, err := updateFromFlags(c)
	if err != nil || !u.IsEmpty() {
		t.Fatalf("no flags: %+v, %v", u, err)
	}

	c = newCmd()
	_ = c.Flags().Set("title", "Renamed")
	_ = c.Flags().Set("description", "")
	_ = c.Flags().Set("status", "resolved")
	_ = c.Flags().Set("hidden", "false")
	_ = c.Flags().Set("start", "2024-01-01T10:00:00Z")
	u, err = updateFromFlags(c)
	if err != nil {
		t.Fatalf("updateFromFlags: %v", err)
	}
	if got := len(u.Fields()); got != 5 {
		t.Fatalf("fields = %v", u.Fields())
	}
	if *u.Description != "" || *u.IsHidden || *u.Status != model.StatusResolved {
		t.Fatalf("update = %+v", u)
	}

	for _, tc := range []struct{ flag, value string }{
		{"status", "closed"},
		{"start", "yesterday"},
	} {
		c := newCmd()
		_ = c.Flags().Set(tc.flag, tc.value)
		if _, err := updateFromFlags(c); err == nil {
			t.Errorf("--%s=%s: expected error", tc.flag, tc.value)
		}
	}
}

func TestSubscribers(t *testing.T) {
	bus := useTestServer(t)
	sub := bus.SubscribeAs("test-client", events.TopicToast)
	defer bus.Unsubscribe(sub)

	out := runCmd(t, subscribersCmd)
	if !strings.Contains(out, "test-client") || !strings.Contains(out, "1 subscribers") {
		t.Errorf("subscribers output:\n%s", out)
	}
}

func TestHealth(t *testing.T) {
	useTestServer(t)
	if out := runCmd(t, healthCmd); !strings.Contains(out, "Health: ok") {
		t.Errorf("health output: %q", out)
	}
	if !healthy("SERVING") || healthy("NOT_SERVING") {
		t.Error("healthy misclassifies gRPC states")
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/eventboard/internal/events"
	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/ui"
)

const maxTitleWidth = 50

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printEvent writes one event as JSON or as aligned key/value lines.
func printEvent(w io.Writer, v *model.EventView) error {
	if jsonOutput {
		return printJSON(w, v)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", v.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", v.Title)
	fmt.Fprintf(tw, "Status:\t%s\n", ui.RenderStatus(v.Status))
	if v.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", v.Description)
	}
	fmt.Fprintf(tw, "Start:\t%s\n", v.Start)
	if v.End != nil {
		fmt.Fprintf(tw, "End:\t%s\n", *v.End)
	}
	if v.IsHidden {
		fmt.Fprintf(tw, "Hidden:\t%s\n", ui.RenderMuted("yes"))
	}
	if v.CreatedAt != "" {
		fmt.Fprintf(tw, "Created At:\t%s\n", v.CreatedAt)
	}
	return tw.Flush()
}

// printEventList writes events as JSON or as a table. Hidden events are
// skipped in the table unless showHidden is set; JSON output is complete.
func printEventList(w io.Writer, views []*model.EventView, showHidden bool) error {
	if jsonOutput {
		return printJSON(w, views)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTART\tEND\tTITLE")
	shown := 0
	for _, v := range views {
		if v.IsHidden && !showHidden {
			continue
		}
		end := "-"
		if v.End != nil {
			end = *v.End
		}
		title := truncate(v.Title, maxTitleWidth)
		if v.IsHidden {
			title = ui.RenderMuted(title + " (hidden)")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.ID, ui.RenderStatus(v.Status), v.Start, end, title)
		shown++
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d events (%d total)\n", shown, len(views))
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatMessage renders one notification as a single human-readable line.
func formatMessage(m *events.Message) string {
	prefix := ui.RenderMuted(time.Now().Format("15:04:05")) + " " + ui.RenderAccent(m.Topic)
	switch m.Topic {
	case events.TopicToast:
		var t model.Toast
		if err := json.Unmarshal(m.Data, &t); err == nil {
			return prefix + " " + ui.RenderSeverity(t.Severity, t.Message)
		}
	case events.TopicEventsSnapshot:
		var views []*model.EventView
		if err := json.Unmarshal(m.Data, &views); err == nil {
			return fmt.Sprintf("%s %d events", prefix, len(views))
		}
	case events.TopicEventCreated, events.TopicEventUpdated, events.TopicEventDeleted:
		var v model.EventView
		if err := json.Unmarshal(m.Data, &v); err == nil {
			return fmt.Sprintf("%s %s %s %q", prefix, v.ID, ui.RenderStatus(v.Status), v.Title)
		}
	}
	return prefix + " " + strings.TrimSpace(string(m.Data))
}

// printMessage writes a notification as one JSON line or one formatted line.
func printMessage(w io.Writer, m *events.Message) error {
	if jsonOutput {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintln(w, formatMessage(m))
	return err
}

func printSubscribers(w io.Writer, subs []events.SubscriberInfo) error {
	if jsonOutput {
		if subs == nil {
			subs = []events.SubscriberInfo{}
		}
		return printJSON(w, subs)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLIENT\tTOPICS\tCONNECTED\tMISSED\tDROPPED")
	for _, s := range subs {
		topics := "*"
		if len(s.Topics) > 0 {
			topics = strings.Join(s.Topics, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			s.ID, s.Client, topics, s.ConnectedAt.Format(time.DateTime), s.Missed, s.Dropped)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d subscribers\n", len(subs))
	return err
}

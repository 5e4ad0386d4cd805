package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/eventboard/internal/model"
)

// Source lists the events to back up. store.Store satisfies it.
type Source interface {
	ListEvents(ctx context.Context) ([]*model.Event, error)
}

// exportVersion tags the JSONL layout written by ExportJSONL.
const exportVersion = "1"

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	EventCount int       `json:"event_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes a header line followed by one line per event, in
// display order, and returns the number of events written.
func ExportJSONL(ctx context.Context, src Source, w io.Writer) (int, error) {
	list, err := src.ListEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:    exportVersion,
		Type:       "header",
		Timestamp:  time.Now().UTC(),
		EventCount: len(list),
	}); err != nil {
		return 0, fmt.Errorf("encode header: %w", err)
	}

	for _, e := range list {
		if err := enc.Encode(record{Type: "event", Data: model.Project(e)}); err != nil {
			return 0, fmt.Errorf("encode event %s: %w", e.ID, err)
		}
	}
	return len(list), nil
}

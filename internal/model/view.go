package model

import "time"

// TimeFormat is the wire format of projected timestamps: UTC with
// millisecond precision, as produced by JavaScript's Date.toISOString.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// EventView is the externally visible shape of an event, returned to
// callers and pushed to subscribers.
type EventView struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Start       string  `json:"start"`
	End         *string `json:"end"`
	Status      Status  `json:"status"`
	IsHidden    bool    `json:"isHidden"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

// Project converts a stored event into its public view. It never modifies e.
func Project(e *Event) *EventView {
	v := &EventView{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Start:       formatTime(e.Start),
		Status:      e.Status,
		IsHidden:    e.IsHidden,
	}
	if e.End != nil {
		end := formatTime(*e.End)
		v.End = &end
	}
	if !e.CreatedAt.IsZero() {
		v.CreatedAt = formatTime(e.CreatedAt)
	}
	return v
}

// ProjectAll projects each event in order. The result is never nil.
func ProjectAll(events []*Event) []*EventView {
	views := make([]*EventView, 0, len(events))
	for _, e := range events {
		views = append(views, Project(e))
	}
	return views
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

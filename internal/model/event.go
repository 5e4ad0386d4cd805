package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an event.
type Status string

const (
	StatusOccurring Status = "occurring"
	StatusResolved  Status = "resolved"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusOccurring, StatusResolved:
		return true
	}
	return false
}

// Event is an incident tracked on the board.
//
// End is set exactly when Status is resolved; ValidateEvent enforces that.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end"`
	Status      Status     `json:"status"`
	IsHidden    bool       `json:"isHidden"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Clone returns a deep copy of e.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.End != nil {
		end := *e.End
		c.End = &end
	}
	return &c
}

// SetStatus moves the event to status s and derives End from it: resolving
// an occurring event stamps End with now, reopening clears it, and
// resubmitting the current status leaves End alone.
func (e *Event) SetStatus(s Status, now time.Time) {
	switch s {
	case StatusResolved:
		if e.Status != StatusResolved || e.End == nil {
			t := now.UTC()
			e.End = &t
		}
	case StatusOccurring:
		e.End = nil
	}
	e.Status = s
}

// Less orders events by start, then creation time, then ID.
func Less(a, b *Event) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// timestampLayouts are tried in order by ParseTimestamp. Layouts without a
// zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 style timestamp as accepted for an
// event's start.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

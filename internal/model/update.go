package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// NewEventInput holds the caller-supplied fields of a new event.
type NewEventInput struct {
	Title       string `json:"title" validate:"nonblank,max=500"`
	Description string `json:"description" validate:"max=10000"`
	Start       string `json:"start" validate:"required"`
}

// EventUpdate is a partial update. Nil fields are left untouched.
//
// Its JSON form only carries the fields that are set. Decoding reports
// wrongly typed fields as a *ValidationError rather than a JSON error.
type EventUpdate struct {
	Status      *Status
	IsHidden    *bool
	Title       *string
	Description *string
	Start       *time.Time
}

// IsEmpty reports whether the update sets no field at all.
func (u EventUpdate) IsEmpty() bool {
	return u.Status == nil && u.IsHidden == nil && u.Title == nil && u.Description == nil && u.Start == nil
}

// Fields returns the JSON names of the fields the update sets.
func (u EventUpdate) Fields() []string {
	var names []string
	if u.Status != nil {
		names = append(names, "status")
	}
	if u.IsHidden != nil {
		names = append(names, "isHidden")
	}
	if u.Title != nil {
		names = append(names, "title")
	}
	if u.Description != nil {
		names = append(names, "description")
	}
	if u.Start != nil {
		names = append(names, "start")
	}
	return names
}

// Apply writes the set fields onto e. A status change goes through
// SetStatus so End stays consistent with it.
func (u EventUpdate) Apply(e *Event, now time.Time) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Start != nil {
		e.Start = u.Start.UTC()
	}
	if u.IsHidden != nil {
		e.IsHidden = *u.IsHidden
	}
	if u.Status != nil {
		e.SetStatus(*u.Status, now)
	}
}

// wireUpdate is the JSON shape of EventUpdate.
type wireUpdate struct {
	Status      *Status `json:"status,omitempty"`
	IsHidden    *bool   `json:"isHidden,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Start       *string `json:"start,omitempty"`
}

// MarshalJSON encodes only the fields that are set.
func (u EventUpdate) MarshalJSON() ([]byte, error) {
	w := wireUpdate{
		Status:      u.Status,
		IsHidden:    u.IsHidden,
		Title:       u.Title,
		Description: u.Description,
	}
	if u.Start != nil {
		s := u.Start.UTC().Format(time.RFC3339Nano)
		w.Start = &s
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a partial update. Unknown keys are ignored.
func (u *EventUpdate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*u = EventUpdate{}
	var ve ValidationError

	if v, ok := raw["status"]; ok {
		var s string
		if isNull(v) || json.Unmarshal(v, &s) != nil {
			ve.add("status", "must be a string")
		} else {
			st := Status(s)
			u.Status = &st
		}
	}
	if v, ok := raw["isHidden"]; ok {
		var b bool
		if isNull(v) || json.Unmarshal(v, &b) != nil {
			ve.add("isHidden", "must be a boolean")
		} else {
			u.IsHidden = &b
		}
	}
	if v, ok := raw["title"]; ok {
		var s string
		if isNull(v) || json.Unmarshal(v, &s) != nil {
			ve.add("title", "must be a string")
		} else {
			u.Title = &s
		}
	}
	if v, ok := raw["description"]; ok {
		var s string
		if isNull(v) || json.Unmarshal(v, &s) != nil {
			ve.add("description", "must be a string")
		} else {
			u.Description = &s
		}
	}
	if v, ok := raw["start"]; ok {
		var s string
		if isNull(v) || json.Unmarshal(v, &s) != nil {
			ve.add("start", "must be a string")
		} else if t, err := ParseTimestamp(s); err != nil {
			ve.add("start", "must be an ISO-8601 timestamp")
		} else {
			u.Start = &t
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

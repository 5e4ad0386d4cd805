package rpc

import "github.com/alfredjeanlab/eventboard/internal/model"

type ListEventsRequest struct{}

type ListEventsResponse struct {
	Events []*model.EventView `json:"events"`
}

type GetEventRequest struct {
	ID string `json:"id"`
}

type CreateEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
}

type EventResponse struct {
	Event *model.EventView `json:"event"`
}

type UpdateEventRequest struct {
	ID     string            `json:"id"`
	Update model.EventUpdate `json:"update"`
}

type UpdateEventResponse struct {
	Message string           `json:"message"`
	Event   *model.EventView `json:"event"`
}

type DeleteEventRequest struct {
	ID string `json:"id"`
}

type DeleteEventResponse struct {
	Message string `json:"message"`
}

// WatchRequest opens a notification stream. Empty Topics means all topics;
// Snapshot asks for the current list as the first message.
type WatchRequest struct {
	Topics   []string `json:"topics,omitempty"`
	Snapshot bool     `json:"snapshot,omitempty"`
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alfredjeanlab/eventboard/internal/model"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// handleListEvents handles GET /v1/events.
func (s *EventServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleGetEvent handles GET /v1/events/{id}.
func (s *EventServer) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCreateEvent handles POST /v1/events.
func (s *EventServer) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.NewEventInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := s.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleUpdateEvent handles PATCH /v1/events/{id}.
func (s *EventServer) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var u model.EventUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&u); err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			writeServiceError(w, ve)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := s.svc.Update(r.Context(), r.PathValue("id"), u)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msgUpdated,
		"event":   view,
	})
}

// handleDeleteEvent handles DELETE /v1/events/{id}.
func (s *EventServer) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msgDeleted})
}

package server

import (
	"errors"
	"log/slog"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/store"
)

// errorBody is the JSON shape of every HTTP error response.
type errorBody struct {
	Error   string             `json:"error"`
	Details []model.FieldError `json:"details,omitempty"`
}

// writeServiceError maps a service error to an HTTP response.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	var ue *store.UnavailableError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Error(), Details: ve.Errors})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.As(err, &ue):
		slog.Error("storage unavailable", "op", ue.Op, "error", ue.Err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// rpcError maps a service error to a gRPC status.
func rpcError(err error) error {
	var ve *model.ValidationError
	var ue *store.UnavailableError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Error())
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, "event not found")
	case errors.As(err, &ue):
		slog.Error("storage unavailable", "op", ue.Op, "error", ue.Err)
		return status.Error(codes.Unavailable, "storage unavailable")
	default:
		return status.Errorf(codes.Internal, "internal server error")
	}
}

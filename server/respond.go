package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gobeaver/docview"
	"github.com/gobeaver/docview/filetype"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error       string             `json:"error"`
	Message     docview.MessageKey `json:"message,omitempty"`
	MessageText string             `json:"messageText,omitempty"`
	Sniffed     string             `json:"sniffed,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError logs err and writes it with the overlay message it maps to.
// Client errors are logged at warn, server errors at error.
func respondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, "handler error", "error", err, "status", status)

	key := docview.MessageFor(err)
	respondJSON(w, status, errorResponse{
		Error:       err.Error(),
		Message:     key,
		MessageText: key.Text(),
	})
}

// statusFor maps viewer errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, docview.ErrNoFile):
		return http.StatusBadRequest
	case docview.IsNotExist(err):
		return http.StatusNotFound
	case errors.Is(err, docview.ErrIsDir), errors.Is(err, docview.ErrNotDir):
		return http.StatusBadRequest
	case errors.Is(err, docview.ErrNotAllowed):
		return http.StatusForbidden
	case docview.IsTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, docview.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, docview.ErrDownload):
		return http.StatusBadGateway
	case filetype.IsClassificationError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/runevault/ansuz/internal/apperr"
)

// Envelope is the uniform response shape of every API endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

func respondErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Envelope{Success: false, Message: message, Error: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// respondFor maps domain errors to status codes and error codes.
func respondFor(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		respondErr(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, apperr.ErrNotInitialized):
		respondErr(w, http.StatusServiceUnavailable, "not_initialized", "vault index not initialized")
	case errors.Is(err, apperr.ErrScanInProgress):
		respondErr(w, http.StatusConflict, "scan_in_progress", "scan already in progress")
	case errors.Is(err, apperr.ErrAlreadyExists):
		respondErr(w, http.StatusConflict, "already_exists", "note already exists")
	case errors.Is(err, apperr.ErrConflict):
		respondErr(w, http.StatusConflict, "conflict", "checksum mismatch")
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		respondErr(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

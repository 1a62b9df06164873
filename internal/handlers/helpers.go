package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/indago/internal/models"
)

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteKindError maps a pipeline error kind to an HTTP status and writes the
// error response.
func WriteKindError(w http.ResponseWriter, err error) error {
	status := http.StatusInternalServerError
	switch models.KindOf(err) {
	case models.ErrInputInvalid:
		status = http.StatusBadRequest
	case models.ErrNotFound:
		status = http.StatusNotFound
	case models.ErrBackpressure:
		status = http.StatusTooManyRequests
	case models.ErrExternalUnavailable, models.ErrExternalTimeout:
		status = http.StatusBadGateway
	}
	return WriteError(w, status, err.Error())
}

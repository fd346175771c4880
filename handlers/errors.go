package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Strum355/log"
)

type apiError struct {
	err     error
	message string
	status  int
}

// Handle logs the error and responds with it as JSON
func (e *apiError) Handle(w http.ResponseWriter) {
	if e.status >= http.StatusInternalServerError {
		log.WithError(e.err).Error(e.message)
	} else {
		log.Info(e.message + ": " + e.err.Error())
	}
	writeJSON(w, e.status, map[string]string{"error": e.message})
}

func badRequest(err error, message string) *apiError {
	return &apiError{err: err, message: message, status: http.StatusBadRequest}
}

func notFound(err error, message string) *apiError {
	return &apiError{err: err, message: message, status: http.StatusNotFound}
}

func internal(err error, message string) *apiError {
	return &apiError{err: err, message: message, status: http.StatusInternalServerError}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to write response")
	}
}

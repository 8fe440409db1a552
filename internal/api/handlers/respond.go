package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/manuscript-be/internal/errs"
	"github.com/rs/zerolog/log"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"message": msg})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched so
// that field validation reports what is missing.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// errorMessages names the client-facing text for each error class of one endpoint.
type errorMessages struct {
	notFound string
	conflict string
	failure  string
}

// respondServiceError maps a service error onto the HTTP error table. Storage
// and unknown failures are logged and reported without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, msgs errorMessages) {
	if ve, ok := errs.AsValidation(err); ok {
		respondError(w, http.StatusBadRequest, ve.Msg)
		return
	}

	switch {
	case errors.Is(err, errs.ErrNotFound) && msgs.notFound != "":
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Resource not found")
		respondError(w, http.StatusNotFound, msgs.notFound)
	case errors.Is(err, errs.ErrConflict) && msgs.conflict != "":
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Conflicting write rejected")
		respondError(w, http.StatusBadRequest, msgs.conflict)
	case errors.Is(err, errs.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(msgs.failure)
		respondError(w, http.StatusInternalServerError, msgs.failure)
	}
}

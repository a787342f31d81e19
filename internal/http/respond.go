package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"spendbook/internal/core"
)

// Every response carries either a data or an error member, never both.
type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

func respondData(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dataEnvelope{Data: v})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: msg})
}

// respondServiceError maps the access-layer error taxonomy onto HTTP status
// codes. Unknown errors are reported as opaque 500s.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, core.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, core.ErrNotFound):
		respondError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrDateFormat):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"url", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KaramelBytes/segmenta/internal/apperr"
)

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.ErrFormat, apperr.ErrColumnSelection, apperr.ErrInvalidK, apperr.ErrPreprocessing, apperr.ErrBadRequest:
		return http.StatusBadRequest
	case apperr.ErrPrecondition:
		return http.StatusConflict
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrPersistence:
		return http.StatusBadGateway
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Status string `json:"status"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := errorBody{Status: "error", Error: err.Error()}
	if k := apperr.KindOf(err); k != nil {
		body.Kind = k.Error()
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

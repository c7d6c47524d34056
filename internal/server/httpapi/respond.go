package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/server/services"
)

const (
	msgCredentials = "Could not validate credentials"
	msgUnavailable = "Service temporarily unavailable"
	msgInternal    = "Internal server error"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrorNotFound) }

func (s *Server) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, msgCredentials)
}

// fail maps err to a status and a {"detail": ...} body. msg overrides the
// default detail of 401 and 404 responses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verr *services.ValidationError

	switch {
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		if msg == "" {
			s.unauthorized(w)
			return
		}
		writeDetail(w, http.StatusUnauthorized, msg)
	case errors.Is(err, common.ErrorNotFound):
		if msg == "" {
			msg = "Not found"
		}
		writeDetail(w, http.StatusNotFound, msg)
	case errors.As(err, &verr):
		writeDetail(w, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, common.ErrorAlreadyExists):
		writeDetail(w, http.StatusBadRequest, "Username already exists")
	case errors.Is(err, common.ErrorValidation):
		writeDetail(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, common.ErrStorageUnavailable):
		s.log.Error(r.Context(), "storage unavailable", "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusServiceUnavailable, msgUnavailable)
	default:
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgInternal)
	}
}

// maxJSONBody bounds the size of JSON request bodies.
const maxJSONBody = 1 << 20

// decode reads a JSON body of at most maxJSONBody bytes into v, answering
// 413 or 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/justlikeclockwork/clockwork/internal/server/services"
)

const msgImageNotFound = "Image not found"

// multipartOverhead bounds the non-file bytes of an upload request.
const multipartOverhead = 1 << 20

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	sid, ok := pathID(w, r, "sid", msgLapNotFound)
	if !ok {
		return
	}
	lid, ok := pathID(w, r, "lid", msgLapNotFound)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxImageSize+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusBadRequest, "File too large. Max size: 10.0MB")
			return
		}
		writeDetail(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	// One byte past the limit is enough for the size check.
	data, err := io.ReadAll(io.LimitReader(file, services.MaxImageSize+1))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Could not read file")
		return
	}

	v, err := s.images.Upload(r.Context(), userID, sid, lid, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.fail(w, r, err, msgLapNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toImage(*v))
}

func (s *Server) handleLapImages(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	sid, ok := pathID(w, r, "sid", msgLapNotFound)
	if !ok {
		return
	}
	lid, ok := pathID(w, r, "lid", msgLapNotFound)
	if !ok {
		return
	}

	list, err := s.images.ListForLap(r.Context(), userID, sid, lid)
	if err != nil {
		s.fail(w, r, err, msgLapNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toImages(list))
}

func (s *Server) handleSessionImages(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	sid, ok := pathID(w, r, "sid", msgSessionNotFound)
	if !ok {
		return
	}

	list, err := s.images.ListForSession(r.Context(), userID, sid)
	if err != nil {
		s.fail(w, r, err, msgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toImages(list))
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	id, err := uuid.Parse(r.PathValue("imageID"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgImageNotFound)
		return
	}

	if err := s.images.Delete(r.Context(), userID, id); err != nil {
		s.fail(w, r, err, msgImageNotFound)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Image deleted successfully"})
}

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/justlikeclockwork/clockwork/internal/server/services"
	"github.com/justlikeclockwork/clockwork/internal/timex"
)

const (
	msgSessionNotFound = "Session not found"
	msgLapNotFound     = "Lap not found"
)

// pathID reads a positive integer path value, answering 404 itself when
// it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusNotFound, notFound)
		return 0, false
	}
	return id, true
}

// queryTime parses an optional query timestamp; empty input is fine.
func queryTime(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, ok := timex.ParseFlexible(s)
	if !ok {
		return nil, false
	}
	return &t, true
}

func parseListQuery(r *http.Request) (services.ListQuery, string) {
	var q services.ListQuery
	v := r.URL.Query()

	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > services.MaxSessionLimit {
			return q, "limit must be between 1 and 100"
		}
		q.Limit = n
	}
	if s := v.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, "offset must be a non-negative integer"
		}
		q.Offset = n
	}
	var ok bool
	if q.StartDate, ok = queryTime(v.Get("start_date")); !ok {
		return q, "start_date must be a datetime"
	}
	if q.EndDate, ok = queryTime(v.Get("end_date")); !ok {
		return q, "end_date must be a datetime"
	}
	if s := v.Get("is_completed"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return q, "is_completed must be a boolean"
		}
		q.IsCompleted = &b
	}
	return q, ""
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	var req createSessionRequest
	if !decode(w, r, &req) {
		return
	}

	d, err := s.sessions.Create(r.Context(), userID, services.SessionInput{
		Name:        req.SessionName,
		Description: req.Description,
		StartedAt:   deref(req.StartedAt),
	})
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, toSessionDetail(d))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	q, msg := parseListQuery(r)
	if msg != "" {
		writeDetail(w, http.StatusBadRequest, msg)
		return
	}

	list, err := s.sessions.List(r.Context(), userID, q)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	out := make([]sessionResponse, 0, len(list))
	for _, sess := range list {
		out = append(out, toSession(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLatestSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	d, err := s.sessions.Latest(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, "No sessions found")
		return
	}
	writeJSON(w, http.StatusOK, toSessionDetail(d))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	id, ok := pathID(w, r, "id", msgSessionNotFound)
	if !ok {
		return
	}

	d, err := s.sessions.Get(r.Context(), userID, id)
	if err != nil {
		s.fail(w, r, err, msgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDetail(d))
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	id, ok := pathID(w, r, "id", msgSessionNotFound)
	if !ok {
		return
	}

	var req updateSessionRequest
	if !decode(w, r, &req) {
		return
	}

	d, err := s.sessions.Update(r.Context(), userID, id, services.SessionUpdate{
		Name:          req.SessionName,
		Description:   req.Description,
		EndedAt:       req.EndedAt,
		TotalDuration: req.TotalDuration,
		IsCompleted:   req.IsCompleted,
	})
	if err != nil {
		s.fail(w, r, err, msgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDetail(d))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	id, ok := pathID(w, r, "id", msgSessionNotFound)
	if !ok {
		return
	}

	if err := s.sessions.Delete(r.Context(), userID, id); err != nil {
		s.fail(w, r, err, msgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Session deleted successfully"})
}

func (s *Server) handleCreateLap(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	id, ok := pathID(w, r, "id", msgSessionNotFound)
	if !ok {
		return
	}

	var req createLapRequest
	if !decode(w, r, &req) {
		return
	}

	d, err := s.sessions.CreateLap(r.Context(), userID, id, services.LapInput{
		Name:      req.LapName,
		StartedAt: deref(req.StartedAt),
	})
	if err != nil {
		s.fail(w, r, err, msgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toLap(*d))
}

func (s *Server) handleUpdateLap(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	sid, ok := pathID(w, r, "id", msgLapNotFound)
	if !ok {
		return
	}
	lid, ok := pathID(w, r, "lapID", msgLapNotFound)
	if !ok {
		return
	}

	var req updateLapRequest
	if !decode(w, r, &req) {
		return
	}

	d, err := s.sessions.UpdateLap(r.Context(), userID, sid, lid, services.LapUpdate{
		Name:     req.LapName,
		EndedAt:  req.EndedAt,
		Duration: req.Duration,
	})
	if err != nil {
		s.fail(w, r, err, msgLapNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toLap(*d))
}

func (s *Server) handleDeleteLap(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	sid, ok := pathID(w, r, "id", msgLapNotFound)
	if !ok {
		return
	}
	lid, ok := pathID(w, r, "lapID", msgLapNotFound)
	if !ok {
		return
	}

	if err := s.sessions.DeleteLap(r.Context(), userID, sid, lid); err != nil {
		s.fail(w, r, err, msgLapNotFound)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Lap deleted successfully"})
}

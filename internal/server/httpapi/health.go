package httpapi

import (
	"context"
	"net/http"
	"time"
)

const readyTimeout = 2 * time.Second

type statusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) timestamp() string { return s.now().UTC().Format(time.RFC3339Nano) }

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":        "Just Like Clockwork Backend",
		"description": "Time tracking backend API",
		"version":     s.version,
		"status":      "running",
		"timestamp":   s.timestamp(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "healthy", Timestamp: s.timestamp()})
}

// handleReady reports ready only while the database answers pings.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			s.log.Warn(r.Context(), "readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable", Timestamp: s.timestamp()})
			return
		}
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready", Timestamp: s.timestamp()})
}

package httpapi

import "net/http"

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	st, err := s.settings.Get(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, toSettings(st))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	var req updateSettingsRequest
	if !decode(w, r, &req) {
		return
	}

	st, err := s.settings.Update(r.Context(), userID, req.patch())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, toSettings(st))
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	if err := s.settings.Reset(r.Context(), userID); err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Settings reset to defaults"})
}

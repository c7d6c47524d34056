package httpapi

import (
	"net/http"
	"unicode/utf8"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 100
	minPasswordLen = 6
)

func validateSignup(req credentialsRequest) string {
	if n := utf8.RuneCountInString(req.Username); n < minUsernameLen || n > maxUsernameLen {
		return "Username must be between 3 and 100 characters"
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLen {
		return "Password must be at least 6 characters"
	}
	return ""
}

// handleLogin serves POST /api/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}

	_, pair, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err, "Invalid username or password")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Message:      "Login successful",
	})
}

// handleSignup serves POST /api/auth/signup.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := validateSignup(req); msg != "" {
		writeDetail(w, http.StatusBadRequest, msg)
		return
	}

	_, pair, err := s.auth.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Message:      "Account created successfully",
	})
}

// handleRefresh serves POST /api/auth/refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}

	access, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.fail(w, r, err, "Invalid or expired refresh token")
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access})
}

// handleLogout serves POST /api/auth/logout. Unknown tokens succeed too.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}

	if _, err := s.auth.Revoke(r.Context(), req.RefreshToken); err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Logged out successfully"})
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	n, err := s.auth.RevokeAll(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out from all devices",
		"revoked": n,
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if utf8.RuneCountInString(req.NewPassword) < minPasswordLen {
		writeDetail(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	if err := s.auth.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		s.fail(w, r, err, "Invalid password")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Password changed"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	u, err := s.auth.GetUser(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: u.ID, Username: u.UserName, CreatedAt: isoTime(&u.CreatedAt)})
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"spendbook/internal/identity"
)

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(payload.Username)
	if username == "" || payload.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, session, err := s.sessions.Login(r.Context(), username, payload.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.respondServiceError(w, r, err)
		return
	}

	http.SetCookie(w, s.sessionCookie(session.Token, s.sessionTTL))

	s.logger.InfoContext(r.Context(), "User logged in", "username", user.Username)
	respondData(w, http.StatusOK, userView{ID: user.ID, Username: user.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		token = cookie.Value
	}

	if err := s.sessions.Logout(r.Context(), token); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	// Expire the cookie regardless of whether a session existed.
	http.SetCookie(w, s.sessionCookie("", -time.Hour))
	respondData(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

func (s *Server) sessionCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

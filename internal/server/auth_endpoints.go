package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/treefix50/soundboard/internal/auth"
)

// handleAuthLogin exchanges the admin password for a bearer token.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusNotImplemented, "authentication not enabled")
		return
	}

	if ok, wait := s.limiter.Allow(clientKey(r)); !ok {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(wait.Seconds()))))
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var payload struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if strings.TrimSpace(payload.Password) == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	session, err := s.auth.Login(r.Context(), payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrNoPassword) {
			s.logger.Warn("login rejected", slog.String("client", clientKey(r)))
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// handleAuthLogout drops the caller's session.
func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusNotImplemented, "authentication not enabled")
		return
	}

	token := extractToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}
	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireAuth rejects requests without a valid session when auth is on.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		token := extractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}
		if _, err := s.auth.ValidateSession(r.Context(), token); err != nil {
			if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			s.writeFailure(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

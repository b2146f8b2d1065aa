// ABOUTME: External platform proxy endpoints for the development backend
// ABOUTME: Keeps one platform token per user with an expiry that refresh extends

package backend

import (
	"net/http"
	"strings"
	"time"

	"github.com/2389/tso-console/internal/auth"
)

type tokenInfoResponse struct {
	LastUpdated time.Time  `json:"lastUpdated"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	TokenExists bool       `json:"tokenExists"`
	Message     string     `json:"message"`
	Success     bool       `json:"success"`
}

func (s *Server) handleSaveExternalToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Authorization string `json:"authorization"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Authorization) == "" {
		writeError(w, http.StatusBadRequest, "authorization is required")
		return
	}

	username := auth.FromContext(r.Context()).Username
	now := s.now().UTC()
	tok := externalToken{
		token:       req.Authorization,
		lastUpdated: now,
		expiresAt:   now.Add(ExternalTokenTTL),
	}

	s.mu.Lock()
	s.external[username] = tok
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "token saved",
		"expiresAt": tok.expiresAt,
	})
}

func (s *Server) handleRefreshExternalToken(w http.ResponseWriter, r *http.Request) {
	username := auth.FromContext(r.Context()).Username
	now := s.now().UTC()

	s.mu.Lock()
	tok, ok := s.external[username]
	if ok {
		tok.lastUpdated = now
		tok.expiresAt = now.Add(ExternalTokenTTL)
		s.external[username] = tok
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "no external platform token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "token refreshed",
		"expiresAt": tok.expiresAt,
	})
}

func (s *Server) handleExternalInfo(w http.ResponseWriter, r *http.Request) {
	username := auth.FromContext(r.Context()).Username

	s.mu.RLock()
	tok, ok := s.external[username]
	s.mu.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, "no external platform token")
		return
	}
	if !s.now().Before(tok.expiresAt) {
		writeError(w, http.StatusUnauthorized, "external platform token expired")
		return
	}

	expires := tok.expiresAt
	writeJSON(w, http.StatusOK, tokenInfoResponse{
		LastUpdated: tok.lastUpdated,
		ExpiresAt:   &expires,
		TokenExists: true,
		Message:     "success",
		Success:     true,
	})
}

// ABOUTME: Auth and system endpoint handlers for the development backend
// ABOUTME: Login, registration, current user, setup status, initialization, and config updates

package backend

import (
	"errors"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/2389/tso-console/internal/auth"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		s.logger.Info("login rejected", "username", req.Username)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	token, err := s.verifier.Generate(id.Username, s.cfg.TokenTTL)
	if err != nil {
		s.logger.Error("issuing token", "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"username": id.Username,
		"isAdmin":  id.Admin,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.users.Register(req.Username, req.Password)
	switch {
	case errors.Is(err, ErrInvalidUser):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrUserExists):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("registering user", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	s.logger.Info("user registered", "username", req.Username, "user_id", id)
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "registration successful",
		"id":      id,
	})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"username": id.Username,
		"isAdmin":  id.Admin,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	configured := s.configured
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]bool{"configured": configured})
}

func (s *Server) handleRequiredConfigs(w http.ResponseWriter, r *http.Request) {
	required := s.cfg.RequiredConfigs
	if required == nil {
		required = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"required": required})
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var configs map[string]string
	if err := decodeBody(r, &configs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var missing []string
	for _, key := range s.cfg.RequiredConfigs {
		if strings.TrimSpace(configs[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "missing required configs: "+strings.Join(missing, ", "))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.configured {
		writeError(w, http.StatusConflict, "system already initialized")
		return
	}
	for k, v := range configs {
		s.settings[k] = v
	}
	s.configured = true

	keys := make([]string, 0, len(configs))
	for k := range configs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s.logger.Info("system initialized", "keys", keys)
	writeJSON(w, http.StatusOK, map[string]string{"message": "system initialized"})
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	if slices.Contains(s.cfg.RequiredConfigs, req.Key) && strings.TrimSpace(req.Value) == "" {
		writeError(w, http.StatusBadRequest, req.Key+" cannot be empty")
		return
	}

	s.mu.Lock()
	s.settings[req.Key] = req.Value
	s.mu.Unlock()

	s.logger.Info("config updated", "key", req.Key, "by", auth.FromContext(r.Context()).Username)
	writeJSON(w, http.StatusOK, map[string]string{"message": "config updated"})
}

// Setting returns a stored config value
func (s *Server) Setting(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	return v, ok
}

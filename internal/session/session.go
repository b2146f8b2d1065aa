// ABOUTME: Session service: login, logout, registration, and current-user refresh
// ABOUTME: Owns the session keys in the credential store and builds auth headers for every collaborator

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/tso-console/internal/apiclient"
	"github.com/2389/tso-console/internal/kv"
)

// Credential store keys owned by the session service
const (
	KeyToken     = "token"
	KeyUsername  = "username"
	KeyIsAdmin   = "isAdmin"
	KeyLoginTime = "loginTime"
)

// Keys lists every key Logout clears
var Keys = []string{KeyToken, KeyUsername, KeyIsAdmin, KeyLoginTime}

// ErrMissingToken is wrapped in an AuthError when a login succeeds without a token
var ErrMissingToken = errors.New("login response did not include a token")

// Session is the client-held view of the authenticated user
type Session struct {
	Token     string
	Username  string
	IsAdmin   bool
	LoginTime time.Time
}

// LoggedIn reports whether both token and username are present
func (s Session) LoggedIn() bool {
	return s.Token != "" && s.Username != ""
}

// AuthError wraps a failed login or registration. The backend error is kept
// unmodified and reachable through errors.As / errors.Is.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RegistrationResult is whatever the backend returned for a registration
type RegistrationResult struct {
	Message string
	Raw     json.RawMessage
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string `json:"token"`
	IsAdmin *bool  `json:"isAdmin"`
}

type userResponse struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	Token    string `json:"token"`
}

// Service is the only writer of the session keys. Concurrent Login/Logout calls
// are last-write-wins.
type Service struct {
	api    *apiclient.Client
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a session service over api and store
func NewService(api *apiclient.Client, store kv.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:    api,
		store:  store,
		logger: logger.With("component", "session"),
		now:    time.Now,
	}
}

// Login authenticates against the backend and persists the resulting session.
// Backend and network errors are returned inside an AuthError; nothing is retried.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	var resp loginResponse
	if err := s.api.Post(ctx, "/auth/login", credentials{Username: username, Password: password}, nil, &resp); err != nil {
		return nil, &AuthError{Op: "login", Err: err}
	}
	if resp.Token == "" {
		return nil, &AuthError{Op: "login", Err: ErrMissingToken}
	}

	sess := Session{
		Token:     resp.Token,
		Username:  username,
		IsAdmin:   resp.IsAdmin != nil && *resp.IsAdmin,
		LoginTime: s.now().UTC().Truncate(time.Second),
	}

	if err := s.persist(ctx, sess, resp.IsAdmin != nil); err != nil {
		// Never leave a half-written session behind.
		if clearErr := s.store.Clear(ctx, Keys...); clearErr != nil {
			s.logger.Error("clearing partial session", "error", clearErr)
		}
		return nil, fmt.Errorf("storing session: %w", err)
	}

	s.logger.Info("logged in", "username", username, "admin", sess.IsAdmin)
	return &sess, nil
}

func (s *Service) persist(ctx context.Context, sess Session, hasAdmin bool) error {
	if err := s.store.Set(ctx, KeyUsername, sess.Username); err != nil {
		return err
	}
	if err := s.store.Set(ctx, KeyToken, sess.Token); err != nil {
		return err
	}
	if err := s.store.Set(ctx, KeyLoginTime, sess.LoginTime.Format(time.RFC3339)); err != nil {
		return err
	}
	if hasAdmin {
		return s.store.Set(ctx, KeyIsAdmin, strconv.FormatBool(sess.IsAdmin))
	}
	// An absent flag must not inherit a previous user's admin status.
	return s.store.Clear(ctx, KeyIsAdmin)
}

// Register forwards a registration to the backend. The user still has to log in.
func (s *Service) Register(ctx context.Context, username, password string) (*RegistrationResult, error) {
	var raw json.RawMessage
	if err := s.api.Post(ctx, "/auth/register", credentials{Username: username, Password: password}, nil, &raw); err != nil {
		return nil, &AuthError{Op: "register", Err: err}
	}

	result := &RegistrationResult{Raw: raw}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		result.Message = body.Message
	}
	return result, nil
}

// Logout clears every session key. It is idempotent and makes no backend call.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx, Keys...); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

// Current returns the stored session. Store read errors yield empty fields.
func (s *Service) Current(ctx context.Context) Session {
	sess := Session{
		Token:    s.get(ctx, KeyToken),
		Username: s.get(ctx, KeyUsername),
		IsAdmin:  s.get(ctx, KeyIsAdmin) == "true",
	}
	if raw := s.get(ctx, KeyLoginTime); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			sess.LoginTime = t
		}
	}
	return sess
}

// IsLoggedIn is true iff both token and username are stored
func (s *Service) IsLoggedIn(ctx context.Context) bool {
	return s.get(ctx, KeyToken) != "" && s.get(ctx, KeyUsername) != ""
}

// IsAdmin reads the cached admin flag; it is not re-validated against the backend
func (s *Service) IsAdmin(ctx context.Context) bool {
	return s.get(ctx, KeyIsAdmin) == "true"
}

// FetchCurrentUser refreshes username and admin flag from the backend.
// Any failure returns nil and leaves the stored session untouched.
func (s *Service) FetchCurrentUser(ctx context.Context) *Session {
	var resp userResponse
	if err := s.api.Get(ctx, "/auth/user", s, &resp); err != nil {
		s.logger.Warn("fetching current user", "error", err)
		return nil
	}
	if resp.Username == "" {
		s.logger.Warn("fetching current user", "error", "response missing username")
		return nil
	}

	writes := []struct{ key, value string }{
		{KeyUsername, resp.Username},
		{KeyIsAdmin, strconv.FormatBool(resp.IsAdmin)},
	}
	if resp.Token != "" {
		writes = append(writes, struct{ key, value string }{KeyToken, resp.Token})
	}

	var written []storedValue
	for _, w := range writes {
		prev, ok, err := s.store.Get(ctx, w.key)
		if err == nil {
			err = s.store.Set(ctx, w.key, w.value)
		}
		if err != nil {
			s.logger.Warn("storing refreshed user", "key", w.key, "error", err)
			s.restore(ctx, written)
			return nil
		}
		written = append(written, storedValue{key: w.key, value: prev, present: ok})
	}

	sess := s.Current(ctx)
	return &sess
}

type storedValue struct {
	key     string
	value   string
	present bool
}

// restore puts back values overwritten by a refresh that failed part way
func (s *Service) restore(ctx context.Context, prev []storedValue) {
	for i := len(prev) - 1; i >= 0; i-- {
		p := prev[i]
		var err error
		if p.present {
			err = s.store.Set(ctx, p.key, p.value)
		} else {
			err = s.store.Clear(ctx, p.key)
		}
		if err != nil {
			s.logger.Error("restoring session after failed refresh", "key", p.key, "error", err)
		}
	}
}

// AuthHeader returns "Authorization: Bearer <token>" when a token is stored,
// otherwise an empty header. Service satisfies apiclient.Authorizer.
func (s *Service) AuthHeader(ctx context.Context) http.Header {
	h := http.Header{}
	if token := s.get(ctx, KeyToken); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func (s *Service) get(ctx context.Context, key string) string {
	v, _, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("reading credential store", "key", key, "error", err)
		return ""
	}
	return v
}

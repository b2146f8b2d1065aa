// ABOUTME: External platform service: token storage, connection checks, and a bounded connection log
// ABOUTME: Every request carries the console session's auth header

package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/tso-console/internal/apiclient"
	"github.com/2389/tso-console/internal/kv"
)

// Credential store keys owned by the external platform service
const (
	KeyToken          = "external_platform_token"
	KeyTokenInfo      = "external_platform_token_info"
	KeyConnectionLogs = "external_platform_connection_logs"
)

// MaxLogs bounds the stored connection log
const MaxLogs = 50

// RefreshWindow is how close to expiry a token must be before auto refresh renews it
const RefreshWindow = 24 * time.Hour

// Connection log statuses
const (
	LogInfo    = "info"
	LogSuccess = "success"
	LogError   = "error"
)

// TokenInfo is the non-secret metadata kept about the platform token
type TokenInfo struct {
	LastUpdated time.Time  `json:"lastUpdated"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	TokenExists bool       `json:"tokenExists"`
}

// ConnectionLog is one entry of the connection history, newest first
type ConnectionLog struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
}

// ConnectionStatus is the outcome of CheckConnection
type ConnectionStatus struct {
	Connected   bool
	LastChecked time.Time
	Details     json.RawMessage
	Error       string
}

// SaveResult is the backend response to SaveToken
type SaveResult struct {
	ExpiresAt *time.Time `json:"expiresAt"`
	Message   string     `json:"message"`
}

// Service talks to the external platform proxy
type Service struct {
	api    *apiclient.Client
	auth   apiclient.Authorizer
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an external platform service
func NewService(api *apiclient.Client, auth apiclient.Authorizer, store kv.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:    api,
		auth:   auth,
		store:  store,
		logger: logger.With("component", "external"),
		now:    time.Now,
	}
}

// SaveToken hands the token to the backend for safekeeping, then records it locally
func (s *Service) SaveToken(ctx context.Context, token string) (*SaveResult, error) {
	var resp SaveResult
	if err := s.api.Post(ctx, "/external-platform/token", map[string]string{"authorization": token}, s.auth, &resp); err != nil {
		s.logger.Error("saving token", "error", err)
		return nil, err
	}

	info := TokenInfo{
		LastUpdated: s.now().UTC(),
		ExpiresAt:   resp.ExpiresAt,
		TokenExists: true,
	}
	if err := s.store.Set(ctx, KeyToken, token); err != nil {
		return nil, fmt.Errorf("storing token: %w", err)
	}
	if err := s.putJSON(ctx, KeyTokenInfo, info); err != nil {
		return nil, fmt.Errorf("storing token info: %w", err)
	}
	s.AddConnectionLog(ctx, ConnectionLog{Status: LogInfo, Message: "Token updated successfully"})
	return &resp, nil
}

// TokenInfo prefers the backend's view and falls back to the cached copy.
// Returns nil when neither is available.
func (s *Service) TokenInfo(ctx context.Context) *TokenInfo {
	var info TokenInfo
	err := s.api.Get(ctx, "/user/info", s.auth, &info)
	if err == nil {
		if err := s.putJSON(ctx, KeyTokenInfo, info); err != nil {
			s.logger.Warn("caching token info", "error", err)
		}
		return &info
	}
	s.logger.Warn("fetching token info, using cached copy", "error", err)

	var cached TokenInfo
	ok, err := s.getJSON(ctx, KeyTokenInfo, &cached)
	if err != nil {
		s.logger.Warn("reading cached token info", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &cached
}

// CheckConnection never fails; the outcome is reported in the status
func (s *Service) CheckConnection(ctx context.Context) ConnectionStatus {
	var details json.RawMessage
	err := s.api.Get(ctx, "/user/info", s.auth, &details)
	st := ConnectionStatus{LastChecked: s.now().UTC()}
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Connected = true
	st.Details = details
	return st
}

// TestConnection probes the platform, logs the outcome, and returns the raw response
func (s *Service) TestConnection(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/user/info", s.auth, &raw); err != nil {
		s.AddConnectionLog(ctx, ConnectionLog{Status: LogError, Message: "Connection test failed: " + err.Error()})
		return nil, err
	}

	var body struct {
		Message string `json:"message"`
		Success bool   `json:"success"`
	}
	_ = json.Unmarshal(raw, &body)

	entry := ConnectionLog{Status: LogError, Message: body.Message}
	if body.Success || body.Message == "success" {
		entry.Status = LogSuccess
	}
	if entry.Message == "" {
		if entry.Status == LogSuccess {
			entry.Message = "Connection successful"
		} else {
			entry.Message = "Connection failed"
		}
	}
	s.AddConnectionLog(ctx, entry)
	return raw, nil
}

// ConnectionLogs returns the stored log, newest first
func (s *Service) ConnectionLogs(ctx context.Context) []ConnectionLog {
	var logs []ConnectionLog
	if _, err := s.getJSON(ctx, KeyConnectionLogs, &logs); err != nil {
		s.logger.Warn("reading connection logs", "error", err)
		return []ConnectionLog{}
	}
	if logs == nil {
		return []ConnectionLog{}
	}
	return logs
}

// AddConnectionLog prepends entry and trims the log to MaxLogs.
// A zero Timestamp is set to now.
func (s *Service) AddConnectionLog(ctx context.Context, entry ConnectionLog) []ConnectionLog {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	logs := append([]ConnectionLog{entry}, s.ConnectionLogs(ctx)...)
	if len(logs) > MaxLogs {
		logs = logs[:MaxLogs]
	}
	if err := s.putJSON(ctx, KeyConnectionLogs, logs); err != nil {
		s.logger.Warn("storing connection logs", "error", err)
	}
	return logs
}

// ClearConnectionLogs drops the stored log
func (s *Service) ClearConnectionLogs(ctx context.Context) error {
	return s.store.Clear(ctx, KeyConnectionLogs)
}

// RefreshIfExpiring renews the token when it expires within RefreshWindow.
// Reports whether a refresh was attempted.
func (s *Service) RefreshIfExpiring(ctx context.Context) (bool, error) {
	info := s.TokenInfo(ctx)
	if info == nil || info.ExpiresAt == nil {
		return false, nil
	}
	if info.ExpiresAt.Sub(s.now()) >= RefreshWindow {
		return false, nil
	}

	s.logger.Info("token expiring soon, refreshing", "expires_at", info.ExpiresAt)
	if err := s.api.Post(ctx, "/external-platform/refresh-token", struct{}{}, s.auth, nil); err != nil {
		s.AddConnectionLog(ctx, ConnectionLog{Status: LogError, Message: "Auto-refresh failed: " + err.Error()})
		return true, err
	}
	s.TokenInfo(ctx)
	s.AddConnectionLog(ctx, ConnectionLog{Status: LogInfo, Message: "Token automatically refreshed"})
	return true, nil
}

// RunAutoRefresh calls RefreshIfExpiring every interval until ctx is done.
// Failures are logged and the loop continues.
func (s *Service) RunAutoRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RefreshIfExpiring(ctx); err != nil {
				s.logger.Error("auto refresh failed", "error", err)
			}
		}
	}
}

func (s *Service) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, key, string(data))
}

func (s *Service) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// ABOUTME: System status service for first-time setup and configuration updates
// ABOUTME: Status reads fail open to "not configured"; mutating calls surface errors to the caller

package system

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/2389/tso-console/internal/apiclient"
)

// Status is the backend's view of whether first-time setup has completed.
// It is never cached client-side.
type Status struct {
	Configured         bool     `json:"configured"`
	RequiredConfigKeys []string `json:"required,omitempty"`
}

// Result is the backend response to a mutating call
type Result struct {
	Message string
	Raw     json.RawMessage
}

// Service wraps the /system endpoints
type Service struct {
	api    *apiclient.Client
	auth   apiclient.Authorizer
	logger *slog.Logger
}

// NewService creates a system service. auth supplies the header for UpdateConfig.
func NewService(api *apiclient.Client, auth apiclient.Authorizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:    api,
		auth:   auth,
		logger: logger.With("component", "system"),
	}
}

// Status fetches the configured flag and reports failures. The request is
// unauthenticated because an unconfigured system has no users yet.
func (s *Service) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := s.api.Get(ctx, "/system/status", nil, &st); err != nil {
		return Status{}, fmt.Errorf("fetching system status: %w", err)
	}
	return st, nil
}

// GetSystemStatus is Status with the fail-open policy: any failure reads as
// "not configured" so the user is routed toward setup instead of a dead end.
func (s *Service) GetSystemStatus(ctx context.Context) Status {
	st, err := s.Status(ctx)
	if err != nil {
		s.logger.Warn("system status unavailable, assuming not configured", "error", err)
		return Status{Configured: false}
	}
	return st
}

// GetRequiredConfigs lists the configuration keys setup must supply.
// Failures yield an empty list.
func (s *Service) GetRequiredConfigs(ctx context.Context) []string {
	var resp struct {
		Required []string `json:"required"`
	}
	if err := s.api.Get(ctx, "/system/required-configs", nil, &resp); err != nil {
		s.logger.Warn("fetching required configs", "error", err)
		return []string{}
	}
	if resp.Required == nil {
		return []string{}
	}
	return resp.Required
}

// InitializeSystem submits the first-time configuration. Errors are returned
// unchanged so the admin performing setup sees them.
func (s *Service) InitializeSystem(ctx context.Context, configs map[string]string) (*Result, error) {
	var raw json.RawMessage
	if err := s.api.Post(ctx, "/system/initialize", configs, nil, &raw); err != nil {
		s.logger.Error("initializing system", "error", err)
		return nil, err
	}
	return newResult(raw), nil
}

// UpdateConfig changes one configuration key. Requires an admin session.
func (s *Service) UpdateConfig(ctx context.Context, key, value string) (*Result, error) {
	body := map[string]string{"key": key, "value": value}
	var raw json.RawMessage
	if err := s.api.Post(ctx, "/system/config", body, s.auth, &raw); err != nil {
		s.logger.Error("updating config", "key", key, "error", err)
		return nil, err
	}
	return newResult(raw), nil
}

func newResult(raw json.RawMessage) *Result {
	r := &Result{Raw: raw}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		r.Message = body.Message
	}
	return r
}

// ABOUTME: Tests for HTTP authentication middleware
// ABOUTME: Covers token extraction, validation, identity lookup, and admin gate

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockUsers map[string]*Identity

func (m mockUsers) LookupIdentity(_ context.Context, subject string) (*Identity, error) {
	if id, ok := m[subject]; ok {
		return id, nil
	}
	return nil, errors.New("not found")
}

func TestHTTPAuthMiddleware(t *testing.T) {
	verifier := newVerifier(t, testSecret)
	valid, _ := verifier.Generate("alice", time.Hour)
	expired, _ := verifier.Generate("alice", -time.Hour)
	ghost, _ := verifier.Generate("ghost", time.Hour)

	users := mockUsers{"alice": {UserID: "u-1", Username: "alice"}}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "alice"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"unknown user", "Bearer " + ghost, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Identity
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = FromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			HTTPAuthMiddleware(users, verifier)(handler).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantUser == "" {
				if got != nil {
					t.Errorf("handler reached with identity %+v", got)
				}
				return
			}
			if got == nil || got.Username != tt.wantUser {
				t.Errorf("identity = %+v, want username %q", got, tt.wantUser)
			}
		})
	}
}

func TestRequireAdminHTTP(t *testing.T) {
	tests := []struct {
		name       string
		id         *Identity
		wantStatus int
	}{
		{"no identity", nil, http.StatusUnauthorized},
		{"regular user", &Identity{Username: "bob"}, http.StatusForbidden},
		{"admin", &Identity{Username: "root", Admin: true}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodPost, "/api/system/config", nil)
			if tt.id != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.id))
			}
			rec := httptest.NewRecorder()
			RequireAdminHTTP()(handler).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestWriteError_EscapesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	msg := `token "abc" rejected\n`
	writeError(rec, http.StatusUnauthorized, msg)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not valid JSON: %v (%q)", err, rec.Body.String())
	}
	if body["message"] != msg {
		t.Errorf("message = %q, want %q", body["message"], msg)
	}
}

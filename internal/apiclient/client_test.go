// ABOUTME: Tests for the API client and its logging middleware
// ABOUTME: Uses httptest servers to cover success, APIError mapping, auth headers, and request IDs

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAuth string

func (s staticAuth) AuthHeader(context.Context) http.Header {
	h := http.Header{}
	if s != "" {
		h.Set("Authorization", "Bearer "+string(s))
	}
	return h
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api/", opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsNonHTTP(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
}

func TestClient_GetDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/system/status", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"configured":true}`))
	})

	var out struct {
		Configured bool `json:"configured"`
	}
	require.NoError(t, c.Get(context.Background(), "/system/status", nil, &out))
	assert.True(t, out.Configured)
}

func TestClient_PostEncodesBodyAndAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"key": "site_name", "value": "TSO"}, body)
		w.Write([]byte(`{"ok":true}`))
	})

	var out map[string]any
	err := c.Post(context.Background(), "system/config", map[string]string{"key": "site_name", "value": "TSO"}, staticAuth("t1"), &out)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
}

func TestClient_NoAuthHeaderWhenEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
	})
	require.NoError(t, c.Get(context.Background(), "/auth/user", staticAuth(""), nil))
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"message field", http.StatusUnauthorized, `{"message":"Invalid credentials"}`, "Invalid credentials"},
		{"error field", http.StatusForbidden, `{"error":"admin role required"}`, "admin role required"},
		{"detail field", http.StatusUnprocessableEntity, `{"detail":"username taken"}`, "username taken"},
		{"plain text", http.StatusInternalServerError, "boom\n", "boom"},
		{"empty", http.StatusBadGateway, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := c.Get(context.Background(), "/auth/user", nil, nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.True(t, IsStatus(err, tt.status))
			assert.Contains(t, err.Error(), "/auth/user")
		})
	}
}

func TestClient_DecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"configured":`))
	})

	var out map[string]any
	err := c.Get(context.Background(), "/system/status", nil, &out)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestClient_RawMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"anything":[1,2,3]}`))
	})

	var raw json.RawMessage
	require.NoError(t, c.Post(context.Background(), "/auth/register", nil, nil, &raw))
	assert.JSONEq(t, `{"anything":[1,2,3]}`, string(raw))
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)

	err = c.Get(context.Background(), "/system/status", nil, nil)
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestClient_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, WithTimeout(50*time.Millisecond))

	err := c.Get(context.Background(), "/system/status", nil, nil)
	assert.Error(t, err)
}

func TestLoggingTransport_StampsRequestID(t *testing.T) {
	var gotID string
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusNotFound)
	}, WithLogger(logger))

	err := c.Get(context.Background(), "/missing", nil, nil)
	require.Error(t, err)

	assert.Len(t, gotID, 36)
	logs := buf.String()
	assert.Contains(t, logs, "sending request")
	assert.Contains(t, logs, "received response")
	assert.Contains(t, logs, "status=404")
	assert.Contains(t, logs, gotID)
}

func TestLoggingTransport_KeepsCallerRequestID(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
	}))
	defer srv.Close()

	rt := &LoggingTransport{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "caller-id")

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "caller-id", gotID)
}

func TestLoggingTransport_DoesNotMutateRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	rt := &LoggingTransport{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	req, err := http.NewRequest(http.MethodGet, srv.URL, strings.NewReader(""))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get(RequestIDHeader))
}

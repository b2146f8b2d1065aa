// ABOUTME: Request logging middleware for outbound API calls
// ABOUTME: Stamps every request with an X-Request-ID and logs method, URL, status, and latency

package apiclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation ID
const RequestIDHeader = "X-Request-ID"

// LoggingTransport is an http.RoundTripper that logs every request and response
type LoggingTransport struct {
	Next   http.RoundTripper
	Logger *slog.Logger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		req.Header.Set(RequestIDHeader, requestID)
	}

	logger.Debug("sending request",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"request_id", requestID,
	)

	start := time.Now()
	resp, err := next.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.Warn("request failed",
			"method", req.Method,
			"url", req.URL.Redacted(),
			"request_id", requestID,
			"duration", elapsed,
			"error", err,
		)
		return nil, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	logger.Log(req.Context(), level, "received response",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", elapsed,
	)
	return resp, nil
}

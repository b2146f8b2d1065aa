// ABOUTME: Development REST backend serving the auth, system, and external platform endpoints
// ABOUTME: Chi router with JWT bearer auth, in-memory state, and graceful shutdown

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389/tso-console/internal/auth"
	"github.com/2389/tso-console/internal/config"
)

// ExternalTokenTTL is how long a saved or refreshed external platform token stays valid
const ExternalTokenTTL = 7 * 24 * time.Hour

type externalToken struct {
	token       string
	lastUpdated time.Time
	expiresAt   time.Time
}

// Server is the development backend
type Server struct {
	cfg      config.BackendConfig
	users    *Users
	verifier *auth.JWTVerifier
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	configured bool
	settings   map[string]string
	external   map[string]externalToken

	httpServer *http.Server
}

// New creates a backend from cfg. An empty jwt_secret gets a random one.
func New(cfg config.BackendConfig, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "backend")

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		var err error
		if secret, err = auth.RandomSecret(); err != nil {
			return nil, err
		}
		logger.Warn("backend.jwt_secret not set, using a random secret; tokens will not survive restarts")
	}
	verifier, err := auth.NewJWTVerifier(secret)
	if err != nil {
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = config.DefaultTokenTTL
	}

	s := &Server{
		cfg:        cfg,
		users:      NewUsers(cfg.Admins),
		verifier:   verifier,
		logger:     logger,
		now:        time.Now,
		configured: cfg.Configured,
		settings:   make(map[string]string),
		external:   make(map[string]externalToken),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Users exposes the user directory for seeding
func (s *Server) Users() *Users {
	return s.users
}

// Router builds the HTTP handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)
		r.Get("/system/status", s.handleStatus)
		r.Get("/system/required-configs", s.handleRequiredConfigs)
		r.Post("/system/initialize", s.handleInitialize)

		r.Group(func(r chi.Router) {
			r.Use(auth.HTTPAuthMiddleware(s.users, s.verifier))

			r.Get("/auth/user", s.handleCurrentUser)
			r.Post("/external-platform/token", s.handleSaveExternalToken)
			r.Post("/external-platform/refresh-token", s.handleRefreshExternalToken)
			r.Get("/user/info", s.handleExternalInfo)

			r.With(auth.RequireAdminHTTP()).Post("/system/config", s.handleUpdateConfig)
		})
	})
	return r
}

// Run listens on the configured address and blocks until ctx is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := s.Shutdown(shutdownCtx)

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down backend")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

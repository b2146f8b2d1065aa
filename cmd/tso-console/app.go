// ABOUTME: Wiring for tso-console: config, logger, credential store, and services
// ABOUTME: Each command runs against one app built from the loaded configuration

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/2389/tso-console/internal/apiclient"
	"github.com/2389/tso-console/internal/config"
	"github.com/2389/tso-console/internal/external"
	"github.com/2389/tso-console/internal/gate"
	"github.com/2389/tso-console/internal/kv"
	"github.com/2389/tso-console/internal/logging"
	"github.com/2389/tso-console/internal/session"
	"github.com/2389/tso-console/internal/system"
)

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    kv.Store
	session  *session.Service
	system   *system.Service
	external *external.Service
	nav      *gate.Navigator
	out      io.Writer
	in       io.Reader
	closed   bool
}

func newApp(ctx context.Context) (*app, error) {
	configPath := config.Path()
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return buildApp(ctx, cfg, logging.New(cfg.Logging, os.Stderr), os.Stdout, os.Stdin)
}

// buildApp wires the services for cfg. Command output goes to out, prompts read from in.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, in io.Reader) (*app, error) {
	store, err := kv.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	api, err := apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithLogger(logger),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	extAPI := api
	if cfg.External.BaseURL != "" && cfg.External.BaseURL != cfg.API.BaseURL {
		extAPI, err = apiclient.New(cfg.External.BaseURL,
			apiclient.WithTimeout(cfg.API.Timeout),
			apiclient.WithLogger(logger),
		)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating external platform client: %w", err)
		}
	}

	sess := session.NewService(api, store, logger)
	sys := system.NewService(api, sess, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		session:  sess,
		system:   sys,
		external: external.NewService(extAPI, sess, store, logger),
		nav: gate.NewNavigator(sys, sess,
			gate.WithMaxRedirects(cfg.Gate.MaxRedirects),
			gate.WithLogger(logger),
		),
		out: out,
		in:  in,
	}, nil
}

// Close releases the credential store. Safe to call more than once.
func (a *app) Close() {
	if a.closed {
		return
	}
	a.closed = true
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing credential store", "error", err)
	}
}

// ABOUTME: Development backend for tso-console: serves the auth, system, and external platform API
// ABOUTME: Usage: fake-backend [-addr localhost:8080] [-config path] [-seed user:pass ...]

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/tso-console/internal/backend"
	"github.com/2389/tso-console/internal/config"
	"github.com/2389/tso-console/internal/logging"
)

type seedFlag []string

func (s *seedFlag) String() string { return strings.Join(*s, ",") }

func (s *seedFlag) Set(v string) error {
	if !strings.Contains(v, ":") {
		return errors.New("seed must be user:pass")
	}
	*s = append(*s, v)
	return nil
}

func main() {
	configPath := flag.String("config", config.Path(), "Config file (backend section)")
	addr := flag.String("addr", "", "Listen address (overrides backend.addr)")
	configured := flag.Bool("configured", false, "Start as already configured")
	var seeds seedFlag
	flag.Var(&seeds, "seed", "Pre-register a user as user:pass (repeatable)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *addr, *configured, seeds); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, addr string, configured bool, seeds []string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if addr != "" {
		cfg.Backend.Addr = addr
	}
	if configured {
		cfg.Backend.Configured = true
	}
	if cfg.Logging.Level == "warn" {
		cfg.Logging.Level = "info"
	}

	logger := logging.New(cfg.Logging, os.Stderr)

	srv, err := backend.New(cfg.Backend, logger)
	if err != nil {
		return fmt.Errorf("creating backend: %w", err)
	}
	for _, s := range seeds {
		user, pass, _ := strings.Cut(s, ":")
		if _, err := srv.Users().Register(user, pass); err != nil {
			return fmt.Errorf("seeding %s: %w", user, err)
		}
	}

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("API:       http://%s/api\n", cfg.Backend.Addr)
	green.Print("    ▶ ")
	fmt.Printf("Admins:    %s\n", strings.Join(cfg.Backend.Admins, ", "))
	green.Print("    ▶ ")
	fmt.Printf("Required:  %s\n", strings.Join(cfg.Backend.RequiredConfigs, ", "))
	if len(seeds) > 0 {
		green.Print("    ▶ ")
		fmt.Printf("Seeded:    %d user(s)\n", len(seeds))
	}
	fmt.Println()

	return srv.Run(ctx)
}

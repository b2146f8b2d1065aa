// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, "console.yaml", `
api:
  base_url: "https://tso.example.com/api"
  timeout: "5s"

store:
  driver: "sqlite"
  path: "./console.db"

gate:
  max_redirects: 4

external:
  base_url: "https://platform.example.com/v1"
  refresh_interval: "30m"

logging:
  level: "debug"
  format: "json"

backend:
  addr: "0.0.0.0:9090"
  jwt_secret: "backend-secret"
  token_ttl: "2h"
  required_configs:
    - "site_name"
  admins:
    - "root"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://tso.example.com/api" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://tso.example.com/api")
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 5*time.Second)
	}
	if cfg.Store.Driver != StoreDriverSQLite {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, StoreDriverSQLite)
	}
	if cfg.Store.Path != "./console.db" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "./console.db")
	}
	if cfg.Gate.MaxRedirects != 4 {
		t.Errorf("Gate.MaxRedirects = %d, want 4", cfg.Gate.MaxRedirects)
	}
	if cfg.External.RefreshInterval != 30*time.Minute {
		t.Errorf("External.RefreshInterval = %v, want %v", cfg.External.RefreshInterval, 30*time.Minute)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
	if cfg.Backend.TokenTTL != 2*time.Hour {
		t.Errorf("Backend.TokenTTL = %v, want %v", cfg.Backend.TokenTTL, 2*time.Hour)
	}
	if len(cfg.Backend.RequiredConfigs) != 1 || cfg.Backend.RequiredConfigs[0] != "site_name" {
		t.Errorf("Backend.RequiredConfigs = %v, want [site_name]", cfg.Backend.RequiredConfigs)
	}
	if len(cfg.Backend.Admins) != 1 || cfg.Backend.Admins[0] != "root" {
		t.Errorf("Backend.Admins = %v, want [root]", cfg.Backend.Admins)
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "console.toml", `
[api]
base_url = "http://127.0.0.1:8080/api"
timeout = "3s"

[store]
driver = "memory"

[gate]
max_redirects = 2
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "http://127.0.0.1:8080/api" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://127.0.0.1:8080/api")
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 3*time.Second)
	}
	if cfg.Store.Driver != StoreDriverMemory {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, StoreDriverMemory)
	}
	if cfg.Gate.MaxRedirects != 2 {
		t.Errorf("Gate.MaxRedirects = %d, want 2", cfg.Gate.MaxRedirects)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, "console.yaml", `
store:
  driver: "memory"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != DefaultAPIBaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, DefaultAPIBaseURL)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want default %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Gate.MaxRedirects != DefaultMaxRedirects {
		t.Errorf("Gate.MaxRedirects = %d, want default %d", cfg.Gate.MaxRedirects, DefaultMaxRedirects)
	}
	if cfg.External.RefreshInterval != DefaultRefreshInterval {
		t.Errorf("External.RefreshInterval = %v, want default %v", cfg.External.RefreshInterval, DefaultRefreshInterval)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_TSO_API", "https://env.example.com/api")
	t.Setenv("TEST_TSO_REDIS_PASSWORD", "hunter2")

	configPath := writeConfig(t, "console.yaml", `
api:
  base_url: "${TEST_TSO_API}"

store:
  driver: "redis"
  redis_addr: "localhost:6379"
  redis_password: "${TEST_TSO_REDIS_PASSWORD}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://env.example.com/api" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://env.example.com/api")
	}
	if cfg.Store.RedisPassword != "hunter2" {
		t.Errorf("Store.RedisPassword = %q, want %q", cfg.Store.RedisPassword, "hunter2")
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	os.Unsetenv("UNSET_VAR_FOR_TEST")

	configPath := writeConfig(t, "console.yaml", `
store:
  driver: "memory"

backend:
  jwt_secret: "${UNSET_VAR_FOR_TEST}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.JWTSecret != "" {
		t.Errorf("Backend.JWTSecret = %q, want empty string for unset env var", cfg.Backend.JWTSecret)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/console.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.API.BaseURL != DefaultAPIBaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, DefaultAPIBaseURL)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "console.yaml", `
api:
  base_url: "http://localhost:8080/api"
  timeout "missing colon"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, "console.yaml", `
api:
  timeout: "invalid-duration"
store:
  driver: "memory"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "api.timeout") {
		t.Errorf("error = %v, want it to name api.timeout", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: "api.base_url is required",
		},
		{
			name:    "non http base url",
			mutate:  func(c *Config) { c.API.BaseURL = "ftp://example.com" },
			wantErr: "http or https",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "etcd" },
			wantErr: "store.driver",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Store.Path = "" },
			wantErr: "store.path",
		},
		{
			name:    "redis without addr",
			mutate:  func(c *Config) { c.Store.Driver = StoreDriverRedis },
			wantErr: "store.redis_addr",
		},
		{
			name:    "zero redirects",
			mutate:  func(c *Config) { c.Gate.MaxRedirects = 0 },
			wantErr: "gate.max_redirects",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPath_EnvOverride(t *testing.T) {
	t.Setenv("TSO_CONFIG", "/etc/tso/console.toml")
	if got := Path(); got != "/etc/tso/console.toml" {
		t.Errorf("Path() = %q, want %q", got, "/etc/tso/console.toml")
	}
}

func TestPath_XDG(t *testing.T) {
	t.Setenv("TSO_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	want := filepath.Join("/xdg", "tso", "console.yaml")
	if got := Path(); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

// ABOUTME: Configuration loading and parsing for tso-console and fake-backend
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	StoreDriverMemory = "memory"
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
)

// Defaults applied before the file is decoded
const (
	DefaultAPIBaseURL      = "http://localhost:8080/api"
	DefaultAPITimeout      = 10 * time.Second
	DefaultMaxRedirects    = 3
	DefaultRefreshInterval = time.Hour
	DefaultBackendAddr     = "localhost:8080"
	DefaultTokenTTL        = 24 * time.Hour
)

// Config represents the complete tso-console configuration
type Config struct {
	API      APIConfig      `yaml:"api" toml:"api"`
	Store    StoreConfig    `yaml:"store" toml:"store"`
	Gate     GateConfig     `yaml:"gate" toml:"gate"`
	External ExternalConfig `yaml:"external" toml:"external"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Backend  BackendConfig  `yaml:"backend" toml:"backend"`
}

// APIConfig holds the backend REST API location
type APIConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"-" toml:"-"`

	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// StoreConfig selects and configures the credential store backend
type StoreConfig struct {
	Driver        string `yaml:"driver" toml:"driver"`
	Path          string `yaml:"path" toml:"path"`
	RedisAddr     string `yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword string `yaml:"redis_password" toml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" toml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" toml:"redis_prefix"`
}

// GateConfig holds navigation gate tuning
type GateConfig struct {
	MaxRedirects int `yaml:"max_redirects" toml:"max_redirects"`
}

// ExternalConfig holds the external platform proxy configuration
type ExternalConfig struct {
	BaseURL         string        `yaml:"base_url" toml:"base_url"`
	RefreshInterval time.Duration `yaml:"-" toml:"-"`

	RefreshIntervalRaw string `yaml:"refresh_interval" toml:"refresh_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// BackendConfig configures the development backend served by fake-backend
type BackendConfig struct {
	Addr            string        `yaml:"addr" toml:"addr"`
	JWTSecret       string        `yaml:"jwt_secret" toml:"jwt_secret"`
	RequiredConfigs []string      `yaml:"required_configs" toml:"required_configs"`
	Admins          []string      `yaml:"admins" toml:"admins"`
	Configured      bool          `yaml:"configured" toml:"configured"`
	TokenTTL        time.Duration `yaml:"-" toml:"-"`

	TokenTTLRaw string `yaml:"token_ttl" toml:"token_ttl"`
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: DefaultAPITimeout,
		},
		Store: StoreConfig{
			Driver:      StoreDriverSQLite,
			Path:        filepath.Join(DataPath(), "console.db"),
			RedisPrefix: "tso:",
		},
		Gate: GateConfig{
			MaxRedirects: DefaultMaxRedirects,
		},
		External: ExternalConfig{
			BaseURL:         DefaultAPIBaseURL,
			RefreshInterval: DefaultRefreshInterval,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Backend: BackendConfig{
			Addr:            DefaultBackendAddr,
			RequiredConfigs: []string{"site_name", "external_platform_url"},
			Admins:          []string{"admin"},
			TokenTTL:        DefaultTokenTTL,
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Files ending in .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Default() when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Path returns the path to the console config file.
// Priority: TSO_CONFIG env var > XDG_CONFIG_HOME/tso/console.yaml > ~/.config/tso/console.yaml
func Path() string {
	if envPath := os.Getenv("TSO_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "console.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "tso", "console.yaml")
}

// DataPath returns the tso data directory.
// Priority: XDG_DATA_HOME/tso > ~/.local/share/tso
func DataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "tso")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if err := validateHTTPURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if c.External.BaseURL != "" {
		if err := validateHTTPURL("external.base_url", c.External.BaseURL); err != nil {
			return err
		}
	}

	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case StoreDriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of memory, sqlite, redis", c.Store.Driver)
	}

	if c.Gate.MaxRedirects < 1 {
		return fmt.Errorf("gate.max_redirects must be at least 1")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme", field)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.API.TimeoutRaw != "" {
		cfg.API.Timeout, err = time.ParseDuration(cfg.API.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing api.timeout %q: %w", cfg.API.TimeoutRaw, err)
		}
	}

	if cfg.External.RefreshIntervalRaw != "" {
		cfg.External.RefreshInterval, err = time.ParseDuration(cfg.External.RefreshIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing external.refresh_interval %q: %w", cfg.External.RefreshIntervalRaw, err)
		}
	}

	if cfg.Backend.TokenTTLRaw != "" {
		cfg.Backend.TokenTTL, err = time.ParseDuration(cfg.Backend.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing backend.token_ttl %q: %w", cfg.Backend.TokenTTLRaw, err)
		}
	}

	return nil
}

// Package config handles configuration loading for tso-console and fake-backend.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Missing sections fall back to Default().
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from TSO_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/tso/console.yaml
//  3. ~/.config/tso/console.yaml
//
// A file ending in .toml is decoded as TOML.
//
// # Environment Variable Expansion
//
//	backend:
//	  jwt_secret: "${TSO_JWT_SECRET}"
//
// # Configuration Sections
//
//	api:
//	  base_url: "http://localhost:8080/api"
//	  timeout: "10s"
//
//	store:
//	  driver: "sqlite"          # memory, sqlite, redis
//	  path: "~/.local/share/tso/console.db"
//	  redis_addr: "localhost:6379"
//	  redis_prefix: "tso:"
//
//	gate:
//	  max_redirects: 3
//
//	external:
//	  base_url: "https://platform.example.com/v1"
//	  refresh_interval: "1h"
//
//	logging:
//	  level: "warn"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	backend:
//	  addr: "localhost:8080"
//	  jwt_secret: "${TSO_JWT_SECRET}"
//	  token_ttl: "24h"
//	  required_configs: ["site_name", "external_platform_url"]
//	  admins: ["admin"]
package config

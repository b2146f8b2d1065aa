// ABOUTME: Credential store interface shared by the session, locale and external platform services
// ABOUTME: Replaces browser persistent storage with an injected string key-value store

package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/2389/tso-console/internal/config"
)

// ErrClosed is returned by operations on a store that has been closed
var ErrClosed = errors.New("store closed")

// Store is a string key-value store. Clear removes every named key; absent keys
// are not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context, keys ...string) error
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.StoreDriverMemory:
		return NewMemoryStore(), nil
	case config.StoreDriverSQLite:
		return NewSQLiteStore(cfg.Path)
	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		slog.Default().With("component", "kv").Info("redis store initialized", "addr", cfg.RedisAddr)
		return NewRedisStore(client, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

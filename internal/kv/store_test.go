// ABOUTME: Conformance tests run against every Store implementation
// ABOUTME: Redis runs only when TSO_TEST_REDIS_ADDR points at a disposable server

package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/tso-console/internal/config"
)

type storeFactory func(t *testing.T) Store

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
			require.NoError(t, err)
			return s
		},
		"redis": func(t *testing.T) Store {
			addr := os.Getenv("TSO_TEST_REDIS_ADDR")
			if addr == "" {
				t.Skip("TSO_TEST_REDIS_ADDR not set")
			}
			client := redis.NewClient(&redis.Options{Addr: addr})
			return NewRedisStore(client, "tso-test:"+uuid.NewString()+":")
		},
	}
}

func TestStore_Conformance(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("get missing", func(t *testing.T) {
				s := factory(t)
				defer s.Close()

				v, ok, err := s.Get(ctx, "missing")
				require.NoError(t, err)
				assert.False(t, ok)
				assert.Empty(t, v)
			})

			t.Run("set then get", func(t *testing.T) {
				s := factory(t)
				defer s.Close()

				require.NoError(t, s.Set(ctx, "token", "t1"))
				v, ok, err := s.Get(ctx, "token")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, "t1", v)
			})

			t.Run("overwrite", func(t *testing.T) {
				s := factory(t)
				defer s.Close()

				require.NoError(t, s.Set(ctx, "isAdmin", "true"))
				require.NoError(t, s.Set(ctx, "isAdmin", "false"))
				v, _, err := s.Get(ctx, "isAdmin")
				require.NoError(t, err)
				assert.Equal(t, "false", v)
			})

			t.Run("empty value is present", func(t *testing.T) {
				s := factory(t)
				defer s.Close()

				require.NoError(t, s.Set(ctx, "username", ""))
				_, ok, err := s.Get(ctx, "username")
				require.NoError(t, err)
				assert.True(t, ok)
			})

			t.Run("clear", func(t *testing.T) {
				s := factory(t)
				defer s.Close()

				require.NoError(t, s.Set(ctx, "token", "t1"))
				require.NoError(t, s.Set(ctx, "username", "alice"))
				require.NoError(t, s.Set(ctx, "language", "en"))

				require.NoError(t, s.Clear(ctx, "token", "username", "never-set"))

				_, ok, _ := s.Get(ctx, "token")
				assert.False(t, ok)
				_, ok, _ = s.Get(ctx, "username")
				assert.False(t, ok)
				v, ok, _ := s.Get(ctx, "language")
				assert.True(t, ok)
				assert.Equal(t, "en", v)
			})

			t.Run("clear nothing", func(t *testing.T) {
				s := factory(t)
				defer s.Close()
				assert.NoError(t, s.Clear(ctx))
			})
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kv.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "token", "persisted"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()

	m := NewMemoryStore()
	require.NoError(t, m.Close())
	_, _, err := m.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Set(ctx, "token", "x"), ErrClosed)

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, _, err = s.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(ctx, "token", "x"), ErrClosed)
	assert.ErrorIs(t, s.Clear(ctx), ErrClosed)
	assert.ErrorIs(t, s.Clear(ctx, "token"), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: config.StoreDriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	s.Close()

	s, err = Open(ctx, config.StoreConfig{Driver: config.StoreDriverSQLite, Path: filepath.Join(t.TempDir(), "kv.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = Open(ctx, config.StoreConfig{Driver: "etcd"})
	assert.Error(t, err)
}

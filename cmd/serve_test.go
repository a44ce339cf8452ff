package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmail-ai-agent/internal/cache"
)

func TestServeConfig_ChromaURL(t *testing.T) {
	cfg := ServeConfig{ChromaHost: "chroma.internal", ChromaPort: 8001}
	assert.Equal(t, "http://chroma.internal:8001", cfg.ChromaURL())
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "emails.json")
		store, err := newCache(ctx, ServeConfig{CacheBackend: cacheBackendFile, EmailsFile: path})
		require.NoError(t, err)
		fs, ok := store.(*cache.FileStore)
		require.True(t, ok)
		assert.Equal(t, path, fs.Path())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := newCache(ctx, ServeConfig{
			CacheBackend: cacheBackendRedis,
			Redis:        RedisConfig{Addr: mr.Addr(), Prefix: "test:"},
		})
		require.NoError(t, err)
		rs, ok := store.(*cache.RedisStore)
		require.True(t, ok)
		t.Cleanup(func() { _ = rs.Close() })
		assert.Equal(t, "test:emails", rs.Key())
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := newCache(ctx, ServeConfig{CacheBackend: cacheBackendRedis, Redis: RedisConfig{Addr: addr}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to redis")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := newCache(ctx, ServeConfig{CacheBackend: "memcached"})
		assert.EqualError(t, err, `unknown cache backend "memcached"`)
	})
}

package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "sxk-session-code", "K7QX2M"))
	v, err := store.Get(ctx, "sxk-session-code")
	require.NoError(t, err)
	assert.Equal(t, "K7QX2M", v)

	require.NoError(t, store.Set(ctx, "sxk-session-code", "ZZ99AA"))
	v, err = store.Get(ctx, "sxk-session-code")
	require.NoError(t, err)
	assert.Equal(t, "ZZ99AA", v)

	require.NoError(t, store.Remove(ctx, "sxk-session-code"))
	_, err = store.Get(ctx, "sxk-session-code")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Remove(ctx, "never-set"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "state.json")))
	})

	t.Run("values survive a new store on the same path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "state.json")
		ctx := context.Background()

		require.NoError(t, NewFileStore(path).Set(ctx, "sxk-client-id", "abc"))

		v, err := NewFileStore(path).Get(ctx, "sxk-client-id")
		require.NoError(t, err)
		assert.Equal(t, "abc", v)
	})

	t.Run("corrupt file surfaces an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		_, err := NewFileStore(path).Get(context.Background(), "k")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestRedisStore(t *testing.T) {
	// Requires a running Redis instance; skipped otherwise.
	opts, err := redis.ParseURL("redis://localhost:6379/15")
	require.NoError(t, err)

	client := redis.NewClient(opts)
	defer client.Close()

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skip("Redis not available for testing")
	}

	exerciseStore(t, NewRedisStore(client, "test-device"))
}

package prefs

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, DraftKey)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store should be empty")

	require.NoError(t, s.Set(ctx, DraftKey, `{"id":"a"}`))
	require.NoError(t, s.Set(ctx, DraftKey, `{"id":"b"}`))

	val, ok, err := s.Get(ctx, DraftKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"b"}`, val)

	require.NoError(t, s.Remove(ctx, DraftKey))
	_, ok, err = s.Get(ctx, DraftKey)
	require.NoError(t, err)
	assert.False(t, ok)

	// removing twice is fine
	require.NoError(t, s.Remove(ctx, DraftKey))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	exerciseStore(t, s)

	// values survive reopening the directory
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, CheckInsKey, "[]"))
	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	val, ok, err := reopened.Get(ctx, CheckInsKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", val)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Set(context.Background(), "../escape", "x"))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	s := NewRedisStore(client, "mindatlas:test:")
	defer s.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	exerciseStore(t, s)
}

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"editorial-cache/internal/redis"
)

func setupRemote(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient(&redis.Config{Address: mr.Addr(), KeyPrefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRemoteTier_ReadThrough(t *testing.T) {
	client, mr := setupRemote(t)
	c, _, clock := setupCache(t, client)
	ctx := context.Background()
	comps := Components{"url": "https://example.org/api"}

	require.NoError(t, c.Set(ctx, NamespaceAPIResponse, comps, map[string]int{"status": 200}, time.Hour))

	key, err := Key(NamespaceAPIResponse, comps)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:"+key))
	assert.Equal(t, time.Hour, mr.TTL("test:"+key), "remote keeps the requested TTL")

	clock.Advance(10 * time.Minute)
	data, ok, err := c.Get(ctx, NamespaceAPIResponse, comps)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"status":200}`, string(data))
	assert.Equal(t, int64(1), c.Stats().Remote.Hits)
}

func TestRemoteTier_OnlyRemoteNamespaces(t *testing.T) {
	client, mr := setupRemote(t)
	c, _, _ := setupCache(t, client)

	require.NoError(t, c.Set(context.Background(), "generic", Components{"a": 1}, "v", time.Hour))
	assert.Empty(t, mr.Keys())
}

func TestRemoteTier_InvalidateAndClear(t *testing.T) {
	client, mr := setupRemote(t)
	c, _, _ := setupCache(t, client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, NamespaceAPIResponse, Components{"n": 1}, "a", time.Hour))
	require.NoError(t, c.Set(ctx, NamespaceAPIResponse, Components{"n": 2}, "b", time.Hour))
	require.Len(t, mr.Keys(), 2)

	require.NoError(t, c.Invalidate(ctx, NamespaceAPIResponse, Components{"n": 1}))
	assert.Len(t, mr.Keys(), 1)

	result, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RemoteKeys)
	assert.Empty(t, mr.Keys())
}

func TestRemoteTier_DisabledAfterFailure(t *testing.T) {
	client, mr := setupRemote(t)
	c, _, clock := setupCache(t, client)
	ctx := context.Background()
	comps := Components{"n": 1}

	require.NoError(t, c.Set(ctx, NamespaceAPIResponse, comps, "a", time.Hour))
	require.True(t, c.Stats().Remote.Enabled)

	mr.Close()
	clock.Advance(10 * time.Minute)

	_, ok, err := c.Get(ctx, NamespaceAPIResponse, comps)
	require.NoError(t, err, "remote failures never surface")
	assert.False(t, ok)
	assert.False(t, c.Stats().Remote.Enabled)
}

// flakyRemote fails every call and counts them
type flakyRemote struct {
	mu    sync.Mutex
	calls int
}

func (f *flakyRemote) record() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("connection refused")
}

func (f *flakyRemote) Get(context.Context, string) ([]byte, error) { return nil, f.record() }
func (f *flakyRemote) Set(context.Context, string, []byte, time.Duration) error {
	return f.record()
}
func (f *flakyRemote) Delete(context.Context, string) error     { return f.record() }
func (f *flakyRemote) ClearPrefix(context.Context) (int, error) { return 0, f.record() }

func TestRemoteTier_StaysDisabled(t *testing.T) {
	remote := &flakyRemote{}
	c, _, _ := setupCache(t, remote)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, NamespaceAPIResponse, Components{"n": 1}, "a", time.Hour))
	require.NoError(t, c.Set(ctx, NamespaceAPIResponse, Components{"n": 2}, "b", time.Hour))
	_, _, err := c.Get(ctx, NamespaceAPIResponse, Components{"n": 3})
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, NamespaceAPIResponse, Components{"n": 1}))

	assert.Equal(t, 1, remote.calls, "only the first failure reaches the remote")
}

// missRemote always misses
type missRemote struct{ flakyRemote }

func (m *missRemote) Get(context.Context, string) ([]byte, error) { return nil, redis.ErrMiss }

func TestRemoteTier_MissDoesNotDisable(t *testing.T) {
	c, _, _ := setupCache(t, &missRemote{})

	_, ok, err := c.Get(context.Background(), NamespaceAPIResponse, Components{"n": 1})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, c.Stats().Remote.Enabled)
	assert.Equal(t, int64(1), c.Stats().Remote.Misses)
}

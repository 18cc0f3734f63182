package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devmatch/internal/config"
)

func setupRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewRedisCache_FromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()

	c := NewRedisCache(cfg)
	defer c.Close()
	assert.NoError(t, c.Ping(context.Background()))
}

func TestPendingCount_MissHitInvalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	_, hit, err := c.GetPendingCount(ctx, 42)
	require.NoError(t, err)
	assert.False(t, hit)

	epoch, err := c.PendingEpoch(ctx, 42)
	require.NoError(t, err)
	stored, err := c.SetPendingCount(ctx, 42, 3, epoch)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, PendingTTL, mr.TTL("requests:pending:42"))

	n, hit, err := c.GetPendingCount(ctx, 42)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(3), n)

	require.NoError(t, c.InvalidatePendingCount(ctx, 42, 7))
	assert.False(t, mr.Exists("requests:pending:42"))
	assert.NoError(t, c.InvalidatePendingCount(ctx))
}

// A count read before an invalidation must not be written back after it.
func TestPendingCount_StaleWriteDiscarded(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	epoch, err := c.PendingEpoch(ctx, 5)
	require.NoError(t, err)

	// a new request lands while the DB count is in flight
	require.NoError(t, c.InvalidatePendingCount(ctx, 5))

	stored, err := c.SetPendingCount(ctx, 5, 1, epoch)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("requests:pending:5"))

	// a fresh read under the new epoch is stored
	epoch, err = c.PendingEpoch(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "1", epoch)
	stored, err = c.SetPendingCount(ctx, 5, 2, epoch)
	require.NoError(t, err)
	assert.True(t, stored)

	n, hit, _ := c.GetPendingCount(ctx, 5)
	assert.True(t, hit)
	assert.Equal(t, int64(2), n)
}

func TestPendingCount_TTLRefreshedOnRead(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	_, err := c.SetPendingCount(ctx, 1, 5, "")
	require.NoError(t, err)
	mr.FastForward(30 * time.Minute)
	assert.Equal(t, 30*time.Minute, mr.TTL("requests:pending:1"))

	_, hit, _ := c.GetPendingCount(ctx, 1)
	assert.True(t, hit)
	assert.Equal(t, PendingTTL, mr.TTL("requests:pending:1"))
}

func TestPendingCount_Garbage(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	require.NoError(t, mr.Set(c.KeyForPendingCount(9), "nope"))
	_, hit, err := c.GetPendingCount(ctx, 9)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestAllowSwipe_FixedWindow(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	for i := 0; i < 3; i++ {
		ok, err := c.AllowSwipe(ctx, 1, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "swipe %d", i+1)
	}
	ok, err := c.AllowSwipe(ctx, 1, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("swipes:1"))

	// other users have their own window
	ok, _ = c.AllowSwipe(ctx, 2, 3, time.Minute)
	assert.True(t, ok)

	mr.FastForward(time.Minute)
	ok, err = c.AllowSwipe(ctx, 1, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

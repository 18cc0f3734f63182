package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/devmatch/internal/config"
)

// PendingTTL bounds how long a cached pending-request count survives without access.
const PendingTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

// NewFromClient wraps an existing client (tests point it at miniredis).
func NewFromClient(c *redis.Client) *RedisCache {
	return &RedisCache{Client: c}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

// KeyForPendingCount generates Redis key for a user's pending connection-request count
func (c *RedisCache) KeyForPendingCount(userID uint64) string {
	return fmt.Sprintf("requests:pending:%d", userID)
}

// KeyForPendingEpoch is bumped on every invalidation of the user's count.
func (c *RedisCache) KeyForPendingEpoch(userID uint64) string {
	return fmt.Sprintf("requests:pending:%d:epoch", userID)
}

// KeyForSwipeWindow counts a user's swipes in the current limiter window.
func (c *RedisCache) KeyForSwipeWindow(userID uint64) string {
	return fmt.Sprintf("swipes:%d", userID)
}

// PendingEpoch returns the invalidation epoch to hand to SetPendingCount.
// A user whose count was never invalidated has epoch "".
func (c *RedisCache) PendingEpoch(ctx context.Context, userID uint64) (string, error) {
	v, err := c.Client.Get(ctx, c.KeyForPendingEpoch(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// SetPendingCount stores a count read from the DB, unless the count was
// invalidated after epoch was taken.
//
// Behavior:
//   - The epoch key is WATCHed; a concurrent InvalidatePendingCount aborts the
//     write and (false, nil) is returned.
//   - A stored count always gets a fresh PendingTTL.
//
// Example:
//
//	epoch, _ := c.PendingEpoch(ctx, id)
//	n := countFromDB()
//	stored, err := c.SetPendingCount(ctx, id, n, epoch)
func (c *RedisCache) SetPendingCount(ctx context.Context, userID uint64, count int64, epoch string) (bool, error) {
	epochKey := c.KeyForPendingEpoch(userID)
	err := c.Client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, epochKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != epoch {
			return redis.TxFailedErr
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.KeyForPendingCount(userID), count, PendingTTL)
			return nil
		})
		return err
	}, epochKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetPendingCount returns (count, true) on a hit and (0, false) on a miss.
func (c *RedisCache) GetPendingCount(ctx context.Context, userID uint64) (int64, bool, error) {
	key := c.KeyForPendingCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, PendingTTL).Err()
	return n, true, nil
}

// InvalidatePendingCount drops the cached count for each user and bumps its
// epoch, so a DB read already in flight cannot store its stale result.
func (c *RedisCache) InvalidatePendingCount(ctx context.Context, userIDs ...uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range userIDs {
			p.Del(ctx, c.KeyForPendingCount(id))
			p.Incr(ctx, c.KeyForPendingEpoch(id))
			p.Expire(ctx, c.KeyForPendingEpoch(id), PendingTTL)
		}
		return nil
	})
	return err
}

// AllowSwipe counts one swipe against a fixed window of the given length and
// reports whether the user is still within limit.
//
// Behavior:
//   - The first swipe of a window starts its TTL; the window resets when the key expires.
//   - Swipes over the limit are still counted, so hammering does not reopen the window.
func (c *RedisCache) AllowSwipe(ctx context.Context, userID uint64, limit int, window time.Duration) (bool, error) {
	key := c.KeyForSwipeWindow(userID)
	var incr *redis.IntCmd
	_, err := c.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

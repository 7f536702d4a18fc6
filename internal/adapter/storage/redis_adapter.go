package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

const (
	lockKeyPrefix      = "lock:item:"
	rateLimitKeyPrefix = "ratelimit:"
	idempotencyKeyTTL  = 24 * time.Hour
	lockRetryInterval  = 10 * time.Millisecond
	lockReleaseTimeout = time.Second
)

var (
	_ port.ItemLocker       = (*RedisAdapter)(nil)
	_ port.IdempotencyStore = (*RedisAdapter)(nil)
	_ port.RateLimiter      = (*RedisAdapter)(nil)
)

// Deletes the lock only while it still carries our token, so a holder whose
// TTL ran out cannot free somebody else's lock.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Sliding window over a sorted set scored by millisecond timestamps.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisAdapter provides the item lock, idempotency keys and rate limiting
// shared by every server instance.
type RedisAdapter struct {
	client  *redis.Client
	lockTTL time.Duration
	wait    time.Duration
	logger  *zap.Logger
}

// NewRedisAdapter returns an adapter whose locks expire after lockTTL if the
// holder dies, and whose Lock gives up after wait.
func NewRedisAdapter(client *redis.Client, lockTTL, wait time.Duration, logger *zap.Logger) *RedisAdapter {
	return &RedisAdapter{client: client, lockTTL: lockTTL, wait: wait, logger: logger}
}

func (r *RedisAdapter) Lock(ctx context.Context, itemID string) (func(), error) {
	key := lockKeyPrefix + itemID
	token := uuid.NewString()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("item %s: %w", itemID, port.ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	return func() {
		// ctx may already be cancelled by the time we release
		releaseCtx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
		defer cancel()
		if err := releaseLockScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil {
			r.logger.Warn("failed to release lock, it stays held until its ttl runs out",
				zap.String("key", key), zap.Duration("ttl", r.lockTTL), zap.Error(err))
		}
	}, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) DeleteIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	result, err := slidingWindowScript.Run(ctx, r.client,
		[]string{rateLimitKeyPrefix + key}, now, window.Milliseconds(), limit, member).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}

	return result == 1, nil
}

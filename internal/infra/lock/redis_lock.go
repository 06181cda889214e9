package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservatec-core/internal/infra"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlotLock arbitrates concurrent claims on a slot-instance before the
// reservation row is durably committed. Keys expire on their own; every
// mutation is conditional on ownership so a lock that expired and was
// re-acquired by someone else can never be touched by the previous owner.

// KeyFor builds the lock key for a slot-instance.
func KeyFor(spaceID, timeslotID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("slot:%s:%s:%s", spaceID, timeslotID, date.Format("2006-01-02"))
}

var acquireScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v == false then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
  return 1
end
if v == ARGV[1] then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
  return 1
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type RedisSlotLock struct {
	client *redis.Client
}

func NewRedisSlotLock(client *redis.Client) *RedisSlotLock {
	return &RedisSlotLock{client: client}
}

// Acquire succeeds when the key is absent or already owned by owner
// (idempotent re-claim refreshes the TTL). It never blocks or retries.
func (l *RedisSlotLock) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	res, err := acquireScript.Run(ctx, l.client, []string{key}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, infra.WrapRepoErrKind(infra.KindUnavailable, "lock store unavailable during acquire", err)
	}
	return res == 1, nil
}

// Release deletes the key only while owner still holds it.
func (l *RedisSlotLock) Release(ctx context.Context, key, owner string) (bool, error) {
	res, err := releaseScript.Run(ctx, l.client, []string{key}, owner).Int64()
	if err != nil {
		return false, infra.WrapRepoErrKind(infra.KindUnavailable, "lock store unavailable during release", err)
	}
	return res == 1, nil
}

// Renew extends the TTL only while owner still holds the key.
func (l *RedisSlotLock) Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	res, err := renewScript.Run(ctx, l.client, []string{key}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, infra.WrapRepoErrKind(infra.KindUnavailable, "lock store unavailable during renew", err)
	}
	return res == 1, nil
}

// Owner returns the current holder and remaining TTL, or ("", 0, nil) when
// the key is absent. A missing key is not an error: absence is the signal
// that a claim window has expired.
func (l *RedisSlotLock) Owner(ctx context.Context, key string) (string, time.Duration, error) {
	pipe := l.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return "", 0, infra.WrapRepoErrKind(infra.KindUnavailable, "lock store unavailable during read", err)
	}

	owner, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, infra.WrapRepoErrKind(infra.KindUnavailable, "lock store unavailable during read", err)
	}

	ttl, err := ttlCmd.Result()
	if err != nil {
		return "", 0, infra.WrapRepoErrKind(infra.KindUnavailable, "lock store unavailable during read", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return owner, ttl, nil
}

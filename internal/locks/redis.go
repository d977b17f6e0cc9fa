package locks

import (
	"context"
	"fmt"
	"time"

	"fleetlink/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fleetlink:lock:vehicle:"

const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type redisLocker struct {
	rdb      *redis.Client
	ttl      time.Duration
	newToken func() string
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) VehicleLocker {
	return &redisLocker{rdb: rdb, ttl: ttl, newToken: newToken}
}

func redisKey(vehicleID string) string {
	return redisKeyPrefix + vehicleID
}

func (l *redisLocker) Acquire(ctx context.Context, vehicleID string) (string, error) {
	token := l.newToken()
	ok, err := l.rdb.SetNX(ctx, redisKey(vehicleID), token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire vehicle lock: %w", err)
	}
	if !ok {
		metrics.LockContention.WithLabelValues("redis").Inc()
		return "", ErrLocked
	}
	return token, nil
}

func (l *redisLocker) Release(ctx context.Context, vehicleID, token string) error {
	if err := l.rdb.Eval(ctx, releaseScript, []string{redisKey(vehicleID)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release vehicle lock: %w", err)
	}
	return nil
}

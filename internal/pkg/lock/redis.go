// Package lock provides short leases that keep two processes from sweeping the same
// dealership at once.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "timeclock:lease:"

// releaseScript deletes the key only while it still holds our token, so a lease that
// expired and was taken by another process is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type RedisLocker struct {
	client   redis.Cmdable
	newToken func() string
}

func NewRedisLocker(client redis.Cmdable) overdue.Locker {
	return &RedisLocker{
		client:   client,
		newToken: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// Acquire implements overdue.Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	redisKey := keyPrefix + key
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lease %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	dErrors "fedcore/pkg/domain-errors"
)

const (
	defaultTTL   = 30 * time.Second
	defaultRetry = 50 * time.Millisecond
	keyPrefix    = "fedcore:lock:"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process using the same Redis. Locks expire
// after the TTL so a crashed holder cannot block migrations forever.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
}

type RedisOption func(*Redis)

func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithRetryInterval(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.retry = d
		}
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: defaultTTL, retry: defaultRetry}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, heldError(ctx.Err())
		case err != nil:
			return nil, heldError(fmt.Errorf("redis set %s: %w", redisKey, err))
		case ok:
			return r.releaser(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, heldError(ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r *Redis) releaser(key, token string) Release {
	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to release profile lock")
		}
		if n == 0 {
			return dErrors.New(dErrors.CodeConflict, "profile lock expired before release")
		}
		return nil
	}
}

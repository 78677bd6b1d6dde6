package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// redisClient is the subset of *redis.Client the locker uses.
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Only the holder of the token may delete the key.
const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0`

// RedisLocker shares locks across instances.  A lease expires after TTL
// even if its holder dies, so it narrows races between instances but is
// not the final guard; the primary's row locks are.
type RedisLocker struct {
	rdb    redisClient
	ttl    time.Duration
	poll   time.Duration
	prefix string
	log    *logrus.Logger
}

func NewRedisLocker(rdb redisClient, ttl time.Duration, log *logrus.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, poll: 25 * time.Millisecond, prefix: "hotel:lock:", log: log}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	full := l.prefix + key
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
			}
			return nil, fmt.Errorf("%w: lock %s: %w", ErrUnavailable, key, err)
		}
		if ok {
			return l.releaser(full, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		case <-time.After(l.poll):
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be done; release on our own deadline.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.rdb.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
				l.log.WithFields(logrus.Fields{"key": key, "error": err.Error()}).
					Warn("failed to release room lock, it will expire")
			}
		})
	}
}

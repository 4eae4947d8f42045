package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultLeaseTTL must outlast the slowest turn; an expired lease lets
	// another replica in.
	DefaultLeaseTTL     = 2 * time.Minute
	defaultLeaseRetry   = 25 * time.Millisecond
	leaseReleaseTimeout = 2 * time.Second
)

// Lease serializes turns for a key across replicas.
type Lease interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// releaseLease deletes the lock only while it still holds our token.
var releaseLease = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease is a SET NX PX lock keyed by session key.
type RedisLease struct {
	redis *redis.Client
	ttl   time.Duration
	retry time.Duration
}

// NewRedisLease builds a lease on client. ttl <= 0 selects DefaultLeaseTTL.
func NewRedisLease(client *redis.Client, ttl time.Duration) *RedisLease {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &RedisLease{redis: client, ttl: ttl, retry: defaultLeaseRetry}
}

func leaseKey(key string) string { return "lock:" + key }

// Acquire polls until the lock is free or ctx is done.
func (l *RedisLease) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	name := leaseKey(key)
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.redis.SetNX(ctx, name, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("session: failed to acquire lease: %w", err)
		}
		if ok {
			return func() { l.release(name, token) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("session: lease for %s not acquired: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLease) release(name, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), leaseReleaseTimeout)
	defer cancel()
	// A failed release still expires after ttl.
	_ = releaseLease.Run(ctx, l.redis, []string{name}, token).Err()
}

package cache

import (
	"context"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/resilience"
)

// GuardedStore short-circuits calls to a failing store so that a Redis
// outage costs each search one fast miss instead of a dial timeout.
// A cache miss (redis.Nil) counts as success.
type GuardedStore struct {
	store   Store
	breaker *resilience.CircuitBreaker
}

func NewGuardedStore(store Store, breaker *resilience.CircuitBreaker) *GuardedStore {
	return &GuardedStore{store: store, breaker: breaker}
}

func (g *GuardedStore) Get(ctx context.Context, key string) (string, error) {
	var (
		val    string
		getErr error
	)
	err := g.breaker.Execute(func() error {
		val, getErr = g.store.Get(ctx, key)
		if pkgredis.IsNilError(getErr) {
			return nil
		}
		return getErr
	})
	if err != nil {
		return "", err
	}
	return val, getErr
}

func (g *GuardedStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return g.breaker.Execute(func() error {
		return g.store.Set(ctx, key, value, ttl)
	})
}

// FlushByPattern bypasses the breaker: invalidation after a reindex must
// be attempted even while reads are short-circuited.
func (g *GuardedStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	return g.store.FlushByPattern(ctx, pattern)
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/resilience"
)

type failingStore struct {
	*memStore
	calls int
	err   error
}

func (f *failingStore) Get(ctx context.Context, key string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.memStore.Get(ctx, key)
}

func TestGuardedStoreMissIsNotFailure(t *testing.T) {
	inner := &failingStore{memStore: newMemStore()}
	g := NewGuardedStore(inner, resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{FailureThreshold: 1}))

	for i := 0; i < 3; i++ {
		if _, err := g.Get(context.Background(), "missing"); !errors.Is(err, redis.Nil) {
			t.Fatalf("Get = %v, want redis.Nil", err)
		}
	}
	if inner.calls != 3 {
		t.Errorf("store calls = %d, want 3", inner.calls)
	}
}

func TestGuardedStoreOpensOnFailures(t *testing.T) {
	inner := &failingStore{memStore: newMemStore(), err: errors.New("connection refused")}
	g := NewGuardedStore(inner, resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	}))

	for i := 0; i < 2; i++ {
		g.Get(context.Background(), "k")
	}
	_, err := g.Get(context.Background(), "k")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if inner.calls != 2 {
		t.Errorf("store calls = %d, want 2", inner.calls)
	}

	// the query cache degrades to a miss
	qc := New(g, config.RedisConfig{CacheTTL: time.Minute}, nil)
	if _, ok := qc.Get(context.Background(), []string{"fish"}, 10); ok {
		t.Error("expected miss with open circuit")
	}
}

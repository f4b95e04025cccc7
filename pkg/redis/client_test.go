package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
)

func connect(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("BS_REDIS_ADDR")
	if addr == "" {
		t.Skip("BS_REDIS_ADDR not set")
	}
	cfg := config.Default().Redis
	cfg.Addr = addr
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSetGet(t *testing.T) {
	c := connect(t)
	ctx := context.Background()
	key := fmt.Sprintf("bs-test:%d:get", time.Now().UnixNano())

	if err := c.Set(ctx, key, "payload", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "payload" {
		t.Errorf("Get = %q, want payload", got)
	}

	_, err = c.Get(ctx, key+":missing")
	if !IsNilError(err) {
		t.Errorf("missing key err = %v, want redis nil", err)
	}
	c.FlushByPattern(ctx, key)
}

func TestFlushByPattern(t *testing.T) {
	c := connect(t)
	ctx := context.Background()
	prefix := fmt.Sprintf("bs-test:%d", time.Now().UnixNano())

	for i := 0; i < 3; i++ {
		if err := c.Set(ctx, fmt.Sprintf("%s:q:%d", prefix, i), "v", time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	other := prefix + ":keep"
	if err := c.Set(ctx, other, "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	n, err := c.FlushByPattern(ctx, prefix+":q:*")
	if err != nil {
		t.Fatalf("FlushByPattern: %v", err)
	}
	if n != 3 {
		t.Errorf("removed = %d, want 3", n)
	}
	if _, err := c.Get(ctx, other); err != nil {
		t.Errorf("unmatched key removed: %v", err)
	}
	if n, _ := c.FlushByPattern(ctx, prefix+":q:*"); n != 0 {
		t.Errorf("second flush removed %d, want 0", n)
	}
	c.FlushByPattern(ctx, other)
}

func TestNewClientUnreachable(t *testing.T) {
	cfg := config.Default().Redis
	cfg.Addr = "127.0.0.1:1"
	if _, err := NewClient(cfg); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

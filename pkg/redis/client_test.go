package redis

import (
	"context"
	"testing"
)

func TestKeyBuilders(t *testing.T) {
	c := &Client{}

	if got := c.IdempotencyKey("approve", "abc"); got != "kf:idempotency:approve:abc" {
		t.Fatalf("unexpected idempotency key %q", got)
	}
	if got := c.RateLimitKey("login:ip:1.2.3.4"); got != "kf:rate_limit:login:ip:1.2.3.4" {
		t.Fatalf("unexpected rate limit key %q", got)
	}
	if got := c.WatchChannel("items"); got != "kf:watch:items" {
		t.Fatalf("unexpected watch channel %q", got)
	}
	if got := c.IdempotencyKey("", ""); got != "kf:idempotency" {
		t.Fatalf("empty parts should be skipped, got %q", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	c := &Client{}
	ctx := context.Background()

	if err := c.Ping(ctx); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := c.Get(ctx, "key"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := c.Publish(ctx, "items", "payload"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}

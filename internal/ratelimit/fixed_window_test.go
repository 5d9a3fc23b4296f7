package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestFixedWindowLimiterRedis(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 2, time.Second)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	if ok, _ := limiter.Allow("ip-1"); !ok {
		t.Fatalf("first request should pass")
	}
	if ok, _ := limiter.Allow("ip-1"); !ok {
		t.Fatalf("second request should pass")
	}
	ok, retryAfter := limiter.Allow("ip-1")
	if ok {
		t.Fatalf("third request should be blocked")
	}
	if retryAfter <= 0 || retryAfter > time.Second {
		t.Fatalf("retry-after should be within the window, got %v", retryAfter)
	}
}

func TestFixedWindowLimiterRedisFailClosed(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 1, time.Second)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	redis.Close()
	if ok, _ := limiter.Allow("ip-1"); ok {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestFixedWindowLimiterRequiresRedisAddr(t *testing.T) {
	limiter, err := NewRedisFixedWindowLimiter("", "", "test:ratelimit", 1, time.Second)
	if err == nil || limiter != nil {
		t.Fatalf("expected constructor error for empty redis addr")
	}
}

func TestFixedWindowLimiterIsolatesKeys(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 1, time.Second)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	if ok, _ := limiter.Allow("ip-1"); !ok {
		t.Fatalf("first request for ip-1 should pass")
	}
	if ok, _ := limiter.Allow("ip-2"); !ok {
		t.Fatalf("first request for ip-2 should pass")
	}
	if ok, _ := limiter.Allow("ip-1"); ok {
		t.Fatalf("second request for ip-1 should be blocked")
	}
}

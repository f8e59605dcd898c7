package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	limiter := NewLimiter(2.0, 2)

	if !limiter.Allow("10.0.0.1") {
		t.Error("first request should be allowed")
	}
	if !limiter.Allow("10.0.0.1") {
		t.Error("second request should be allowed within burst")
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("third request should be blocked, burst exhausted")
	}
}

func TestLimiterIndependentClients(t *testing.T) {
	limiter := NewLimiter(1.0, 1)

	if !limiter.Allow("client-a") {
		t.Error("first request for client-a should be allowed")
	}
	if !limiter.Allow("client-b") {
		t.Error("client-b has its own bucket and should be allowed")
	}
	if limiter.Allow("client-a") {
		t.Error("client-a bucket should be empty")
	}
}

func TestLimiterWaitCancellation(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	limiter.Allow("slow")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "slow"); err == nil {
		t.Error("wait should fail once the context deadline passes")
	}
}

func TestLimiterReset(t *testing.T) {
	limiter := NewLimiter(1.0, 1)
	limiter.Allow("client")
	limiter.Reset()

	if !limiter.Allow("client") {
		t.Error("reset should refill the client's bucket")
	}
}

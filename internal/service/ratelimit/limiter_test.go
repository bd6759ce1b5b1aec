package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("client") {
			t.Fatalf("request %d within burst rejected", i)
		}
	}
	if l.Allow("client") {
		t.Fatalf("burst exceeded but allowed")
	}
	if !l.Allow("other") {
		t.Fatalf("keys must not share buckets")
	}

	now = now.Add(500 * time.Millisecond)
	if !l.Allow("client") {
		t.Fatalf("expected one token after refill")
	}
	if l.Allow("client") {
		t.Fatalf("only one token should have been refilled")
	}
}

func TestLimiterPrune(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 1)
	l.now = func() time.Time { return now }
	l.Allow("a")
	now = now.Add(time.Hour)
	l.Allow("b")
	if n := l.Prune(time.Minute); n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
}

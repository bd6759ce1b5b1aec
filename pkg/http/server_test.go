package http

import (
	"context"
	"testing"
	"time"

	"ImpVol/internal/service/ratelimit"
)

func TestServerSweepsIdleClients(t *testing.T) {
	lim := ratelimit.New(100, 10)
	lim.Allow("10.0.0.1:/api/v1/iv")
	lim.Allow("10.0.0.2:/api/v1/price")

	srv := NewServer(nil, nil,
		WithHost("127.0.0.1"),
		WithPort(0),
		WithMetricsPath(""),
		WithRateLimit(lim),
		WithLimiterSweep(5*time.Millisecond, time.Nanosecond),
	)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Stop(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for lim.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%d idle buckets still tracked", lim.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServerStopEndsSweep(t *testing.T) {
	lim := ratelimit.New(100, 10)
	srv := NewServer(nil, nil,
		WithHost("127.0.0.1"),
		WithPort(0),
		WithRateLimit(lim),
		WithLimiterSweep(time.Millisecond, time.Nanosecond),
	)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	lim.Allow("10.0.0.3:/api/v1/iv")
	time.Sleep(20 * time.Millisecond)
	if lim.Len() != 1 {
		t.Fatalf("bucket dropped after stop")
	}
}

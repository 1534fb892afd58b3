package ratelimiter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRejectsNonPositiveRate(t *testing.T) {
	if New(0, 5) != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
	var l *Limiter
	if !l.Allow(time.Now()) {
		t.Fatal("nil limiter must allow")
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter wait failed: %v", err)
	}
}

func TestAllowConsumesBurst(t *testing.T) {
	l := New(1, 2)
	now := time.Now()
	if !l.Allow(now) || !l.Allow(now) {
		t.Fatal("expected burst of two to be allowed")
	}
	if l.Allow(now) {
		t.Fatal("expected third token to be refused")
	}
	if !l.Allow(now.Add(1100 * time.Millisecond)) {
		t.Fatal("expected token after refill")
	}
}

func TestWaitHonorsCanceledContext(t *testing.T) {
	l := New(0.001, 1)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

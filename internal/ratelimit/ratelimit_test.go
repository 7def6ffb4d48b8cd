package ratelimit

import (
	"errors"
	"testing"
)

func TestAllow_ExhaustsBurst(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 5, BurstSize: 3})
	for i := 0; i < 3; i++ {
		if err := l.Allow("login:alice@test"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := l.Allow("login:alice@test"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("4th attempt returned %v, want ErrRateLimited", err)
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 5, BurstSize: 1})
	if err := l.Allow("login:alice@test"); err != nil {
		t.Fatalf("alice: %v", err)
	}
	if err := l.Allow("login:alice@test"); !errors.Is(err, ErrRateLimited) {
		t.Fatal("alice should be limited")
	}
	if err := l.Allow("login:bob@test"); err != nil {
		t.Fatalf("bob throttled by alice's bucket: %v", err)
	}
}

func TestAllow_UnlimitedWhenZero(t *testing.T) {
	l := NewLimiter(Config{})
	for i := 0; i < 100; i++ {
		if err := l.Allow("k"); err != nil {
			t.Fatalf("unlimited mode limited at %d: %v", i, err)
		}
	}
}

func TestReset_RestoresBucket(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 5, BurstSize: 1})
	if err := l.Allow("login:alice@test"); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow("login:alice@test"); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected limit before reset")
	}
	l.Reset("login:alice@test")
	if err := l.Allow("login:alice@test"); err != nil {
		t.Fatalf("after reset: %v", err)
	}
}

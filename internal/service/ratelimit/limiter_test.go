package ratelimit

import (
	"testing"
	"time"
)

func TestAllowRespectsBurstPerKey(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of 2 should pass")
	}
	if l.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("other key has its own bucket")
	}

	l.now = func() time.Time { return now.Add(1100 * time.Millisecond) }
	if !l.Allow("a") {
		t.Fatalf("token should refill after a second")
	}
}

func TestSweepDropsIdleKeys(t *testing.T) {
	l := New(5, 5, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }
	l.Allow("old")

	l.now = func() time.Time { return now.Add(2 * time.Minute) }
	l.Allow("fresh")
	if n := l.Sweep(); n != 1 {
		t.Fatalf("swept %d", n)
	}
}

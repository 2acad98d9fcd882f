package service

import (
	"testing"
	"time"
)

func TestMemoryRateLimiter_EnforcesMax(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Minute, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("4th request should be denied")
	}
	// Otra clave tiene su propio cupo.
	if !limiter.Allow("5.6.7.8") {
		t.Fatal("different key should be allowed")
	}
}

func TestMemoryRateLimiter_WindowResets(t *testing.T) {
	limiter := NewMemoryRateLimiter(20*time.Millisecond, 1)

	if !limiter.Allow("k") {
		t.Fatal("first request should pass")
	}
	if limiter.Allow("k") {
		t.Fatal("second request inside window should be denied")
	}
	time.Sleep(30 * time.Millisecond)
	if !limiter.Allow("k") {
		t.Fatal("request after window reset should pass")
	}
}

func TestMemoryRateLimiter_RejectsEmptyKey(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Minute, 5)
	if limiter.Allow("   ") {
		t.Fatal("blank key should be denied")
	}
}

func TestMemoryRateLimiter_NormalizesKeys(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Minute, 1)
	if !limiter.Allow("ABC") {
		t.Fatal("first request should pass")
	}
	// Mismo bucket con otra capitalización.
	if limiter.Allow("abc") {
		t.Fatal("normalized key should share the bucket")
	}
}

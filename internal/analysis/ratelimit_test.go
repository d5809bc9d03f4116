package analysis

import (
	"sync"
	"testing"
	"time"
)

func TestRateLimiterExhaustion(t *testing.T) {
	limiter := NewRateLimiter(50, 60*time.Second)

	for i := 0; i < 50; i++ {
		if !limiter.Allow() {
			t.Fatalf("request %d should have been allowed", i+1)
		}
	}

	if limiter.Allow() {
		t.Errorf("request 51 should have been denied")
	}

	if limiter.CanMakeRequest() {
		t.Errorf("CanMakeRequest should report false at the cap")
	}
}

func TestRateLimiterWindowReopens(t *testing.T) {
	current := time.Unix(1000, 0)
	limiter := NewRateLimiter(2, 60*time.Second)
	limiter.now = func() time.Time { return current }

	if !limiter.Allow() || !limiter.Allow() {
		t.Fatalf("first two requests should be allowed")
	}

	if limiter.Allow() {
		t.Fatalf("third request inside the window should be denied")
	}

	// Advance past the window; old timestamps fall out and budget reopens
	current = current.Add(61 * time.Second)

	if !limiter.Allow() {
		t.Errorf("request after the window elapsed should be allowed")
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	current := time.Unix(1000, 0)
	limiter := NewRateLimiter(2, 60*time.Second)
	limiter.now = func() time.Time { return current }

	if !limiter.Allow() {
		t.Fatalf("first request should be allowed")
	}

	current = current.Add(30 * time.Second)
	if !limiter.Allow() {
		t.Fatalf("second request should be allowed")
	}

	// 61s after the first request but only 31s after the second: exactly
	// one slot has reopened
	current = current.Add(31 * time.Second)
	if !limiter.Allow() {
		t.Errorf("slot freed by the first request should be available")
	}
	if limiter.Allow() {
		t.Errorf("second slot is still occupied inside the window")
	}
}

func TestRateLimiterConcurrentAllow(t *testing.T) {
	limiter := NewRateLimiter(50, 60*time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Allow is atomic: exactly the cap succeeds, never more
	if allowed != 50 {
		t.Errorf("expected exactly 50 allowed requests, got %d", allowed)
	}
}

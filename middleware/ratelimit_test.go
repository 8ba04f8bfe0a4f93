package middleware

import (
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// TestNewIPRateLimiter tests the creation of a new IPRateLimiter.
func TestNewIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(2, 5)
	if rl == nil {
		t.Fatal("Expected IPRateLimiter to be created, got nil")
	}
	if rl.rate != 2 {
		t.Errorf("Expected rate limit to be 2, got %v", rl.rate)
	}
	if rl.GetLimit() != 5 {
		t.Errorf("Expected burst limit to be 5, got %v", rl.GetLimit())
	}
}

// TestAddIP tests adding a new IP to the rate limiter.
func TestAddIP(t *testing.T) {
	rl := NewIPRateLimiter(1, 5)
	ip := "192.168.1.1"

	limiter := rl.AddIP(ip)
	if limiter == nil {
		t.Fatal("Expected limiter to be created for IP, got nil")
	}
	if _, exists := rl.ips[ip]; !exists {
		t.Error("Expected IP to be added to ips map, but it was not found")
	}
}

// TestGetLimiter tests that the same limiter is returned for the same IP.
func TestGetLimiter(t *testing.T) {
	rl := NewIPRateLimiter(1, 5)

	first := rl.GetLimiter("192.168.1.1")
	second := rl.GetLimiter("192.168.1.1")
	other := rl.GetLimiter("10.0.0.1")

	if first != second {
		t.Error("Expected the same limiter for repeated lookups of one IP")
	}
	if first == other {
		t.Error("Expected different IPs to get different limiters")
	}
}

// TestRateLimiting tests the actual rate limiting functionality.
func TestRateLimiting(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(1), 2)
	ip := "192.168.1.1"

	limiter := rl.GetLimiter(ip)
	if !limiter.Allow() || !limiter.Allow() {
		t.Fatal("Expected burst of 2 to be allowed")
	}
	if limiter.Allow() {
		t.Error("Expected third immediate request to be denied")
	}
	if rl.Remaining(ip) != 0 {
		t.Errorf("Expected 0 remaining tokens, got %d", rl.Remaining(ip))
	}

	time.Sleep(1100 * time.Millisecond)
	if !limiter.Allow() {
		t.Error("Expected request to be allowed after refill")
	}
}

// TestRemaining tests the token count reported for a fresh IP.
func TestRemaining(t *testing.T) {
	rl := NewIPRateLimiter(1, 3)
	if got := rl.Remaining("203.0.113.9"); got != 3 {
		t.Errorf("Expected 3 tokens for a new IP, got %d", got)
	}
}

// TestConcurrentGetLimiter checks that concurrent first use creates one limiter.
func TestConcurrentGetLimiter(t *testing.T) {
	rl := NewIPRateLimiter(1, 1)

	var wg sync.WaitGroup
	limiters := make([]*rate.Limiter, 50)
	for i := range limiters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			limiters[i] = rl.GetLimiter("192.168.1.1")
		}(i)
	}
	wg.Wait()

	for _, l := range limiters[1:] {
		if l != limiters[0] {
			t.Fatal("Expected every goroutine to get the same limiter")
		}
	}
}

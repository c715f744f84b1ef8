package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// TestNewRateLimiter verifies the initialization of RateLimiter.
func TestNewRateLimiter(t *testing.T) {
	limit := 5
	window := 1 * time.Second
	rl := NewRateLimiter(limit, window)
	defer rl.Stop()

	if rl.limit != limit {
		t.Errorf("Expected limit %d, got %d", limit, rl.limit)
	}
	if rl.window != window {
		t.Errorf("Expected window %v, got %v", window, rl.window)
	}
	if rl.attempts == nil {
		t.Error("Expected attempts map to be initialized, got nil")
	}
}

// TestRateLimiter_Allow tests the Allow method for rate limiting logic.
func TestRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		attempts []string // IPs to attempt
		expected []bool   // Expected results
	}{
		{
			name:     "Within limit",
			limit:    2,
			attempts: []string{"192.168.1.1", "192.168.1.1"},
			expected: []bool{true, true},
		},
		{
			name:     "Exceed limit",
			limit:    1,
			attempts: []string{"192.168.1.1", "192.168.1.1"},
			expected: []bool{true, false},
		},
		{
			name:     "Multiple IPs",
			limit:    1,
			attempts: []string{"192.168.1.1", "192.168.1.2"},
			expected: []bool{true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.limit, 1*time.Second)
			defer rl.Stop()
			for i, ip := range tt.attempts {
				got := rl.Allow(ip)
				if got != tt.expected[i] {
					t.Errorf("Attempt %d for IP %s: expected %v, got %v", i+1, ip, tt.expected[i], got)
				}
			}
		})
	}
}

// TestRateLimiter_Cleanup tests the cleanup method.
func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(5, 100*time.Millisecond)
	defer rl.Stop()

	// Add attempts
	rl.Allow("192.168.1.1")
	rl.Allow("192.168.1.2")

	rl.mutex.Lock()
	if len(rl.attempts) != 2 {
		t.Errorf("Expected 2 IPs in attempts, got %d", len(rl.attempts))
	}
	rl.mutex.Unlock()

	// Wait for cleanup
	time.Sleep(150 * time.Millisecond)

	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	if len(rl.attempts) != 0 {
		t.Errorf("Expected attempts map to be empty after cleanup, got %d", len(rl.attempts))
	}
}

// TestRateLimiter_Concurrent tests concurrent access to Allow.
func TestRateLimiter_Concurrent(t *testing.T) {
	rl := NewRateLimiter(3, 1*time.Second)
	defer rl.Stop()
	ip := "192.168.1.1"
	var wg sync.WaitGroup
	results := make([]bool, 5)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = rl.Allow(ip)
		}(i)
	}
	wg.Wait()

	allowedCount := 0
	for _, result := range results {
		if result {
			allowedCount++
		}
	}
	if allowedCount > rl.limit {
		t.Errorf("Expected at most %d allowed attempts, got %d", rl.limit, allowedCount)
	}
}

// TestRateLimiter_Limit checks that the wrapper keys on the host, not host:port.
func TestRateLimiter_Limit(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	calls := 0
	h := rl.Limit(func(w http.ResponseWriter, r *http.Request) { calls++ })

	for i, addr := range []string{"10.0.0.1:5000", "10.0.0.1:5001"} {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h(rec, req)
		want := http.StatusOK
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("request %d: want %d, got %d", i+1, want, rec.Code)
		}
	}
	if calls != 1 {
		t.Fatalf("want 1 call through, got %d", calls)
	}
}

// TestRateLimiter_Stop checks that counters survive past the window once the
// reset loop has exited, and that a second Stop is harmless.
func TestRateLimiter_Stop(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)
	rl.Stop()

	select {
	case <-rl.done:
	default:
		t.Fatal("Expected reset loop to have exited after Stop")
	}

	if !rl.Allow("192.168.1.1") {
		t.Fatal("Expected first attempt to be allowed")
	}
	time.Sleep(120 * time.Millisecond)
	if rl.Allow("192.168.1.1") {
		t.Error("Expected attempts to persist after Stop, but they were reset")
	}

	rl.Stop()
}

// TestRateLimiter_Limit_ForwardedFor checks that X-Forwarded-For only
// separates clients when the limiter trusts the proxy.
func TestRateLimiter_Limit_ForwardedFor(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		wantCalls  int
	}{
		{"rotating header is ignored", false, 1},
		{"trusted proxy header keys clients", true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(1, time.Minute)
			rl.TrustProxy = tt.trustProxy
			defer rl.Stop()

			calls := 0
			h := rl.Limit(func(w http.ResponseWriter, r *http.Request) { calls++ })
			for _, fwd := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
				req := httptest.NewRequest(http.MethodPost, "/login", nil)
				req.RemoteAddr = "10.0.0.1:5000"
				req.Header.Set("X-Forwarded-For", fwd)
				h(httptest.NewRecorder(), req)
			}
			if calls != tt.wantCalls {
				t.Fatalf("want %d calls through, got %d", tt.wantCalls, calls)
			}
		})
	}
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, h http.Handler, remoteAddr string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRateLimiter_AllowsBurstThenBlocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewAuthRateLimiter(ctx)
	h := rl.Limit(okHandler())

	// The full burst goes through...
	for i := 0; i < authBurst; i++ {
		if code := doRequest(t, h, "10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, code)
		}
	}

	// ...and the next request over budget is rejected.
	if code := doRequest(t, h, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Errorf("over-budget request: status = %d, want 429", code)
	}
}

func TestRateLimiter_BucketsArePerIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewAuthRateLimiter(ctx)
	h := rl.Limit(okHandler())

	// Exhaust one IP's budget.
	for i := 0; i <= authBurst; i++ {
		doRequest(t, h, "10.0.0.1:1234")
	}

	// A different IP still has a full bucket.
	if code := doRequest(t, h, "10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("fresh IP: status = %d, want 200", code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.168.1.5:54321", "192.168.1.5"},
		{"192.168.1.5", "192.168.1.5"}, // already stripped by RealIP
		{"[::1]:8080", "::1"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}

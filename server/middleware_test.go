package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	cfg := &rateLimiterConfig{enabled: true, requestsPerIP: 3, window: 100 * time.Millisecond}
	limiter := newIPRateLimiter(context.Background(), cfg)

	for i := 0; i < 3; i++ {
		if !limiter.allow("192.168.1.1") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if limiter.allow("192.168.1.1") {
		t.Error("request 4 should be denied (rate limit exceeded)")
	}

	time.Sleep(150 * time.Millisecond)
	if !limiter.allow("192.168.1.1") {
		t.Error("request after window expiry should be allowed")
	}
}

func TestRateLimiterDifferentIPs(t *testing.T) {
	cfg := &rateLimiterConfig{enabled: true, requestsPerIP: 1, window: time.Second}
	limiter := newIPRateLimiter(context.Background(), cfg)

	if !limiter.allow("192.168.1.1") || !limiter.allow("192.168.1.2") {
		t.Fatal("first request per IP should be allowed")
	}
	if limiter.allow("192.168.1.1") || limiter.allow("192.168.1.2") {
		t.Fatal("second request per IP should be denied")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	cfg := &rateLimiterConfig{enabled: false, requestsPerIP: 1, window: time.Second}
	limiter := newIPRateLimiter(context.Background(), cfg)

	for i := 0; i < 100; i++ {
		if !limiter.allow("192.168.1.1") {
			t.Fatalf("request %d should be allowed when rate limiter is disabled", i+1)
		}
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := &rateLimiterConfig{enabled: true, requestsPerIP: 5, window: time.Minute}
	limiter := newIPRateLimiter(ctx, cfg)

	limiter.allow("10.0.0.1")
	limiter.cleanup(time.Now())
	if limiter.size() != 1 {
		t.Fatalf("fresh visitor removed")
	}
	limiter.cleanup(time.Now().Add(3 * time.Minute))
	if limiter.size() != 0 {
		t.Fatalf("stale visitor kept")
	}
}

func TestRateLimitMiddlewareForwardedFor(t *testing.T) {
	_, proxyNet, _ := net.ParseCIDR("10.0.0.0/8")

	newHandler := func() http.Handler {
		cfg := &rateLimiterConfig{enabled: true, requestsPerIP: 1, window: time.Second}
		limiter := newIPRateLimiter(context.Background(), cfg)
		ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		return withTrustedProxies(rateLimitMiddleware(ok, limiter), []*net.IPNet{proxyNet})
	}
	send := func(h http.Handler, peer, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.RemoteAddr = peer
		req.Header.Set("X-Forwarded-For", xff)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	t.Run("trusted proxy", func(t *testing.T) {
		h := newHandler()
		if code := send(h, "10.0.0.1:12345", "203.0.113.1"); code != http.StatusOK {
			t.Fatalf("first client request = %d", code)
		}
		if code := send(h, "10.0.0.1:12345", "203.0.113.1"); code != http.StatusTooManyRequests {
			t.Fatalf("second client request = %d, want 429", code)
		}
		// Another client behind the same proxy has its own budget.
		if code := send(h, "10.0.0.1:12345", "203.0.113.2"); code != http.StatusOK {
			t.Fatalf("other client request = %d", code)
		}
	})

	t.Run("untrusted peer rotating header", func(t *testing.T) {
		h := newHandler()
		if code := send(h, "198.51.100.7:4000", "203.0.113.1"); code != http.StatusOK {
			t.Fatalf("first request = %d", code)
		}
		if code := send(h, "198.51.100.7:4000", "203.0.113.99"); code != http.StatusTooManyRequests {
			t.Fatalf("spoofed header request = %d, want 429", code)
		}
	})
}

func TestIsTrustedPeer(t *testing.T) {
	_, n, _ := net.ParseCIDR("10.0.0.0/8")
	trusted := []*net.IPNet{n}
	tests := []struct {
		addr string
		want bool
	}{
		{"10.1.2.3:80", true},
		{"10.1.2.3", true},
		{"11.0.0.1:80", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := isTrustedPeer(tt.addr, trusted); got != tt.want {
			t.Errorf("isTrustedPeer(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
	if isTrustedPeer("10.1.2.3:80", nil) {
		t.Error("no peer is trusted without configuration")
	}
}

func TestClientIP(t *testing.T) {
	tests := map[string]string{
		"192.168.1.1:1234": "192.168.1.1",
		"203.0.113.7":      "203.0.113.7",
		"[::1]:8080":       "::1",
	}
	for in, want := range tests {
		if got := clientIP(in); got != want {
			t.Errorf("clientIP(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://app.example.com", "*.example.org"}
	tests := []struct {
		origin string
		want   bool
	}{
		{"https://app.example.com", true},
		{"https://a.example.org", true},
		{"https://example.org", true},
		{"https://example.com", false},
		{"https://evil.com", false},
	}
	for _, tt := range tests {
		if got := isOriginAllowed(tt.origin, allowed); got != tt.want {
			t.Errorf("isOriginAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

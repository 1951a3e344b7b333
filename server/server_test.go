package server

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/onnwee/dolt-app/testutil"
)

func TestHealth(t *testing.T) {
	h := newTestMux(t, newUnreachableApp(t))

	rr := serve(t, h, http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"status":"healthy"}` {
		t.Fatalf("body = %q", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestRootEchoesConfigWithUpstreamsDown(t *testing.T) {
	a := newUnreachableApp(t)
	h := newTestMux(t, a)

	rr := serve(t, h, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeMap(t, rr)
	if resp["message"] != "Dolt Application is running" || resp["status"] != "ok" {
		t.Errorf("unexpected banner %v", resp)
	}
	if resp["dolt_host"] != "127.0.0.1" {
		t.Errorf("dolt_host = %v", resp["dolt_host"])
	}
	if resp["dolt_port"] != float64(1) {
		t.Errorf("dolt_port = %v", resp["dolt_port"])
	}
	if resp["keycloak_url"] != a.Config.KeycloakURL {
		t.Errorf("keycloak_url = %v, want %s", resp["keycloak_url"], a.Config.KeycloakURL)
	}
}

func TestUnknownPathAndMethod(t *testing.T) {
	h := newTestMux(t, newUnreachableApp(t))

	if rr := serve(t, h, http.MethodGet, "/nope"); rr.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", rr.Code)
	}
	if rr := serve(t, h, http.MethodPost, "/health"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health = %d, want 405", rr.Code)
	}
	if rr := serve(t, h, http.MethodGet, "/test/dolt/create-db/x"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET create-db = %d, want 405", rr.Code)
	}
}

func TestCorrelationID(t *testing.T) {
	h := newTestMux(t, newUnreachableApp(t))

	rr := serve(t, h, http.MethodGet, "/health")
	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Fatal("expected generated X-Correlation-ID")
	}

	req := newRequest(http.MethodGet, "/health")
	req.Header.Set("X-Correlation-ID", "corr-42")
	rr = record(h, req)
	if got := rr.Header().Get("X-Correlation-ID"); got != "corr-42" {
		t.Fatalf("X-Correlation-ID = %q, want corr-42", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestMux(t, newUnreachableApp(t))
	serve(t, h, http.MethodGet, "/test/dolt")

	rr := serve(t, h, http.MethodGet, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"dolt_app_upstream_checks_total", "dolt_app_http_requests_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestMux(t, newUnreachableApp(t))

	req := newRequest(http.MethodOptions, "/test/dolt")
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rr := record(h, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", rr.Code)
	}
	for _, hdr := range []string{"Access-Control-Allow-Origin", "Access-Control-Allow-Methods", "Access-Control-Allow-Headers"} {
		if rr.Header().Get(hdr) == "" {
			t.Errorf("missing CORS header: %s", hdr)
		}
	}
}

func TestCORSRestricted(t *testing.T) {
	cfg := newTestConfig()
	cfg.Env = "production"
	cfg.CORSAllowedOrigins = []string{"https://app.example.com", "*.example.org"}
	h := newTestMux(t, newTestApp(t, cfg, withDB(testutil.NewSQLiteDB(t)), nil))

	tests := []struct {
		origin string
		want   string
	}{
		{"https://app.example.com", "https://app.example.com"},
		{"https://x.example.org", "https://x.example.org"},
		{"https://evil.example.net", ""},
	}
	for _, tt := range tests {
		req := newRequest(http.MethodGet, "/health")
		req.Header.Set("Origin", tt.origin)
		rr := record(h, req)
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: Allow-Origin = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestStartAndShutdown(t *testing.T) {
	a := newUnreachableApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Start(ctx, a, "127.0.0.1:0") }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

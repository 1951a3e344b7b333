package main

import "testing"

func TestHealthURL(t *testing.T) {
	tests := map[string]string{
		"":             "http://localhost:8080/health",
		":8080":        "http://localhost:8080/health",
		"0.0.0.0:9000": "http://localhost:9000/health",
		"[::]:7000":    "http://localhost:7000/health",
		"host:":        "http://localhost:8080/health",
	}
	for in, want := range tests {
		if got := healthURL(in); got != want {
			t.Errorf("healthURL(%q) = %q, want %q", in, got, want)
		}
	}
}

// Package server exposes the HTTP API: the liveness banner, health and readiness probes,
// metrics, and the Dolt / Keycloak connectivity tests. Every request gets a correlation id
// and a tracing span; CORS is permissive in development.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/dolt-app/app"
	"github.com/onnwee/dolt-app/telemetry"
)

// NewMux returns the HTTP handler with all routes.
// The provided context bounds the rate limiter cleanup goroutine.
func NewMux(ctx context.Context, a *app.App) http.Handler {
	cfg := a.Config
	rateLimiter := newIPRateLimiter(ctx, &rateLimiterConfig{
		enabled:       cfg.RateLimitEnabled,
		requestsPerIP: cfg.RateLimitRequestsPerIP,
		window:        cfg.RateLimitWindow(),
	})
	trusted, err := cfg.TrustedProxyNets()
	if err != nil {
		slog.Warn("ignoring TRUSTED_PROXIES", slog.Any("err", err))
	}
	corsCfg := &corsConfig{allowedOrigins: cfg.CORSAllowedOrigins, permissive: cfg.CORSIsPermissive()}
	if !corsCfg.permissive && len(corsCfg.allowedOrigins) == 0 {
		slog.Warn("CORS restricted mode enabled but no CORS_ALLOWED_ORIGINS configured - all CORS requests will be blocked")
	}

	h := NewHandlers(a)

	mux := http.NewServeMux()

	// Metrics endpoint
	mux.Handle("GET /metrics", promhttp.Handler())

	// Banner, health and readiness
	mux.HandleFunc("GET /{$}", h.HandleRoot)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /readyz", h.HandleReadyz)

	// Connectivity tests
	mux.HandleFunc("GET /test/dolt", h.HandleTestDolt)
	mux.HandleFunc("GET /test/dolt/databases", h.HandleListDatabases)
	mux.Handle("POST /test/dolt/create-db/{name}", rateLimitMiddleware(http.HandlerFunc(h.HandleCreateDatabase), rateLimiter))
	mux.HandleFunc("GET /test/keycloak", h.HandleTestKeycloak)

	// Wrap with correlation ID injector and tracing middleware
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reuse corr header if provided else generate
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPRouteAttr(r.URL.Path),
			telemetry.HTTPURLAttr(r.URL.String()),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		mux.ServeHTTP(rec, r.WithContext(ctx))

		telemetry.CountRequest(r.Method, rec.statusCode)
		telemetry.SetSpanHTTPStatus(span, rec.statusCode)
		if rec.statusCode >= 400 {
			code, msg := telemetry.ErrorStatus(fmt.Sprintf("HTTP %d", rec.statusCode))
			span.SetStatus(code, msg)
		}
	})

	recovered := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slogRecoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)(handler)
	return withTrustedProxies(withCORSConfig(recovered, corsCfg), trusted)
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// slogRecoveryLogger routes gorilla's panic reports to slog.
type slogRecoveryLogger struct{}

func (slogRecoveryLogger) Println(v ...interface{}) {
	slog.Error("panic recovered in http handler", slog.String("panic", fmt.Sprint(v...)), slog.String("component", "http"))
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, a *app.App, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(ctx, a),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}

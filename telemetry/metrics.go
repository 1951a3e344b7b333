// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream names used as metric labels.
const (
	UpstreamDolt     = "dolt"
	UpstreamKeycloak = "keycloak"
)

var (
	once sync.Once

	// Counters
	UpstreamChecks *prometheus.CounterVec // labels: upstream, result
	HTTPRequests   *prometheus.CounterVec // labels: method, code

	// Histograms (seconds)
	UpstreamDuration *prometheus.HistogramVec // labels: upstream
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		UpstreamChecks = promauto.NewCounterVec(prometheus.CounterOpts{Name: "dolt_app_upstream_checks_total", Help: "Upstream calls by upstream and result (success|failure)"}, []string{"upstream", "result"})
		HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "dolt_app_http_requests_total", Help: "HTTP requests by method and status code"}, []string{"method", "code"})
		UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "dolt_app_upstream_duration_seconds", Help: "Upstream call duration seconds", Buckets: prometheus.DefBuckets}, []string{"upstream"})
	})
}

// ObserveUpstream records one upstream call. No-op before Init.
func ObserveUpstream(upstream string, d time.Duration, err error) {
	if UpstreamChecks == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	UpstreamChecks.WithLabelValues(upstream, result).Inc()
	UpstreamDuration.WithLabelValues(upstream).Observe(d.Seconds())
}

// CountRequest records a served HTTP request. No-op before Init.
func CountRequest(method string, code int) {
	if HTTPRequests == nil {
		return
	}
	HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

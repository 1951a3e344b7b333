// Command dolt-app serves connectivity checks for a Dolt SQL server and a Keycloak realm.
// It:
//   - Loads configuration and initializes structured logging.
//   - Builds the Dolt pool and the Keycloak client once, logging construction faults.
//   - Exposes /, /health, /readyz, /metrics and the /test/* endpoints.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/onnwee/dolt-app/app"
	"github.com/onnwee/dolt-app/config"
	"github.com/onnwee/dolt-app/server"
	"github.com/onnwee/dolt-app/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	logger, unknownLevel := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if unknownLevel {
		slog.Warn("unknown LOG_LEVEL, using info", slog.String("value", cfg.LogLevel))
	}
	slog.Info("logger initialized", slog.String("level", cfg.LogLevel), slog.String("format", cfg.LogFormat))

	telemetry.Init()

	// Tracing is optional; requires OTEL_EXPORTER_OTLP_ENDPOINT
	shutdown, err := telemetry.InitTracing("dolt-app", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()
	slog.Info("telemetry initialized", slog.Bool("tracing", telemetry.IsTracingEnabled()))

	a := app.New(cfg)
	a.Warm()
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("failed to close dolt pool", slog.Any("err", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, a, cfg.HTTPAddr); err != nil {
		slog.Error("http server exited with error", slog.Any("err", err))
		return
	}
	slog.Info("shutting down")
}

// newLogger builds the process logger. The bool reports an unrecognised level.
func newLogger(w io.Writer, level, format string) (*slog.Logger, bool) {
	lvl := slog.LevelInfo
	unknown := false
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		unknown = true
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), unknown
}

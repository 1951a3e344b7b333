package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/dolt-app/app"
	"github.com/onnwee/dolt-app/config"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	app *app.App
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(a *app.App) *Handlers {
	return &Handlers{app: a, cfg: a.Config}
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	// Set headers before writing status code
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err))
	}
}

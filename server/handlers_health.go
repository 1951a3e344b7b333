package server

import (
	"context"
	"net/http"
)

type rootResponse struct {
	Message     string `json:"message"`
	Status      string `json:"status"`
	DoltHost    string `json:"dolt_host"`
	DoltPort    int    `json:"dolt_port"`
	KeycloakURL string `json:"keycloak_url"`
}

// HandleRoot returns the liveness banner with the configured upstream locations.
// It never touches the upstreams.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message:     "Dolt Application is running",
		Status:      "ok",
		DoltHost:    h.cfg.DoltHost,
		DoltPort:    h.cfg.DoltPort,
		KeycloakURL: h.cfg.KeycloakURL,
	})
}

// HandleHealth responds to liveness probes.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// HandleReadyz checks that both upstreams answer.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"dolt", func(ctx context.Context) error {
			dbx, err := h.app.Dolt()
			if err != nil {
				return err
			}
			return dbx.PingContext(ctx)
		}},
		{"keycloak", func(ctx context.Context) error {
			c, err := h.app.Identity()
			if err != nil {
				return err
			}
			_, err = c.WellKnown(ctx)
			return err
		}},
	}

	for _, check := range checks {
		if err := check.fn(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

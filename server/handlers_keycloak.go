package server

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/dolt-app/identity"
	"github.com/onnwee/dolt-app/telemetry"
)

type testKeycloakResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Realm         string `json:"realm"`
	Issuer        string `json:"issuer"`
	ClientID      string `json:"client_id,omitempty"`
	TokenEndpoint string `json:"token_endpoint,omitempty"`
}

// HandleTestKeycloak fetches the realm's discovery document.
func (h *Handlers) HandleTestKeycloak(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "keycloak", "GET well-known", telemetry.UpstreamAttr(telemetry.UpstreamKeycloak))
	start := time.Now()
	var oc *oauth2.Config
	d, err := func() (*identity.Discovery, error) {
		c, err := h.app.Identity()
		if err != nil {
			return nil, err
		}
		d, err := c.WellKnown(ctx)
		if err != nil {
			return nil, err
		}
		oc = c.OAuth2Config(d)
		return d, nil
	}()
	telemetry.EndUpstreamSpan(span, telemetry.UpstreamKeycloak, start, err)
	if err != nil {
		writeError(w, r, &Error{
			Kind:    Classify(err),
			Message: fmt.Sprintf("Keycloak connection failed: %v", err),
			Cause:   err,
		})
		return
	}
	issuer := d.Issuer
	if issuer == "" {
		issuer = "unknown"
	}
	writeJSON(w, http.StatusOK, testKeycloakResponse{
		Status:        "success",
		Message:       "Keycloak connection successful",
		Realm:         h.cfg.KeycloakRealm,
		Issuer:        issuer,
		ClientID:      oc.ClientID,
		TokenEndpoint: oc.Endpoint.TokenURL,
	})
}

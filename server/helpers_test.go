package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/onnwee/dolt-app/app"
	"github.com/onnwee/dolt-app/config"
	"github.com/onnwee/dolt-app/db"
	"github.com/onnwee/dolt-app/testutil"
)

func newTestConfig() *config.Config {
	return &config.Config{
		DoltHost:               "dolt-test",
		DoltPort:               3306,
		KeycloakURL:            "https://keycloak:8443",
		KeycloakRealm:          "master",
		RateLimitEnabled:       true,
		RateLimitRequestsPerIP: 100,
		RateLimitWindowSeconds: 60,
	}
}

// withDB returns an opener that hands out dbx.
func withDB(dbx *sqlx.DB) app.DoltOpener {
	return func(*config.Config) (*sqlx.DB, error) { return dbx, nil }
}

// newTestApp wires cfg to the given Dolt opener and to idp (when non-nil).
func newTestApp(t *testing.T, cfg *config.Config, openDolt app.DoltOpener, idp *testutil.MockIdentityServer) *app.App {
	t.Helper()
	if idp != nil {
		cfg.KeycloakURL = idp.URL
	}
	return app.NewWithOpeners(cfg, openDolt, app.OpenIdentity)
}

// unreachableConfig points Dolt at a closed local port and Keycloak at a dead server.
func unreachableConfig(t *testing.T) *config.Config {
	t.Helper()
	idp := testutil.NewMockIdentityServer(t)
	dead := idp.URL
	idp.Close()

	cfg := newTestConfig()
	cfg.DoltHost = "127.0.0.1"
	cfg.DoltPort = 1
	cfg.KeycloakURL = dead
	return cfg
}

func newUnreachableApp(t *testing.T) *app.App {
	t.Helper()
	a := app.NewWithOpeners(unreachableConfig(t), db.Open, app.OpenIdentity)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func newRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

func record(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	return record(h, newRequest(method, target))
}

func newTestMux(t *testing.T, a *app.App) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewMux(ctx, a)
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body=%q)", err, rr.Body.String())
	}
	return out
}

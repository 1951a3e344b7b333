// Package app owns the process-wide upstream client handles. Both handles are built at
// most once; main builds them eagerly at startup and the HTTP handlers only read them.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/onnwee/dolt-app/config"
	"github.com/onnwee/dolt-app/db"
	"github.com/onnwee/dolt-app/identity"
)

var (
	// ErrDoltUnavailable wraps a failure to construct the Dolt handle.
	ErrDoltUnavailable = errors.New("failed to create Dolt engine")
	// ErrIdentityUnavailable wraps a failure to construct the Keycloak client.
	ErrIdentityUnavailable = errors.New("failed to create Keycloak client")
)

// DoltOpener builds the Dolt handle from configuration.
type DoltOpener func(cfg *config.Config) (*sqlx.DB, error)

// IdentityOpener builds the identity client from configuration.
type IdentityOpener func(cfg *config.Config) (*identity.Client, error)

// App is the application context shared by every handler.
type App struct {
	Config *config.Config

	dolt     func() (*sqlx.DB, error)
	identity func() (*identity.Client, error)
}

// New returns an App using the real driver and OIDC client.
func New(cfg *config.Config) *App {
	return NewWithOpeners(cfg, db.Open, OpenIdentity)
}

// NewWithOpeners returns an App whose handles are built by the given openers. Each
// opener runs at most once, even under concurrent first use; its result, fault included,
// is memoized for the life of the App.
func NewWithOpeners(cfg *config.Config, openDolt DoltOpener, openIdentity IdentityOpener) *App {
	a := &App{Config: cfg}
	a.dolt = sync.OnceValues(func() (*sqlx.DB, error) {
		dbx, err := openDolt(cfg)
		if err != nil {
			slog.Error("error creating dolt engine", slog.Any("err", err), slog.String("addr", cfg.DoltAddr()), slog.String("component", "app"))
			return nil, fmt.Errorf("%w: %w", ErrDoltUnavailable, err)
		}
		slog.Info("dolt engine created", slog.String("addr", cfg.DoltAddr()), slog.String("component", "app"))
		return dbx, nil
	})
	a.identity = sync.OnceValues(func() (*identity.Client, error) {
		c, err := openIdentity(cfg)
		if err != nil {
			slog.Error("error connecting to keycloak", slog.Any("err", err), slog.String("url", cfg.KeycloakURL), slog.String("component", "app"))
			return nil, fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
		}
		slog.Info("keycloak client created", slog.String("url", cfg.KeycloakURL), slog.String("realm", cfg.KeycloakRealm), slog.String("component", "app"))
		return c, nil
	})
	return a
}

// OpenIdentity builds the Keycloak client with the fixed technical client id.
func OpenIdentity(cfg *config.Config) (*identity.Client, error) {
	return identity.New(cfg.KeycloakURL, cfg.KeycloakRealm, config.KeycloakClientID)
}

// Warm builds both handles now so construction faults show up in the startup logs.
// Faults are not fatal; the affected endpoints report them per request.
func (a *App) Warm() {
	_, _ = a.Dolt()
	_, _ = a.Identity()
}

// Dolt returns the shared Dolt handle, building it on first use.
func (a *App) Dolt() (*sqlx.DB, error) { return a.dolt() }

// Identity returns the shared Keycloak client, building it on first use.
func (a *App) Identity() (*identity.Client, error) { return a.identity() }

// Close releases the Dolt pool if it was built.
func (a *App) Close() error {
	dbx, err := a.Dolt()
	if err != nil || dbx == nil {
		return nil
	}
	return dbx.Close()
}

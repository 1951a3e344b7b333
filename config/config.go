// Package config loads environment variables into a typed Config used across the service.
// Every field has a default so the binary runs next to a docker-compose Dolt and Keycloak
// without any setup. Only type coercion is performed; a non-numeric DOLT_PORT fails Load.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Fixed connection parameters for the upstream clients.
const (
	DoltUser           = "root"
	DoltCharset        = "utf8mb4"
	DoltConnectTimeout = 10 * time.Second
	DoltConnMaxLife    = 3600 * time.Second

	KeycloakClientID = "admin-cli"
)

type Config struct {
	// Dolt
	DoltHost string `env:"DOLT_HOST" envDefault:"dolt"`
	DoltPort int    `env:"DOLT_PORT" envDefault:"3306"`

	// Keycloak
	KeycloakURL   string `env:"KEYCLOAK_URL" envDefault:"https://keycloak:8443"`
	KeycloakRealm string `env:"KEYCLOAK_REALM" envDefault:"master"`

	// HTTP
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// CORS: permissive unless ENV names a non-dev environment; CORS_PERMISSIVE overrides.
	Env                string   `env:"ENV"`
	CORSPermissive     string   `env:"CORS_PERMISSIVE"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Rate limiting of mutating endpoints
	RateLimitEnabled       bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRequestsPerIP int  `env:"RATE_LIMIT_REQUESTS_PER_IP" envDefault:"10"`
	RateLimitWindowSeconds int  `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`

	// Proxies (IPs or CIDRs) whose X-Forwarded-For / X-Real-IP headers are honoured
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Load reads environment variables and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.TrustedProxyNets(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TrustedProxyNets parses TrustedProxies. A bare IP is treated as a single-host network.
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", entry)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", entry, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// CORSIsPermissive reports whether every origin is allowed.
func (c *Config) CORSIsPermissive() bool {
	if c.CORSPermissive != "" {
		return c.CORSPermissive == "1" || strings.EqualFold(c.CORSPermissive, "true")
	}
	mode := strings.ToLower(c.Env)
	return mode == "" || mode == "dev" || mode == "development"
}

// RateLimitWindow returns the limiter window, falling back to one minute.
func (c *Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// DoltAddr returns host:port for the Dolt server.
func (c *Config) DoltAddr() string {
	return c.DoltHost + ":" + strconv.Itoa(c.DoltPort)
}

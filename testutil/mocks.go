package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockIdentityServer is a TLS test server (self-signed) that mocks a Keycloak realm.
type MockIdentityServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
}

// NewMockIdentityServer creates a new mock identity provider.
func NewMockIdentityServer(t *testing.T) *MockIdentityServer {
	t.Helper()
	m := &MockIdentityServer{
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	m.Server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		m.mu.Lock()
		m.hits[key]++
		handler, ok := m.handlers[key]
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Handle registers fn for path.
func (m *MockIdentityServer) Handle(path string, fn http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = fn
}

// Hits returns how many requests reached path.
func (m *MockIdentityServer) Hits(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[path]
}

// DiscoveryPath is the well-known path for realm.
func DiscoveryPath(realm string) string {
	return "/realms/" + realm + "/.well-known/openid-configuration"
}

// MockDiscovery serves a discovery document for realm. An empty issuer omits the field.
func (m *MockIdentityServer) MockDiscovery(realm, issuer string) {
	m.Handle(DiscoveryPath(realm), func(w http.ResponseWriter, r *http.Request) {
		base := m.URL + "/realms/" + realm + "/protocol/openid-connect"
		response := map[string]interface{}{
			"authorization_endpoint": base + "/auth",
			"token_endpoint":         base + "/token",
			"userinfo_endpoint":      base + "/userinfo",
			"jwks_uri":               base + "/certs",
		}
		if issuer != "" {
			response["issuer"] = issuer
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	})
}

// MockDiscoveryStatus makes the realm's discovery endpoint answer with status.
func (m *MockIdentityServer) MockDiscoveryStatus(realm string, status int) {
	m.Handle(DiscoveryPath(realm), func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(status), status)
	})
}

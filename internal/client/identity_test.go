package client

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/provisioner/internal/events"
	"github.com/wolfeidau/provisioner/internal/faults"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/security"
)

func newTestMinter(t *testing.T) *security.Minter {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tokens := security.NewTokenProvider(&security.SystemKeys{
		Timestamp:  "2019-01-01T00_00_00",
		PrivateKey: key,
	})
	return security.NewMinter(tokens, time.Minute)
}

func newTestIdentity(t *testing.T, handler http.Handler) (*Identity, *events.Registry, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	registry := events.NewRegistry()
	identity := NewIdentity(NewCaller(server.Client()), newTestMinter(t), registry, "local")
	return identity, registry, server
}

func TestInitializeTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("first initialization returns the password", func(t *testing.T) {
		var gotPassword, gotRawQuery, gotTenant, gotAuth string

		identity, _, server := newTestIdentity(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/identity/v1/initialize", r.URL.Path)
			gotPassword = r.URL.Query().Get("password")
			gotRawQuery = r.URL.RawQuery
			gotTenant = r.Header.Get(HeaderTenant)
			gotAuth = r.Header.Get("Authorization")

			_ = json.NewEncoder(w).Encode(models.ApplicationSignatureSet{Timestamp: "2019-01-01T00_00_00"})
		}))

		// The hash for this tenant and domain contains a '+' and the base64
		// padding '=', so the decoded parameter only survives intact when the
		// parameter is query-encoded on the way out.
		result, err := identity.InitializeTenant(ctx, "initech", "identity", server.URL+"/identity/v1")
		require.NoError(t, err)

		assert.Equal(t, security.HashAdminPassword("initech", "local"), result.AdminPassword)
		assert.Equal(t, result.AdminPassword, gotPassword)
		assert.Equal(t, url.Values{"password": {result.AdminPassword}}.Encode(), gotRawQuery)
		assert.Equal(t, "2019-01-01T00_00_00", result.SignatureSet.Timestamp)
		assert.Equal(t, "initech", gotTenant)
		assert.Contains(t, gotAuth, "Bearer ")
	})

	t.Run("already initialized returns the existing set and no password", func(t *testing.T) {
		identity, _, server := newTestIdentity(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/identity/v1/initialize":
				w.WriteHeader(http.StatusConflict)
			case "/identity/v1/signatures/_latest":
				_ = json.NewEncoder(w).Encode(models.ApplicationSignatureSet{Timestamp: "2018-06-01T00_00_00"})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))

		result, err := identity.InitializeTenant(ctx, "acme", "identity", server.URL+"/identity/v1")
		require.NoError(t, err)

		assert.Empty(t, result.AdminPassword)
		assert.Equal(t, "2018-06-01T00_00_00", result.SignatureSet.Timestamp)
	})

	t.Run("rejected token surfaces as conflict", func(t *testing.T) {
		identity, _, server := newTestIdentity(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := identity.InitializeTenant(ctx, "acme", "identity", server.URL+"/identity/v1")
		require.Error(t, err)
		assert.Equal(t, faults.CodeConflict, faults.CodeOf(err))
		assert.Contains(t, err.Error(), "system keys")
	})
}

func TestCreateOrFindPermittableGroup(t *testing.T) {
	ctx := context.Background()

	group := models.PermittableGroup{
		Identifier: "office",
		Permittables: []models.PermittableEndpoint{
			{Path: "/offices", Method: "POST", GroupID: "office"},
		},
	}

	t.Run("create leaves the expectation pending for the ack", func(t *testing.T) {
		identity, registry, server := newTestIdentity(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/identity/v1/permittablegroups", r.URL.Path)
			w.WriteHeader(http.StatusCreated)
		}))

		expectation := identity.CreateOrFindPermittableGroup(ctx, "acme", "identity", server.URL+"/identity/v1", group)
		require.NotNil(t, expectation)
		assert.Equal(t, 1, registry.Pending())

		// Ack arrives from the bus.
		registry.Signal(expectation.Key())
		assert.True(t, expectation.Wait(time.Second))
	})

	t.Run("already exists withdraws the expectation and compares", func(t *testing.T) {
		var fetched bool
		identity, registry, server := newTestIdentity(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodPost:
				w.WriteHeader(http.StatusConflict)
			case r.Method == http.MethodGet && r.URL.Path == "/identity/v1/permittablegroups/office":
				fetched = true
				_ = json.NewEncoder(w).Encode(group)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))

		expectation := identity.CreateOrFindPermittableGroup(ctx, "acme", "identity", server.URL+"/identity/v1", group)

		assert.True(t, fetched)
		assert.Equal(t, 0, registry.Pending())

		// Withdrawn, so waiting returns false immediately.
		started := time.Now()
		assert.False(t, expectation.Wait(5*time.Second))
		assert.Less(t, time.Since(started), time.Second)
	})

	t.Run("create failure withdraws the expectation", func(t *testing.T) {
		identity, registry, server := newTestIdentity(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		expectation := identity.CreateOrFindPermittableGroup(ctx, "acme", "identity", server.URL+"/identity/v1", group)

		assert.Equal(t, 0, registry.Pending())
		assert.False(t, expectation.Wait(time.Second))
	})
}

func TestPushApplicationSignature(t *testing.T) {
	ctx := context.Background()

	set := models.ApplicationSignatureSet{
		Timestamp:            "2019-01-01T00_00_00",
		ApplicationSignature: models.Signature{PublicKeyMod: "abc", PublicKeyExp: "AQAB"},
	}

	t.Run("pushes the signature under the timestamped path", func(t *testing.T) {
		var gotPath string
		var gotSignature models.Signature

		identity, registry, server := newTestIdentity(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPut, r.Method)
			gotPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotSignature))
			w.WriteHeader(http.StatusOK)
		}))

		expectation := identity.PushApplicationSignature(ctx, "acme", "identity", server.URL+"/identity/v1", "portfolio", set)

		assert.Equal(t, "/identity/v1/applications/portfolio/signatures/2019-01-01T00_00_00", gotPath)
		assert.Equal(t, set.ApplicationSignature, gotSignature)
		assert.Equal(t, 1, registry.Pending())

		registry.Signal(expectation.Key())
		assert.True(t, expectation.Wait(time.Second))
	})

	t.Run("failed push withdraws the expectation", func(t *testing.T) {
		identity, registry, server := newTestIdentity(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		expectation := identity.PushApplicationSignature(ctx, "acme", "identity", server.URL+"/identity/v1", "portfolio", set)

		assert.Equal(t, 0, registry.Pending())
		assert.False(t, expectation.Wait(time.Second))
	})
}

func TestCreateOrFindApplicationPermission(t *testing.T) {
	ctx := context.Background()

	permission := models.Permission{
		PermittableGroupIdentifier: "office",
		AllowedOperations:          models.AllOperations(),
	}

	t.Run("already exists fetches and compares without error", func(t *testing.T) {
		var fetched bool
		identity, _, server := newTestIdentity(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				w.WriteHeader(http.StatusConflict)
			case http.MethodGet:
				fetched = true
				require.Equal(t, "/identity/v1/applications/portfolio/permissions/office", r.URL.Path)
				_ = json.NewEncoder(w).Encode(permission)
			}
		}))

		identity.CreateOrFindApplicationPermission(ctx, "acme", "identity", server.URL+"/identity/v1", "portfolio", permission)
		assert.True(t, fetched)
	})
}

package costengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/costwise/keygate/internal/errs"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, RootKey: "root-secret"})
}

func TestReady(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/admin/v1/bootstrap/status", r.URL.Path)
		require.Equal(t, "root-secret", r.Header.Get("X-Root-Key"))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	ok, err := c.Ready(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReady_NotReady(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "initializing"})
	})

	ok, err := c.Ready(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCreateOrganization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/admin/v1/organizations", r.URL.Path)
		require.Equal(t, "root-secret", r.Header.Get("X-Root-Key"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req OnboardRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "acme", req.OrgSlug)
		require.True(t, req.RegenerateIfExists)

		_ = json.NewEncoder(w).Encode(OnboardResponse{OrgSlug: "acme", APIKey: "sk_live_new"})
	})

	out, err := c.CreateOrganization(context.Background(), OnboardRequest{
		OrgSlug: "acme", CompanyName: "Acme Corp", Plan: "starter", RegenerateIfExists: true,
	})
	require.NoError(t, err)
	require.Equal(t, "sk_live_new", out.APIKey)
}

func TestCreateOrganization_ActiveConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "organization_active", "message": "already onboarded"})
	})

	_, err := c.CreateOrganization(context.Background(), OnboardRequest{OrgSlug: "acme"})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestCreateOrganization_OtherConflict(t *testing.T) {
	// a 409 with a different code is not the regenerate case
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "slug_reserved"})
	})

	_, err := c.CreateOrganization(context.Background(), OnboardRequest{OrgSlug: "acme"})
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestRotateKey_OrgAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/keys/rotate", r.URL.Path)
		require.Equal(t, "sk_live_old", r.Header.Get("X-Org-Key"))
		require.Empty(t, r.Header.Get("X-Root-Key"))
		_ = json.NewEncoder(w).Encode(map[string]string{"api_key": "sk_live_new"})
	})

	key, err := c.RotateKey(context.Background(), "acme", "sk_live_old")
	require.NoError(t, err)
	require.Equal(t, "sk_live_new", key)
}

func TestUpdateLimits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/admin/v1/organizations/acme/limits", r.URL.Path)

		var lim Limits
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lim))
		require.Equal(t, "STARTER", lim.Plan)
		require.Equal(t, "ACTIVE", lim.Status)
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.UpdateLimits(context.Background(), "acme", Limits{
		Plan: "STARTER", Status: "ACTIVE", MonthlyQuota: 100000, Seats: 5,
	})
	require.NoError(t, err)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, errs.ErrEngineAuth},
		{"forbidden", http.StatusForbidden, errs.ErrEngineAuth},
		{"not found", http.StatusNotFound, errs.ErrNotFound},
		{"server error", http.StatusInternalServerError, errs.ErrEngineUnavailable},
		{"bad gateway", http.StatusBadGateway, errs.ErrEngineUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			err := c.VerifyKey(context.Background(), "sk_live_x")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, RootKey: "root-secret", ProbeTimeout: 20 * time.Millisecond})
	_, err := c.Ready(context.Background())
	require.ErrorIs(t, err, errs.ErrEngineTimeout)
}

func TestTransportError(t *testing.T) {
	// point at a closed server
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(Config{BaseURL: srv.URL, RootKey: "root-secret"})
	_, err := c.Ready(context.Background())
	require.ErrorIs(t, err, errs.ErrEngineUnavailable)
}

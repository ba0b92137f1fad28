// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package oauthflow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-auth-service/internal/models"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/oauthflow"
	"codeberg.org/oliverandrich/go-auth-service/internal/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a minimal OAuth2 provider: a token endpoint that accepts
// any code and a userinfo endpoint guarded by the issued bearer token.
func fakeProvider(t *testing.T, userinfo map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code_verifier") == "" {
			http.Error(w, "missing code verifier", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "provider-access-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-access-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userinfo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newCoordinator(t *testing.T, srv *httptest.Server) (*oauthflow.Coordinator, *miniredis.Miniredis) {
	t.Helper()
	mr, client := testutil.NewTestRedis(t)
	providers := map[string]oauthflow.Provider{
		models.ProviderGoogle: {
			Config:      testutil.NewOAuthConfig(srv.URL),
			UserInfoURL: srv.URL + "/userinfo",
		},
	}
	return oauthflow.NewCoordinatorWithProviders(providers, client, srv.Client(), oauthflow.StateTTL), mr
}

func stateFromURL(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestInitiate(t *testing.T) {
	srv := fakeProvider(t, nil)
	c, _ := newCoordinator(t, srv)

	redirect, err := c.Initiate(context.Background(), models.ProviderGoogle)
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	q := u.Query()
	assert.NotEmpty(t, q.Get("state"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
}

func TestInitiate_UnknownProvider(t *testing.T) {
	srv := fakeProvider(t, nil)
	c, _ := newCoordinator(t, srv)

	_, err := c.Initiate(context.Background(), "github")
	assert.ErrorIs(t, err, oauthflow.ErrUnknownProvider)
}

func TestComplete(t *testing.T) {
	srv := fakeProvider(t, map[string]any{
		"given_name":  "Jane",
		"family_name": "Doe",
		"email":       "jane@example.com",
		"birthdate":   "1990-04-01",
		"picture":     "https://example.com/jane.png",
	})
	c, _ := newCoordinator(t, srv)
	ctx := context.Background()

	redirect, err := c.Initiate(ctx, models.ProviderGoogle)
	require.NoError(t, err)
	state := stateFromURL(t, redirect)

	profile, err := c.Complete(ctx, models.ProviderGoogle, "any-code", state)
	require.NoError(t, err)
	assert.Equal(t, "Jane", profile.FirstName)
	assert.Equal(t, "Doe", profile.LastName)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.Equal(t, "1990-04-01", profile.DateOfBirth)
	assert.Equal(t, "https://example.com/jane.png", profile.Picture)
}

func TestComplete_StateSingleUse(t *testing.T) {
	srv := fakeProvider(t, map[string]any{
		"given_name":  "Jane",
		"family_name": "Doe",
		"email":       "jane@example.com",
		"birthdate":   "1990-04-01",
	})
	c, _ := newCoordinator(t, srv)
	ctx := context.Background()

	redirect, err := c.Initiate(ctx, models.ProviderGoogle)
	require.NoError(t, err)
	state := stateFromURL(t, redirect)

	_, err = c.Complete(ctx, models.ProviderGoogle, "any-code", state)
	require.NoError(t, err)

	_, err = c.Complete(ctx, models.ProviderGoogle, "any-code", state)
	assert.ErrorIs(t, err, oauthflow.ErrInvalidState)
}

func TestComplete_ExpiredState(t *testing.T) {
	srv := fakeProvider(t, nil)
	c, mr := newCoordinator(t, srv)
	ctx := context.Background()

	redirect, err := c.Initiate(ctx, models.ProviderGoogle)
	require.NoError(t, err)
	state := stateFromURL(t, redirect)

	mr.FastForward(oauthflow.StateTTL + time.Second)

	_, err = c.Complete(ctx, models.ProviderGoogle, "any-code", state)
	assert.ErrorIs(t, err, oauthflow.ErrInvalidState)
}

func TestComplete_UnknownState(t *testing.T) {
	srv := fakeProvider(t, nil)
	c, _ := newCoordinator(t, srv)

	_, err := c.Complete(context.Background(), models.ProviderGoogle, "any-code", "forged-state")
	assert.ErrorIs(t, err, oauthflow.ErrInvalidState)
}

func TestComplete_IncompleteProfile(t *testing.T) {
	srv := fakeProvider(t, map[string]any{
		"given_name": "Jane",
		"email":      "jane@example.com",
		// family_name and birthdate missing
	})
	c, _ := newCoordinator(t, srv)
	ctx := context.Background()

	redirect, err := c.Initiate(ctx, models.ProviderGoogle)
	require.NoError(t, err)
	state := stateFromURL(t, redirect)

	_, err = c.Complete(ctx, models.ProviderGoogle, "any-code", state)
	assert.ErrorIs(t, err, oauthflow.ErrIncompleteProfile)
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package revocation_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-auth-service/internal/services/revocation"
	"codeberg.org/oliverandrich/go-auth-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokeAndCheck(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	store := revocation.NewStore(client)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "tid-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "tid-1", 7, time.Now().Add(time.Hour)))

	revoked, err = store.IsRevoked(ctx, "tid-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Entry expires with the token itself.
	mr.FastForward(2 * time.Hour)
	revoked, err = store.IsRevoked(ctx, "tid-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevoke_Idempotent(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := revocation.NewStore(client)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	require.NoError(t, store.Revoke(ctx, "tid-2", 7, exp))
	require.NoError(t, store.Revoke(ctx, "tid-2", 7, exp))

	revoked, err := store.IsRevoked(ctx, "tid-2")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevokeOnce_SingleWinner(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := revocation.NewStore(client)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)

	won, err := store.RevokeOnce(ctx, "tid-3", 7, exp)
	require.NoError(t, err)
	assert.True(t, won)

	// Second presentation of the same token id loses.
	won, err = store.RevokeOnce(ctx, "tid-3", 7, exp)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestRevoke_ExpiredTokenSkipped(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := revocation.NewStore(client)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "tid-4", 7, time.Now().Add(-time.Minute)))

	revoked, err := store.IsRevoked(ctx, "tid-4")
	require.NoError(t, err)
	assert.False(t, revoked)
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/go-auth-service/internal/models"
	"codeberg.org/oliverandrich/go-auth-service/internal/repository"
	"codeberg.org/oliverandrich/go-auth-service/internal/testutil"
)

func newUser() *models.User {
	return &models.User{
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        "jane@example.com",
		DateOfBirth:  "1990-04-01",
		PasswordHash: "$argon2id$...",
		Role:         models.RoleUser,
		Version:      1,
	}
}

func TestCreateUserWithProvider(t *testing.T) {
	repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := newUser()
	link := &models.AuthProvider{Provider: models.ProviderLocal, TwoFactor: true}
	require.NoError(t, repo.CreateUserWithProvider(ctx, user, link))
	assert.NotZero(t, user.ID)
	assert.NotZero(t, link.ID)
	assert.Equal(t, user.Email, link.UserEmail)

	got, err := repo.GetUserByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.False(t, got.Confirmed)

	gotLink, err := repo.GetAuthProvider(ctx, "jane@example.com", models.ProviderLocal)
	require.NoError(t, err)
	assert.True(t, gotLink.TwoFactor)
}

func TestCreateUserWithProvider_DuplicateEmailRollsBack(t *testing.T) {
	repo := testutil.NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateUserWithProvider(ctx, newUser(),
		&models.AuthProvider{Provider: models.ProviderLocal}))

	err := repo.CreateUserWithProvider(ctx, newUser(),
		&models.AuthProvider{Provider: models.ProviderLocal})
	assert.Error(t, err)
}

func TestGetUserByIDVersion(t *testing.T) {
	repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := newUser()
	require.NoError(t, repo.CreateUserWithProvider(ctx, user,
		&models.AuthProvider{Provider: models.ProviderLocal}))

	got, err := repo.GetUserByIDVersion(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// A stale version reads as not found.
	_, err = repo.GetUserByIDVersion(ctx, user.ID, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConfirmUser_BumpsVersion(t *testing.T) {
	repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := newUser()
	require.NoError(t, repo.CreateUserWithProvider(ctx, user,
		&models.AuthProvider{Provider: models.ProviderLocal}))
	require.NoError(t, repo.ConfirmUser(ctx, user))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.Confirmed)
	assert.Equal(t, 2, got.Version)
}

func TestUpdateUserPassword_BumpsVersion(t *testing.T) {
	repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := newUser()
	require.NoError(t, repo.CreateUserWithProvider(ctx, user,
		&models.AuthProvider{Provider: models.ProviderLocal}))
	require.NoError(t, repo.UpdateUserPassword(ctx, user, "$argon2id$new"))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$new", got.PasswordHash)
	assert.Equal(t, 2, got.Version)
}

func TestSetTwoFactor(t *testing.T) {
	repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := newUser()
	link := &models.AuthProvider{Provider: models.ProviderLocal, TwoFactor: true}
	require.NoError(t, repo.CreateUserWithProvider(ctx, user, link))
	require.NoError(t, repo.SetTwoFactor(ctx, link, false))

	got, err := repo.GetAuthProvider(ctx, user.Email, models.ProviderLocal)
	require.NoError(t, err)
	assert.False(t, got.TwoFactor)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

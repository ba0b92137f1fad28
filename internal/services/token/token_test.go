// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token_test

import (
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-auth-service/internal/config"
	"codeberg.org/oliverandrich/go-auth-service/internal/models"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Issuer:             "9e4c1a2f-test-api",
		AccessSecret:       "access-secret",
		RefreshSecret:      "refresh-secret",
		ConfirmationSecret: "confirmation-secret",
		ResetSecret:        "reset-secret",
		AccessTTL:          10 * time.Minute,
		RefreshTTL:         72 * time.Hour,
		ConfirmationTTL:    24 * time.Hour,
		ResetTTL:           30 * time.Minute,
	}
}

func newUser() *models.User {
	return &models.User{
		ID:      42,
		Email:   "jane@example.com",
		Role:    models.RoleUser,
		Version: 3,
	}
}

func TestIssueAndVerifyAccess(t *testing.T) {
	svc := token.NewService(newConfig())

	signed, err := svc.IssueAccess(newUser())
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	id, role, err := svc.VerifyAccess(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, models.RoleUser, role)
}

func TestVerifyAccess_TamperedSignature(t *testing.T) {
	svc := token.NewService(newConfig())

	signed, err := svc.IssueAccess(newUser())
	require.NoError(t, err)

	// Flip a bit in the signature segment.
	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	sig[0] ^= 0x01
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, _, err = svc.VerifyAccess(tampered)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyAccess_Expired(t *testing.T) {
	cfg := newConfig()
	cfg.AccessTTL = -time.Minute
	svc := token.NewService(cfg)

	signed, err := svc.IssueAccess(newUser())
	require.NoError(t, err)

	_, _, err = svc.VerifyAccess(signed)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestIssueAndVerifyPurpose(t *testing.T) {
	svc := token.NewService(newConfig())
	user := newUser()

	for _, purpose := range []token.Purpose{token.PurposeConfirmation, token.PurposeReset, token.PurposeRefresh} {
		signed, err := svc.IssuePurpose(purpose, user)
		require.NoError(t, err)

		parsed, err := svc.VerifyPurpose(purpose, signed)
		require.NoError(t, err)
		assert.Equal(t, user.ID, parsed.UserID)
		assert.Equal(t, user.Version, parsed.Version)
		assert.NotEmpty(t, parsed.TokenID)
		assert.WithinDuration(t, time.Now().Add(svc.PurposeTTL(purpose)), parsed.ExpiresAt, 5*time.Second)
	}
}

func TestVerifyPurpose_WrongPurposeSecret(t *testing.T) {
	svc := token.NewService(newConfig())

	// A refresh token must not verify as a reset token even though both are
	// valid JWTs; the secrets are isolated per purpose.
	signed, err := svc.IssuePurpose(token.PurposeRefresh, newUser())
	require.NoError(t, err)

	_, err = svc.VerifyPurpose(token.PurposeReset, signed)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyPurpose_FreshTokenIDs(t *testing.T) {
	svc := token.NewService(newConfig())
	user := newUser()

	first, err := svc.IssuePurpose(token.PurposeRefresh, user)
	require.NoError(t, err)
	second, err := svc.IssuePurpose(token.PurposeRefresh, user)
	require.NoError(t, err)

	p1, err := svc.VerifyPurpose(token.PurposeRefresh, first)
	require.NoError(t, err)
	p2, err := svc.VerifyPurpose(token.PurposeRefresh, second)
	require.NoError(t, err)

	assert.NotEqual(t, p1.TokenID, p2.TokenID)
}

func TestVerifyPurpose_Garbage(t *testing.T) {
	svc := token.NewService(newConfig())

	for _, input := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.VerifyPurpose(token.PurposeRefresh, input)
		assert.ErrorIs(t, err, token.ErrInvalidToken)
	}
}

func TestIssuePurpose_Unknown(t *testing.T) {
	svc := token.NewService(newConfig())

	_, err := svc.IssuePurpose(token.Purpose("session"), newUser())
	assert.Error(t, err)
	_, err = svc.VerifyPurpose(token.Purpose("session"), "whatever")
	assert.Error(t, err)
}

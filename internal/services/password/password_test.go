// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package password_test

import (
	"strings"
	"testing"

	"codeberg.org/oliverandrich/go-auth-service/internal/services/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	h := password.NewHasher()

	encoded, err := h.Hash("Sup3r-secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := h.Verify("Sup3r-secret", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong-password", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_UniqueSalt(t *testing.T) {
	h := password.NewHasher()

	first, err := h.Hash("Sup3r-secret")
	require.NoError(t, err)
	second, err := h.Hash("Sup3r-secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerify_InvalidHash(t *testing.T) {
	h := password.NewHasher()

	cases := []string{
		"",
		"not-a-phc-string",
		"$bcrypt$v=19$m=65536,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=2,p=1$!!!$aGFzaA",
	}
	for _, c := range cases {
		_, err := h.Verify("anything", c)
		assert.ErrorIs(t, err, password.ErrInvalidHash, "hash %q", c)
	}
}

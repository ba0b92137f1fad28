// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package twofactor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-auth-service/internal/services/twofactor"
	"codeberg.org/oliverandrich/go-auth-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndValidate(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := twofactor.NewStore(client, time.Hour)
	ctx := context.Background()

	code, err := store.Create(ctx, "jane@example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)

	ok, err := store.Validate(ctx, "jane@example.com", code)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidate_SingleUse(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := twofactor.NewStore(client, time.Hour)
	ctx := context.Background()

	code, err := store.Create(ctx, "jane@example.com")
	require.NoError(t, err)

	ok, err := store.Validate(ctx, "jane@example.com", code)
	require.NoError(t, err)
	require.True(t, ok)

	// The same code must not validate twice, even before expiry.
	ok, err = store.Validate(ctx, "jane@example.com", code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidate_WrongCodeKeepsEntry(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := twofactor.NewStore(client, time.Hour)
	ctx := context.Background()

	code, err := store.Create(ctx, "jane@example.com")
	require.NoError(t, err)

	ok, err := store.Validate(ctx, "jane@example.com", "000000")
	require.NoError(t, err)
	if code == "000000" {
		t.Skip("generated the guessed code")
	}
	assert.False(t, ok)

	// A failed attempt does not burn the real code.
	ok, err = store.Validate(ctx, "jane@example.com", code)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreate_OverwritesPreviousCode(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := twofactor.NewStore(client, time.Hour)
	ctx := context.Background()

	first, err := store.Create(ctx, "jane@example.com")
	require.NoError(t, err)
	second, err := store.Create(ctx, "jane@example.com")
	require.NoError(t, err)

	if first != second {
		ok, err := store.Validate(ctx, "jane@example.com", first)
		require.NoError(t, err)
		assert.False(t, ok, "stale code must not validate")
	}

	ok, err := store.Validate(ctx, "jane@example.com", second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidate_ConcurrentSingleWinner(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := twofactor.NewStore(client, time.Hour)
	ctx := context.Background()

	code, err := store.Create(ctx, "jane@example.com")
	require.NoError(t, err)

	// Compare-and-delete is atomic, so of N concurrent validations with the
	// correct code exactly one consumes it.
	const attempts = 8
	results := make(chan bool, attempts)
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Validate(ctx, "jane@example.com", code)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestValidate_Expiry(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	store := twofactor.NewStore(client, time.Minute)
	ctx := context.Background()

	code, err := store.Create(ctx, "jane@example.com")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	ok, err := store.Validate(ctx, "jane@example.com", code)
	require.NoError(t, err)
	assert.False(t, ok)
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package revocation keeps the denylist of spent refresh token ids. Entries
// live in Redis under "blacklist:{token_id}" with a TTL capped at the
// token's own remaining lifetime, so the store cannot grow past the set of
// unexpired tokens.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "blacklist:"

// Store is the shared denylist reachable by every service instance.
type Store struct {
	redis *redis.Client
}

// NewStore creates a Store on top of the shared Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{redis: client}
}

// Revoke inserts the token id unconditionally. Idempotent; revoking an
// already revoked id is a no-op. Ids of already expired tokens are skipped.
func (s *Store) Revoke(ctx context.Context, tokenID string, userID int64, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, keyPrefix+tokenID, userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeOnce inserts the token id only if it is not present yet and reports
// whether this call won. The conditional insert is what makes refresh
// rotation safe: two requests presenting the same token race on SETNX and
// exactly one succeeds.
func (s *Store) RevokeOnce(ctx context.Context, tokenID string, userID int64, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return false, nil
	}
	won, err := s.redis.SetNX(ctx, keyPrefix+tokenID, userID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to revoke token: %w", err)
	}
	return won, nil
}

// IsRevoked reports whether the token id is on the denylist.
func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, err := s.redis.Get(ctx, keyPrefix+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check denylist: %w", err)
	}
	return true, nil
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package twofactor manages the one-time 6-digit codes emailed during
// two-factor sign-in. Only a hash of the code is stored, keyed by account
// email, and a code validates at most once.
package twofactor

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "access_code:"

// consumeScript deletes the entry only when the presented hash matches, so
// compare and consume are a single atomic step and a code cannot validate
// twice even under concurrent requests.
var consumeScript = redis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if stored == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return 0
`)

// Store keeps hashed sign-in codes in the shared Redis instance.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates a Store. Codes expire after ttl.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{redis: client, ttl: ttl}
}

// Create generates a fresh 6-digit code for the email and stores its hash,
// overwriting any previous code for the same account. The plaintext code is
// returned once for the mailer and never persisted.
func (s *Store) Create(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, keyPrefix+email, hashCode(code), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store access code: %w", err)
	}
	return code, nil
}

// Validate compares the hash of the presented code against the stored hash
// and consumes the entry atomically on a match, so the code is single use;
// on failure the entry stays, so the same code cannot be probed fresh each
// attempt. Comparing hashes rather than codes keeps timing independent of
// how many leading digits the guess got right.
func (s *Store) Validate(ctx context.Context, email, code string) (bool, error) {
	res, err := consumeScript.Run(ctx, s.redis, []string{keyPrefix + email}, hashCode(code)).Int()
	if err != nil {
		return false, fmt.Errorf("failed to validate access code: %w", err)
	}
	return res == 1, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate access code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

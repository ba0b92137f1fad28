// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package password hashes and verifies passwords with argon2id.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash is returned when a stored hash is not a valid argon2id
// PHC string.
var ErrInvalidHash = errors.New("invalid password hash")

// Default parameters follow the OWASP recommendation for argon2id.
const (
	defaultMemory      = 64 * 1024 // KiB
	defaultTime        = 2
	defaultParallelism = 1
	saltLength         = 16
	keyLength          = 32
)

// Hasher hashes passwords with fixed argon2id parameters. The zero value is
// not usable; construct with NewHasher.
type Hasher struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

// NewHasher creates a Hasher with the default parameters.
func NewHasher() *Hasher {
	return &Hasher{
		memory:      defaultMemory,
		time:        defaultTime,
		parallelism: defaultParallelism,
	}
}

// Hash derives an argon2id hash with a fresh random salt and returns it in
// PHC string format.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.parallelism, keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// Verify recomputes the hash with the parameters embedded in the PHC string
// and compares in constant time.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	memory, time, parallelism, salt, hash, err := decode(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, parallelism, uint32(len(hash)))
	return subtle.ConstantTimeCompare(computed, hash) == 1, nil
}

func decode(encoded string) (memory, time uint32, parallelism uint8, salt, hash []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &parallelism); err != nil {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}

	return memory, time, parallelism, salt, hash, nil
}

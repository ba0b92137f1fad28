// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and verifies the two JWT families used by the
// service: short-lived stateless access tokens and purpose-scoped email
// tokens (confirmation, reset, refresh). Each purpose is signed with its own
// secret, so a leaked secret cannot forge tokens of another purpose, and
// every purpose token embeds the user version at issuance for coarse-grained
// mass revocation.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"codeberg.org/oliverandrich/go-auth-service/internal/config"
	"codeberg.org/oliverandrich/go-auth-service/internal/models"
)

// ErrInvalidToken is returned for any signature, format or expiry failure.
// Callers never learn which; the generic error avoids oracle behavior.
var ErrInvalidToken = errors.New("invalid token")

// Purpose scopes an email token to exactly one workflow.
type Purpose string

const (
	PurposeConfirmation Purpose = "confirmation"
	PurposeReset        Purpose = "reset"
	PurposeRefresh      Purpose = "refresh"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeConfirmation, PurposeReset, PurposeRefresh:
		return true
	}
	return false
}

type purposeKey struct {
	secret []byte
	ttl    time.Duration
}

// Service signs and verifies tokens. Verification is pure computation; the
// denylist and version checks belong to the orchestrator.
type Service struct {
	issuer       string
	accessSecret []byte
	accessTTL    time.Duration
	purposes     map[Purpose]purposeKey
}

// NewService builds a Service from the JWT configuration. The purpose table
// is the single dispatch point from purpose to secret and TTL.
func NewService(cfg *config.JWTConfig) *Service {
	return &Service{
		issuer:       cfg.Issuer,
		accessSecret: []byte(cfg.AccessSecret),
		accessTTL:    cfg.AccessTTL,
		purposes: map[Purpose]purposeKey{
			PurposeConfirmation: {secret: []byte(cfg.ConfirmationSecret), ttl: cfg.ConfirmationTTL},
			PurposeReset:        {secret: []byte(cfg.ResetSecret), ttl: cfg.ResetTTL},
			PurposeRefresh:      {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		},
	}
}

type accessUser struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

type accessClaims struct {
	User accessUser `json:"user"`
	jwt.RegisteredClaims
}

type purposeUser struct {
	ID      int64  `json:"id"`
	Version int    `json:"version"`
	TokenID string `json:"token_id"`
}

type purposeClaims struct {
	User purposeUser `json:"user"`
	jwt.RegisteredClaims
}

// PurposeToken is the verified content of an email token.
type PurposeToken struct {
	UserID    int64
	Version   int
	TokenID   string
	ExpiresAt time.Time
}

// IssueAccess signs a stateless access token for the user.
func (s *Service) IssueAccess(user *models.User) (string, error) {
	now := time.Now()
	claims := accessClaims{
		User: accessUser{ID: user.ID, Role: user.Role},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   "access",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccess checks signature, issuer, subject and expiry of an access
// token and returns the user id and role it carries.
func (s *Service) VerifyAccess(tokenStr string) (int64, string, error) {
	claims := &accessClaims{}
	if err := s.parse(tokenStr, claims, s.accessSecret, "access"); err != nil {
		return 0, "", err
	}
	return claims.User.ID, claims.User.Role, nil
}

// IssuePurpose signs an email token for the given purpose. The token embeds
// the user's current version and a fresh random token id used as the
// revocation key.
func (s *Service) IssuePurpose(purpose Purpose, user *models.User) (string, error) {
	key, ok := s.purposes[purpose]
	if !ok {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}

	now := time.Now()
	claims := purposeClaims{
		User: purposeUser{ID: user.ID, Version: user.Version, TokenID: uuid.NewString()},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   string(purpose),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}
	return signed, nil
}

// VerifyPurpose checks signature, issuer, subject and expiry of an email
// token against the purpose's own secret. It does not consult the denylist
// or compare versions; that is business state, not signing state.
func (s *Service) VerifyPurpose(purpose Purpose, tokenStr string) (PurposeToken, error) {
	key, ok := s.purposes[purpose]
	if !ok {
		return PurposeToken{}, fmt.Errorf("unknown token purpose %q", purpose)
	}

	claims := &purposeClaims{}
	if err := s.parse(tokenStr, claims, key.secret, string(purpose)); err != nil {
		return PurposeToken{}, err
	}

	return PurposeToken{
		UserID:    claims.User.ID,
		Version:   claims.User.Version,
		TokenID:   claims.User.TokenID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// AccessTTL returns the access token lifetime, exposed for the expires_in
// response field.
func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

// PurposeTTL returns the configured lifetime of a purpose token.
func (s *Service) PurposeTTL(purpose Purpose) time.Duration {
	return s.purposes[purpose].ttl
}

func (s *Service) parse(tokenStr string, claims jwt.Claims, secret []byte, subject string) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithSubject(subject),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

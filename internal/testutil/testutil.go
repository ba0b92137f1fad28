// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides shared test fixtures: an in-memory Redis, an
// in-memory migrated SQLite database, OAuth client configs pointed at local
// fakes and a mail recorder.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"codeberg.org/oliverandrich/go-auth-service/internal/database"
	"codeberg.org/oliverandrich/go-auth-service/internal/repository"
)

// NewTestRedis starts a miniredis instance and returns it together with a
// connected client. Both are cleaned up with the test.
func NewTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return mr, client
}

// NewTestDB opens an in-memory SQLite database with all migrations applied
// and returns a repository on top of it.
func NewTestDB(t *testing.T) *repository.Repository {
	t.Helper()

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return repository.New(db)
}

// NewOAuthConfig builds an oauth2 client config whose endpoints live under
// baseURL, for use with a httptest fake provider.
func NewOAuthConfig(baseURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  baseURL + "/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  baseURL + "/authorize",
			TokenURL: baseURL + "/token",
		},
		Scopes: []string{"email", "profile"},
	}
}

// Mail is one recorded outbound message.
type Mail struct {
	Email string
	Name  string
	// Value holds the token or code carried by the message.
	Value string
}

// MailRecorder captures outbound mail instead of sending it.
type MailRecorder struct {
	mu            sync.Mutex
	Confirmations []Mail
	AccessCodes   []Mail
	Resets        []Mail
}

// NewMailRecorder creates an empty recorder.
func NewMailRecorder() *MailRecorder {
	return &MailRecorder{}
}

// SendConfirmation records a confirmation mail.
func (m *MailRecorder) SendConfirmation(_ context.Context, email, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Confirmations = append(m.Confirmations, Mail{Email: email, Name: name, Value: token})
	return nil
}

// SendAccessCode records a two-factor code mail.
func (m *MailRecorder) SendAccessCode(_ context.Context, email, name, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AccessCodes = append(m.AccessCodes, Mail{Email: email, Name: name, Value: code})
	return nil
}

// SendPasswordReset records a reset mail.
func (m *MailRecorder) SendPasswordReset(_ context.Context, email, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets = append(m.Resets, Mail{Email: email, Name: name, Value: token})
	return nil
}

// LastConfirmation returns the most recent confirmation mail.
func (m *MailRecorder) LastConfirmation(t *testing.T) Mail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.Confirmations)
	return m.Confirmations[len(m.Confirmations)-1]
}

// LastAccessCode returns the most recent two-factor code mail.
func (m *MailRecorder) LastAccessCode(t *testing.T) Mail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.AccessCodes)
	return m.AccessCodes[len(m.AccessCodes)-1]
}

// LastReset returns the most recent password reset mail.
func (m *MailRecorder) LastReset(t *testing.T) Mail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.Resets)
	return m.Resets[len(m.Resets)-1]
}

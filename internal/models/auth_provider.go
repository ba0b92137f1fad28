// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Authentication providers. Local is the email+password scheme; the others
// are external OAuth2 providers.
const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// AuthProvider links a user email to an authentication provider. There is at
// most one row per (email, provider) pair. TwoFactor only matters for the
// local provider and controls whether sign-in requires the emailed code.
type AuthProvider struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	UserEmail string    `db:"user_email" json:"user_email"`
	Provider  string    `db:"provider" json:"provider"`
	TwoFactor bool      `db:"two_factor" json:"two_factor"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ValidExternalProvider reports whether name identifies a supported external
// OAuth2 provider.
func ValidExternalProvider(name string) bool {
	return name == ProviderGoogle || name == ProviderFacebook
}

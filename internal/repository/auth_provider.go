// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/go-auth-service/internal/models"
)

// GetAuthProvider retrieves the provider link for an email and provider name.
func (r *Repository) GetAuthProvider(ctx context.Context, email, provider string) (*models.AuthProvider, error) {
	var link models.AuthProvider
	err := r.db.GetContext(ctx, &link,
		`SELECT * FROM auth_providers WHERE user_email = ? AND provider = ?`, email, provider)
	if err != nil {
		return nil, wrapError(err)
	}
	return &link, nil
}

// CreateAuthProvider inserts a provider link for an existing user.
func (r *Repository) CreateAuthProvider(ctx context.Context, link *models.AuthProvider) error {
	link.Touch(time.Now().UTC())
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_providers (user_email, provider, two_factor, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		link.UserEmail, link.Provider, link.TwoFactor, link.CreatedAt, link.UpdatedAt)
	if err != nil {
		return err
	}
	link.ID, err = res.LastInsertId()
	return err
}

// SetTwoFactor toggles the two-factor flag on a provider link.
func (r *Repository) SetTwoFactor(ctx context.Context, link *models.AuthProvider, enabled bool) error {
	link.TwoFactor = enabled
	link.Touch(time.Now().UTC())
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_providers SET two_factor = ?, updated_at = ? WHERE id = ?`,
		link.TwoFactor, link.UpdatedAt, link.ID)
	return err
}

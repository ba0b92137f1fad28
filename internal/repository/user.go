// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/go-auth-service/internal/models"
)

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByIDVersion retrieves a user by ID only when their version still
// matches. A stale version reads as not found, which callers treat the same
// as an invalid token.
func (r *Repository) GetUserByIDVersion(ctx context.Context, id int64, version int) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// CreateUserWithProvider inserts a user together with its auth provider link
// in a single transaction. Both rows exist or neither does.
func (r *Repository) CreateUserWithProvider(ctx context.Context, user *models.User, provider *models.AuthProvider) error {
	now := time.Now().UTC()
	user.Touch(now)
	provider.Touch(now)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, email, date_of_birth, password_hash, role, version, confirmed, suspended, picture, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.FirstName, user.LastName, user.Email, user.DateOfBirth, user.PasswordHash,
		user.Role, user.Version, user.Confirmed, user.Suspended, user.Picture,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return err
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	provider.UserEmail = user.Email
	res, err = tx.ExecContext(ctx,
		`INSERT INTO auth_providers (user_email, provider, two_factor, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		provider.UserEmail, provider.Provider, provider.TwoFactor,
		provider.CreatedAt, provider.UpdatedAt)
	if err != nil {
		return err
	}
	provider.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ConfirmUser marks the user confirmed and bumps their version.
func (r *Repository) ConfirmUser(ctx context.Context, user *models.User) error {
	user.Confirmed = true
	user.Version++
	user.Touch(time.Now().UTC())
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET confirmed = 1, version = ?, updated_at = ? WHERE id = ?`,
		user.Version, user.UpdatedAt, user.ID)
	return err
}

// UpdateUserPassword stores a new password hash and bumps the version so all
// outstanding purpose tokens for the user become invalid.
func (r *Repository) UpdateUserPassword(ctx context.Context, user *models.User, passwordHash string) error {
	user.PasswordHash = passwordHash
	user.Version++
	user.Touch(time.Now().UTC())
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, version = ?, updated_at = ? WHERE id = ?`,
		user.PasswordHash, user.Version, user.UpdatedAt, user.ID)
	return err
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"strings"
	"time"
)

// Roles assignable to a user. Plain strings so they round-trip through
// JWT claims without a custom codec.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account row. Version is a monotonic counter bumped on every
// credential-affecting mutation (email confirmation, password reset,
// password change); purpose tokens embed the version at issuance and become
// invalid once it moves on.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64     `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	DateOfBirth  string    `db:"date_of_birth" json:"date_of_birth"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Version      int       `db:"version" json:"-"`
	Confirmed    bool      `db:"confirmed" json:"confirmed"`
	Suspended    bool      `db:"suspended" json:"suspended"`
	Picture      string    `db:"picture" json:"picture,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FullName returns the display name used in outbound emails.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lowercases and trims an email address. Every lookup and
// insert goes through this, so "Jane@Example.com" and "jane@example.com"
// are the same account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

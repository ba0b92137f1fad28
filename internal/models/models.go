// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models defines the persisted row types.
package models

import "time"

// Touchable is implemented by rows that carry created/updated timestamps.
type Touchable interface {
	Touch(now time.Time)
}

// Touch updates the row timestamps. Callers invoke it explicitly before every
// persist instead of relying on driver hooks.
func (u *User) Touch(now time.Time) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

// Touch updates the row timestamps.
func (p *AuthProvider) Touch(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"fmt"
	"net/mail"
	"time"
	"unicode"

	"codeberg.org/oliverandrich/go-auth-service/internal/models"
)

const (
	minPasswordLength = 8
	maxNameLength     = 100
)

// validateSignUp normalizes and checks the sign-up fields in place.
func validateSignUp(params *SignUpParams) error {
	params.Email = models.NormalizeEmail(params.Email)

	if params.FirstName == "" || len(params.FirstName) > maxNameLength {
		return fmt.Errorf("%w: first name", ErrInvalidInput)
	}
	if params.LastName == "" || len(params.LastName) > maxNameLength {
		return fmt.Errorf("%w: last name", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01-02", params.DateOfBirth); err != nil {
		return fmt.Errorf("%w: date of birth", ErrInvalidInput)
	}
	if params.Password1 != params.Password2 {
		return ErrPasswordMismatch
	}
	if !validPassword(params.Password1) {
		return ErrWeakPassword
	}
	return nil
}

// validPassword requires at least eight characters with an uppercase letter,
// a lowercase letter and a digit.
func validPassword(pass string) bool {
	if len(pass) < minPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range pass {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

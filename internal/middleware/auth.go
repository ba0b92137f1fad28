// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware contains the echo middleware shared by protected routes.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Context keys for the verified access token claims.
const (
	userIDKey = "auth_user_id"
	roleKey   = "auth_role"
)

// TokenVerifier checks an access token and returns the user id and role it
// carries.
type TokenVerifier interface {
	VerifyAccess(token string) (int64, string, error)
}

// RequireAccessToken rejects requests without a valid Bearer access token
// and stores the verified user id and role on the echo context.
func RequireAccessToken(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
			}

			userID, role, err := verifier.VerifyAccess(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
			}

			c.Set(userIDKey, userID)
			c.Set(roleKey, role)
			return next(c)
		}
	}
}

// UserID returns the user id stored by RequireAccessToken, or 0 when the
// route is not protected.
func UserID(c echo.Context) int64 {
	id, _ := c.Get(userIDKey).(int64)
	return id
}

// Role returns the role stored by RequireAccessToken.
func Role(c echo.Context) string {
	role, _ := c.Get(roleKey).(string)
	return role
}

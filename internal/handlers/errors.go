// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-auth-service/internal/services/auth"
)

// httpError maps the service sentinel errors to HTTP responses. Every
// unauthorized cause gets the same generic message so callers cannot probe
// which accounts exist; internal errors are logged with detail and returned
// as a bare 500.
func httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrSuspended):
		return echo.NewHTTPError(http.StatusForbidden, "Account suspended")
	case errors.Is(err, auth.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, "Email already registered")
	case errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "path", c.Path(), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}

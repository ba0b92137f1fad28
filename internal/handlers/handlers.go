// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers exposes the auth workflows over HTTP. Access tokens
// travel in the Authorization header, refresh tokens in an http-only cookie
// scoped to /auth (and, for non-browser clients, in the response body).
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-auth-service/internal/services/auth"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	auth         *auth.Service
	cookieName   string
	secureCookie bool
}

// New creates a new Handlers instance. secureCookie should be set when the
// service is reached over HTTPS.
func New(svc *auth.Service, cookieName string, secureCookie bool) *Handlers {
	return &Handlers{auth: svc, cookieName: cookieName, secureCookie: secureCookie}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// respondAuth writes the token pair and sets the refresh cookie.
func (h *Handlers) respondAuth(c echo.Context, pair *auth.TokenPair) error {
	h.setRefreshCookie(c, pair.RefreshToken, h.auth.RefreshTTL())
	return c.JSON(http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (h *Handlers) setRefreshCookie(c echo.Context, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/auth",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// refreshToken pulls the refresh token from the cookie, falling back to the
// request body value for non-browser clients.
func (h *Handlers) refreshToken(c echo.Context, bodyToken string) string {
	if cookie, err := c.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return strings.TrimSpace(bodyToken)
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-auth-service/internal/middleware"
	"codeberg.org/oliverandrich/go-auth-service/internal/models"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/auth"
)

type signUpRequest struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Password1   string `json:"password1"`
	Password2   string `json:"password2"`
}

// SignUp creates an unconfirmed account and mails the confirmation link.
func (h *Handlers) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	err := h.auth.SignUp(c.Request().Context(), auth.SignUpParams{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		DateOfBirth: req.DateOfBirth,
		Password1:   req.Password1,
		Password2:   req.Password2,
	})
	if err != nil {
		return httpError(c, err)
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Confirmation email sent"})
}

type confirmEmailRequest struct {
	ConfirmationToken string `json:"confirmation_token"`
}

// ConfirmEmail consumes the emailed confirmation token and signs the user in.
func (h *Handlers) ConfirmEmail(c echo.Context) error {
	var req confirmEmailRequest
	if err := c.Bind(&req); err != nil || req.ConfirmationToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	pair, err := h.auth.ConfirmEmail(c.Request().Context(), req.ConfirmationToken)
	if err != nil {
		return httpError(c, err)
	}
	return h.respondAuth(c, pair)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn checks the credentials. Accounts with two-factor enabled get a code
// by mail and a "code sent" message instead of tokens.
func (h *Handlers) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	res, err := h.auth.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(c, err)
	}
	if res.TwoFactor {
		return c.JSON(http.StatusOK, messageResponse{Message: "Confirmation code sent"})
	}
	return h.respondAuth(c, res.Pair)
}

type confirmSignInRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ConfirmSignIn finishes a two-factor sign-in with the emailed code.
func (h *Handlers) ConfirmSignIn(c echo.Context) error {
	var req confirmSignInRequest
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	pair, err := h.auth.ConfirmSignIn(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return httpError(c, err)
	}
	return h.respondAuth(c, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates the refresh token and returns a fresh pair.
func (h *Handlers) Refresh(c echo.Context) error {
	var req refreshRequest
	_ = c.Bind(&req)

	token := h.refreshToken(c, req.RefreshToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	pair, err := h.auth.Refresh(c.Request().Context(), token)
	if err != nil {
		return httpError(c, err)
	}
	return h.respondAuth(c, pair)
}

// SignOut revokes the presented refresh token and clears the cookie.
func (h *Handlers) SignOut(c echo.Context) error {
	var req refreshRequest
	_ = c.Bind(&req)

	token := h.refreshToken(c, req.RefreshToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing refresh token")
	}

	if err := h.auth.SignOut(c.Request().Context(), token); err != nil {
		return httpError(c, err)
	}

	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "Signed out"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword mails a reset token. The response is 200 whether or not the
// address is registered.
func (h *Handlers) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if err := h.auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "If the email is registered, a reset link was sent"})
}

type resetPasswordRequest struct {
	ResetToken string `json:"reset_token"`
	Password1  string `json:"password1"`
	Password2  string `json:"password2"`
}

// ResetPassword consumes the emailed reset token and stores a new password.
func (h *Handlers) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil || req.ResetToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if err := h.auth.ResetPassword(c.Request().Context(), req.ResetToken, req.Password1, req.Password2); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password reset"})
}

type updatePasswordRequest struct {
	RefreshToken string `json:"refresh_token"`
	Password1    string `json:"password1"`
	Password2    string `json:"password2"`
}

// UpdatePassword changes the password of the signed-in user. Requires the
// Bearer access token plus the current refresh token.
func (h *Handlers) UpdatePassword(c echo.Context) error {
	var req updatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	token := h.refreshToken(c, req.RefreshToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	pair, err := h.auth.UpdatePassword(c.Request().Context(), middleware.UserID(c), token, req.Password1, req.Password2)
	if err != nil {
		return httpError(c, err)
	}
	return h.respondAuth(c, pair)
}

type updateTwoFactorRequest struct {
	TwoFactor bool `json:"two_factor"`
}

// UpdateTwoFactor toggles the two-factor requirement for local sign-in.
func (h *Handlers) UpdateTwoFactor(c echo.Context) error {
	var req updateTwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if err := h.auth.UpdateTwoFactor(c.Request().Context(), middleware.UserID(c), req.TwoFactor); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Two-factor updated"})
}

// OAuthSignIn redirects to the external provider's consent page.
func (h *Handlers) OAuthSignIn(c echo.Context) error {
	provider := c.Param("provider")
	if !models.ValidExternalProvider(provider) {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown provider")
	}

	redirect, err := h.auth.OAuthSignIn(c.Request().Context(), provider)
	if err != nil {
		return httpError(c, err)
	}
	return c.Redirect(http.StatusTemporaryRedirect, redirect)
}

// OAuthCallback finishes the external login and signs the user in.
func (h *Handlers) OAuthCallback(c echo.Context) error {
	provider := c.Param("provider")
	if !models.ValidExternalProvider(provider) {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown provider")
	}

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	pair, err := h.auth.OAuthCallback(c.Request().Context(), provider, code, state)
	if err != nil {
		return httpError(c, err)
	}
	return h.respondAuth(c, pair)
}

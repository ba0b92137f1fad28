// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth composes the token, password, revocation, two-factor and
// OAuth services with user persistence into the sign-up/sign-in workflows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/go-auth-service/internal/models"
	"codeberg.org/oliverandrich/go-auth-service/internal/repository"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/oauthflow"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/password"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/revocation"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/token"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/twofactor"
)

var (
	// ErrInvalidCredentials covers every unauthorized cause: wrong password,
	// unknown account, unconfirmed account, invalid/expired/revoked/stale
	// tokens and bad two-factor codes. Callers surface the same generic
	// message for all of them to avoid account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned on sign-up with an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSuspended is returned when the account is suspended.
	ErrSuspended = errors.New("account suspended")
	// ErrPasswordMismatch is returned when password1 and password2 differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrWeakPassword is returned when a password fails the strength rules.
	ErrWeakPassword = errors.New("password does not meet requirements")
	// ErrInvalidInput is returned for malformed sign-up fields.
	ErrInvalidInput = errors.New("invalid input")
)

// Mailer is the outbound email collaborator.
type Mailer interface {
	SendConfirmation(ctx context.Context, email, name, token string) error
	SendAccessCode(ctx context.Context, email, name, code string) error
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

// TokenPair is the result of a successful authentication.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}

// SignInResult is either a token pair or a pending two-factor step.
type SignInResult struct {
	Pair      *TokenPair
	TwoFactor bool
}

// Service is the auth workflow orchestrator. It holds no mutable state of
// its own; everything shared lives in the database and Redis.
type Service struct {
	repo        *repository.Repository
	tokens      *token.Service
	hasher      *password.Hasher
	revocations *revocation.Store
	codes       *twofactor.Store
	oauth       *oauthflow.Coordinator
	mailer      Mailer

	// dummyHash keeps password verification constant-time when the account
	// does not exist.
	dummyHash string
}

// NewService wires the orchestrator.
func NewService(
	repo *repository.Repository,
	tokens *token.Service,
	hasher *password.Hasher,
	revocations *revocation.Store,
	codes *twofactor.Store,
	oauth *oauthflow.Coordinator,
	mailer Mailer,
) (*Service, error) {
	dummyHash, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Service{
		repo:        repo,
		tokens:      tokens,
		hasher:      hasher,
		revocations: revocations,
		codes:       codes,
		oauth:       oauth,
		mailer:      mailer,
		dummyHash:   dummyHash,
	}, nil
}

// SignUpParams holds the validated sign-up request fields.
type SignUpParams struct {
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth string
	Password1   string
	Password2   string
}

// SignUp creates an unconfirmed local account together with its provider
// link and mails the confirmation token. Local accounts start with
// two-factor enabled.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) error {
	if err := validateSignUp(&params); err != nil {
		return err
	}

	if _, err := s.repo.GetUserByEmail(ctx, params.Email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(params.Password1)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Email:        params.Email,
		DateOfBirth:  params.DateOfBirth,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Version:      1,
	}
	link := &models.AuthProvider{
		Provider:  models.ProviderLocal,
		TwoFactor: true,
	}
	if err := s.repo.CreateUserWithProvider(ctx, user, link); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	confirmation, err := s.tokens.IssuePurpose(token.PurposeConfirmation, user)
	if err != nil {
		return err
	}
	if err := s.mailer.SendConfirmation(ctx, user.Email, user.FullName(), confirmation); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	slog.Info("sign_up", "user_id", user.ID, "email", user.Email)
	return nil
}

// ConfirmEmail consumes a confirmation token, marks the user confirmed,
// bumps their version and signs them in.
func (s *Service) ConfirmEmail(ctx context.Context, confirmationToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyPurpose(token.PurposeConfirmation, confirmationToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByIDVersion(ctx, claims.UserID, claims.Version)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("confirm_email_failed", "user_id", claims.UserID, "reason", "stale_or_unknown")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.repo.ConfirmUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to confirm user: %w", err)
	}

	slog.Info("confirm_email", "user_id", user.ID)
	return s.issuePair(user)
}

// SignIn checks the local credentials. With two-factor enabled on the local
// provider link it stores and mails a one-time code and reports a pending
// second step instead of issuing tokens.
func (s *Service) SignIn(ctx context.Context, email, pass string) (*SignInResult, error) {
	email = models.NormalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform a hash comparison.
			_, _ = s.hasher.Verify(pass, s.dummyHash)
			slog.Warn("sign_in_failed", "email", email, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.Confirmed {
		// Re-send the confirmation mail so the user can finish signing up,
		// but report the same generic failure.
		if confirmation, err := s.tokens.IssuePurpose(token.PurposeConfirmation, user); err == nil {
			_ = s.mailer.SendConfirmation(ctx, user.Email, user.FullName(), confirmation)
		}
		slog.Warn("sign_in_failed", "user_id", user.ID, "reason", "unconfirmed")
		return nil, ErrInvalidCredentials
	}
	if user.Suspended {
		slog.Warn("sign_in_failed", "user_id", user.ID, "reason", "suspended")
		return nil, ErrSuspended
	}

	ok, err := s.hasher.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		slog.Warn("sign_in_failed", "user_id", user.ID, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	link, err := s.repo.GetAuthProvider(ctx, email, models.ProviderLocal)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("sign_in_failed", "user_id", user.ID, "reason", "no_local_provider")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load provider link: %w", err)
	}

	if link.TwoFactor {
		code, err := s.codes.Create(ctx, email)
		if err != nil {
			return nil, err
		}
		if err := s.mailer.SendAccessCode(ctx, user.Email, user.FullName(), code); err != nil {
			return nil, fmt.Errorf("failed to send access code: %w", err)
		}
		slog.Info("sign_in_code_sent", "user_id", user.ID)
		return &SignInResult{TwoFactor: true}, nil
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	slog.Info("sign_in", "user_id", user.ID)
	return &SignInResult{Pair: pair}, nil
}

// ConfirmSignIn finishes a pending two-factor sign-in with the emailed code.
func (s *Service) ConfirmSignIn(ctx context.Context, email, code string) (*TokenPair, error) {
	email = models.NormalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Suspended {
		return nil, ErrSuspended
	}

	ok, err := s.codes.Validate(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.Warn("confirm_sign_in_failed", "user_id", user.ID, "reason", "invalid_code")
		return nil, ErrInvalidCredentials
	}

	slog.Info("sign_in", "user_id", user.ID, "two_factor", true)
	return s.issuePair(user)
}

// Refresh rotates a refresh token: the presented token id is revoked with a
// conditional insert, so of two concurrent requests carrying the same token
// exactly one succeeds. The user is loaded first; a transient storage error
// returns without touching the denylist, so the token survives a retry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyPurpose(token.PurposeRefresh, refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByIDVersion(ctx, claims.UserID, claims.Version)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("refresh_failed", "user_id", claims.UserID, "reason", "stale_version")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Suspended {
		return nil, ErrSuspended
	}

	won, err := s.revocations.RevokeOnce(ctx, claims.TokenID, claims.UserID, claims.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if !won {
		slog.Warn("refresh_failed", "user_id", claims.UserID, "reason", "token_revoked")
		return nil, ErrInvalidCredentials
	}

	slog.Info("refresh_rotated", "user_id", user.ID)
	return s.issuePair(user)
}

// SignOut revokes the presented refresh token. Revoking an already revoked
// token is a no-op, so repeated sign-out is harmless.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyPurpose(token.PurposeRefresh, refreshToken)
	if err != nil {
		return ErrInvalidCredentials
	}

	if err := s.revocations.Revoke(ctx, claims.TokenID, claims.UserID, claims.ExpiresAt); err != nil {
		return err
	}

	slog.Info("sign_out", "user_id", claims.UserID)
	return nil
}

// ForgotPassword mails a reset token when a local account exists for the
// email. It reports success either way so the endpoint cannot be used to
// probe which addresses are registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)

	if _, err := s.repo.GetAuthProvider(ctx, email, models.ProviderLocal); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("forgot_password_ignored", "email", email)
			return nil
		}
		return fmt.Errorf("failed to load provider link: %w", err)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("forgot_password_ignored", "email", email)
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	reset, err := s.tokens.IssuePurpose(token.PurposeReset, user)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.FullName(), reset); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	slog.Info("forgot_password", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token and stores the new password. The
// version bump invalidates every outstanding purpose token for the user.
func (s *Service) ResetPassword(ctx context.Context, resetToken, password1, password2 string) error {
	if password1 != password2 {
		return ErrPasswordMismatch
	}
	if !validPassword(password1) {
		return ErrWeakPassword
	}

	claims, err := s.tokens.VerifyPurpose(token.PurposeReset, resetToken)
	if err != nil {
		return ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByIDVersion(ctx, claims.UserID, claims.Version)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("reset_password_failed", "user_id", claims.UserID, "reason", "stale_or_unknown")
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	hash, err := s.hasher.Hash(password1)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdateUserPassword(ctx, user, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("reset_password", "user_id", user.ID)
	return nil
}

// UpdatePassword changes the password of a signed-in user. The caller must
// present both a valid access token (verified by the handler, passed as
// userID) and the current refresh token; the refresh token must belong to
// the same user and carry their current version. The presented refresh
// token is spent and a fresh pair is issued.
func (s *Service) UpdatePassword(ctx context.Context, userID int64, refreshToken, password1, password2 string) (*TokenPair, error) {
	if password1 != password2 {
		return nil, ErrPasswordMismatch
	}
	if !validPassword(password1) {
		return nil, ErrWeakPassword
	}

	claims, err := s.tokens.VerifyPurpose(token.PurposeRefresh, refreshToken)
	if err != nil || claims.UserID != userID {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if claims.Version != user.Version {
		slog.Warn("update_password_failed", "user_id", userID, "reason", "stale_version")
		return nil, ErrInvalidCredentials
	}

	won, err := s.revocations.RevokeOnce(ctx, claims.TokenID, claims.UserID, claims.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if !won {
		slog.Warn("update_password_failed", "user_id", userID, "reason", "token_revoked")
		return nil, ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(password1)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdateUserPassword(ctx, user, hash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("update_password", "user_id", user.ID)
	return s.issuePair(user)
}

// UpdateTwoFactor toggles the two-factor requirement on the local provider
// link of a signed-in user.
func (s *Service) UpdateTwoFactor(ctx context.Context, userID int64, enabled bool) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	link, err := s.repo.GetAuthProvider(ctx, user.Email, models.ProviderLocal)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to load provider link: %w", err)
	}

	if err := s.repo.SetTwoFactor(ctx, link, enabled); err != nil {
		return fmt.Errorf("failed to update two factor: %w", err)
	}

	slog.Info("update_two_factor", "user_id", userID, "enabled", enabled)
	return nil
}

// OAuthSignIn starts an external login flow and returns the provider
// redirect URL.
func (s *Service) OAuthSignIn(ctx context.Context, provider string) (string, error) {
	return s.oauth.Initiate(ctx, provider)
}

// OAuthCallback finishes an external login flow. The user is found or
// created by the normalized profile email; externally authenticated users
// are confirmed from the start.
func (s *Service) OAuthCallback(ctx context.Context, provider, code, state string) (*TokenPair, error) {
	profile, err := s.oauth.Complete(ctx, provider, code, state)
	if err != nil {
		if errors.Is(err, oauthflow.ErrInvalidState) || errors.Is(err, oauthflow.ErrUnknownProvider) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	email := models.NormalizeEmail(profile.Email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{
			FirstName:   profile.FirstName,
			LastName:    profile.LastName,
			Email:       email,
			DateOfBirth: profile.DateOfBirth,
			Picture:     profile.Picture,
			Role:        models.RoleUser,
			Version:     1,
			Confirmed:   true,
		}
		link := &models.AuthProvider{Provider: provider}
		if err := s.repo.CreateUserWithProvider(ctx, user, link); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		slog.Info("oauth_sign_up", "user_id", user.ID, "provider", provider)
	case err != nil:
		return nil, fmt.Errorf("failed to load user: %w", err)
	default:
		if user.Suspended {
			return nil, ErrSuspended
		}
		if _, err := s.repo.GetAuthProvider(ctx, email, provider); errors.Is(err, repository.ErrNotFound) {
			link := &models.AuthProvider{UserEmail: email, Provider: provider}
			if err := s.repo.CreateAuthProvider(ctx, link); err != nil {
				return nil, fmt.Errorf("failed to link provider: %w", err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("failed to load provider link: %w", err)
		}
	}

	slog.Info("oauth_sign_in", "user_id", user.ID, "provider", provider)
	return s.issuePair(user)
}

// RefreshTTL returns the refresh token lifetime for the cookie max-age.
func (s *Service) RefreshTTL() time.Duration {
	return s.tokens.PurposeTTL(token.PurposeRefresh)
}

func (s *Service) issuePair(user *models.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssuePurpose(token.PurposeRefresh, user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package oauthflow drives the external authorization-code+PKCE login flow.
// The CSRF state and PKCE verifier live in Redis under "{provider}:{state}"
// for five minutes and are consumed atomically on completion, so a state can
// be used at most once.
package oauthflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"codeberg.org/oliverandrich/go-auth-service/internal/config"
	"codeberg.org/oliverandrich/go-auth-service/internal/models"
)

var (
	// ErrUnknownProvider is returned for provider names other than google
	// and facebook.
	ErrUnknownProvider = errors.New("unknown oauth provider")
	// ErrInvalidState is returned when the CSRF state is absent, expired or
	// already consumed.
	ErrInvalidState = errors.New("invalid or expired state")
	// ErrIncompleteProfile is returned when the provider response misses a
	// required profile field.
	ErrIncompleteProfile = errors.New("incomplete provider profile")
)

// StateTTL bounds how long an initiated flow can stay pending.
const StateTTL = 5 * time.Minute

const stateLength = 32

// Profile is the normalized user profile fetched from a provider.
type Profile struct {
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth string
	Picture     string
}

// Provider bundles the oauth2 client configuration with the userinfo
// endpoint of one external provider.
type Provider struct {
	Config      *oauth2.Config
	UserInfoURL string
}

// Coordinator manages state/verifier storage and the provider exchanges.
type Coordinator struct {
	redis      *redis.Client
	providers  map[string]Provider
	httpClient *http.Client
	stateTTL   time.Duration
}

// NewCoordinator builds a Coordinator for the two supported providers.
// Redirect URLs point back at this service under baseURL.
func NewCoordinator(cfg *config.OAuthConfig, baseURL string, client *redis.Client) *Coordinator {
	providers := map[string]Provider{
		models.ProviderGoogle: {
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  baseURL + "/auth/ext/google/callback",
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
					TokenURL: "https://oauth2.googleapis.com/token",
				},
				Scopes: []string{
					"https://www.googleapis.com/auth/userinfo.email",
					"https://www.googleapis.com/auth/userinfo.profile",
					"https://www.googleapis.com/auth/user.birthday.read",
				},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
		},
		models.ProviderFacebook: {
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				RedirectURL:  baseURL + "/auth/ext/facebook/callback",
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://www.facebook.com/v18.0/dialog/oauth",
					TokenURL: "https://graph.facebook.com/v18.0/oauth/access_token",
				},
				Scopes: []string{"email", "public_profile", "user_birthday"},
			},
			UserInfoURL: "https://graph.facebook.com/v18.0/me?fields=first_name,last_name,email,birthday,picture",
		},
	}
	return &Coordinator{
		redis:      client,
		providers:  providers,
		httpClient: http.DefaultClient,
		stateTTL:   StateTTL,
	}
}

// NewCoordinatorWithProviders builds a Coordinator against arbitrary
// provider endpoints. Used by tests to point at local fakes.
func NewCoordinatorWithProviders(providers map[string]Provider, client *redis.Client, httpClient *http.Client, stateTTL time.Duration) *Coordinator {
	return &Coordinator{
		redis:      client,
		providers:  providers,
		httpClient: httpClient,
		stateTTL:   stateTTL,
	}
}

// Initiate starts a login flow: it generates a PKCE verifier and a random
// CSRF state, persists the pair and returns the provider authorize URL
// carrying the state and the S256 challenge.
func (c *Coordinator) Initiate(ctx context.Context, provider string) (string, error) {
	p, ok := c.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}

	verifier := oauth2.GenerateVerifier()
	state, err := generateState()
	if err != nil {
		return "", err
	}

	if err := c.redis.Set(ctx, stateKey(provider, state), verifier, c.stateTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store csrf state: %w", err)
	}

	return p.Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// Complete finishes a login flow: it consumes the CSRF state, exchanges the
// authorization code with the PKCE verifier and fetches the normalized user
// profile. Replaying the same state fails because GETDEL removes the entry
// on first use; a state stored for another provider is a miss by key.
func (c *Coordinator) Complete(ctx context.Context, provider, code, state string) (Profile, error) {
	p, ok := c.providers[provider]
	if !ok {
		return Profile{}, ErrUnknownProvider
	}

	verifier, err := c.redis.GetDel(ctx, stateKey(provider, state)).Result()
	if errors.Is(err, redis.Nil) {
		return Profile{}, ErrInvalidState
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to load csrf state: %w", err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := p.Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Profile{}, fmt.Errorf("code exchange failed: %w", err)
	}

	return c.fetchProfile(ctx, provider, p, tok.AccessToken)
}

func (c *Coordinator) fetchProfile(ctx context.Context, provider string, p Provider, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("userinfo request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read userinfo response: %w", err)
	}

	switch provider {
	case models.ProviderFacebook:
		return parseFacebookProfile(body)
	default:
		return parseGoogleProfile(body)
	}
}

type googleUserInfo struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Birthdate  string `json:"birthdate"`
	Picture    string `json:"picture"`
}

func parseGoogleProfile(body []byte) (Profile, error) {
	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return Profile{}, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	profile := Profile{
		FirstName:   info.GivenName,
		LastName:    info.FamilyName,
		Email:       info.Email,
		DateOfBirth: info.Birthdate,
		Picture:     info.Picture,
	}
	return profile, profile.validate()
}

type facebookUserInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Birthday  string `json:"birthday"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func parseFacebookProfile(body []byte) (Profile, error) {
	var info facebookUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return Profile{}, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	profile := Profile{
		FirstName:   info.FirstName,
		LastName:    info.LastName,
		Email:       info.Email,
		DateOfBirth: info.Birthday,
		Picture:     info.Picture.Data.URL,
	}
	return profile, profile.validate()
}

// validate ensures all required fields are present; the picture is optional.
func (p Profile) validate() error {
	if p.FirstName == "" || p.LastName == "" || p.Email == "" || p.DateOfBirth == "" {
		return ErrIncompleteProfile
	}
	return nil
}

func stateKey(provider, state string) string {
	return provider + ":" + state
}

func generateState() (string, error) {
	buf := make([]byte, stateLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

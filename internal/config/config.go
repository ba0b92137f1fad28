// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package config builds the immutable service configuration from CLI flags,
// environment variables and an optional TOML file. The Config value is
// constructed once at startup and passed by reference; secrets are never
// re-read at call time.
package config

import (
	"fmt"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	OAuth    OAuthConfig
	TLS      TLSConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string // public URL of this service, used for OAuth redirects
	FrontendURL string // URL links in outbound emails point to
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type RedisConfig struct {
	URL string
}

// JWTConfig carries one secret and TTL per token purpose so that leaking one
// secret cannot forge tokens of another purpose.
type JWTConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Issuer             string // unique API id embedded as the iss claim
	AccessSecret       string
	RefreshSecret      string
	ConfirmationSecret string
	ResetSecret        string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	ConfirmationTTL    time.Duration
	ResetTTL           time.Duration
	RefreshCookieName  string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type OAuthConfig struct {
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
}

// TLSConfig selects how the listener terminates TLS: off, acme, selfsigned,
// manual or auto-detection.
type TLSConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Mode     string
	Email    string // ACME account email
	CertDir  string
	CertFile string
	KeyFile  string
}

// IsLocalhost reports whether the host refers to the local machine.
func IsLocalhost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0", "":
		return true
	}
	return false
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			FrontendURL: cmd.String("frontend-url"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Redis: RedisConfig{
			URL: cmd.String("redis-url"),
		},
		JWT: JWTConfig{
			Issuer:             cmd.String("api-id"),
			AccessSecret:       cmd.String("jwt-access-secret"),
			RefreshSecret:      cmd.String("jwt-refresh-secret"),
			ConfirmationSecret: cmd.String("jwt-confirmation-secret"),
			ResetSecret:        cmd.String("jwt-reset-secret"),
			AccessTTL:          time.Duration(cmd.Int("jwt-access-ttl")) * time.Second,
			RefreshTTL:         time.Duration(cmd.Int("jwt-refresh-ttl")) * time.Second,
			ConfirmationTTL:    time.Duration(cmd.Int("jwt-confirmation-ttl")) * time.Second,
			ResetTTL:           time.Duration(cmd.Int("jwt-reset-ttl")) * time.Second,
			RefreshCookieName:  cmd.String("refresh-cookie-name"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			User:     cmd.String("smtp-user"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:       cmd.String("google-client-id"),
			GoogleClientSecret:   cmd.String("google-client-secret"),
			FacebookClientID:     cmd.String("facebook-client-id"),
			FacebookClientSecret: cmd.String("facebook-client-secret"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			Email:    cmd.String("tls-email"),
			CertDir:  cmd.String("tls-cert-dir"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.FrontendURL == "" {
		cfg.Server.FrontendURL = cfg.Server.BaseURL
	}

	return cfg
}

// Validate reports the first missing required setting. Called once at
// startup; everything else has a usable default.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"jwt-access-secret", c.JWT.AccessSecret},
		{"jwt-refresh-secret", c.JWT.RefreshSecret},
		{"jwt-confirmation-secret", c.JWT.ConfirmationSecret},
		{"jwt-reset-secret", c.JWT.ResetSecret},
		{"api-id", c.JWT.Issuer},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required setting %q", r.name)
		}
	}
	return nil
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Public base URL of this service",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "frontend-url",
			Usage:   "Frontend URL used in email links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FRONTEND_URL"), toml.TOML("server.frontend_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/auth.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Value:   "redis://localhost:6379/0",
			Usage:   "Redis URL for the shared token/code store",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_URL"), toml.TOML("redis.url", configFile)),
		},
		&cli.StringFlag{
			Name:    "api-id",
			Usage:   "Unique API id used as JWT issuer",
			Sources: cli.NewValueSourceChain(cli.EnvVar("API_ID"), toml.TOML("jwt.api_id", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-access-secret",
			Usage:   "Secret for access tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_ACCESS_SECRET"), toml.TOML("jwt.access_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-refresh-secret",
			Usage:   "Secret for refresh tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_REFRESH_SECRET"), toml.TOML("jwt.refresh_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-confirmation-secret",
			Usage:   "Secret for email confirmation tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_CONFIRMATION_SECRET"), toml.TOML("jwt.confirmation_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-reset-secret",
			Usage:   "Secret for password reset tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_RESET_SECRET"), toml.TOML("jwt.reset_secret", configFile)),
		},
		&cli.IntFlag{
			Name:    "jwt-access-ttl",
			Value:   600,
			Usage:   "Access token TTL in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_ACCESS_TTL"), toml.TOML("jwt.access_ttl", configFile)),
		},
		&cli.IntFlag{
			Name:    "jwt-refresh-ttl",
			Value:   259200, // 72 hours
			Usage:   "Refresh token TTL in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_REFRESH_TTL"), toml.TOML("jwt.refresh_ttl", configFile)),
		},
		&cli.IntFlag{
			Name:    "jwt-confirmation-ttl",
			Value:   86400, // 24 hours
			Usage:   "Confirmation token TTL in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_CONFIRMATION_TTL"), toml.TOML("jwt.confirmation_ttl", configFile)),
		},
		&cli.IntFlag{
			Name:    "jwt-reset-ttl",
			Value:   1800, // 30 minutes
			Usage:   "Reset token TTL in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_RESET_TTL"), toml.TOML("jwt.reset_ttl", configFile)),
		},
		&cli.StringFlag{
			Name:    "refresh-cookie-name",
			Value:   "refresh",
			Usage:   "Name of the refresh token cookie",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REFRESH_COOKIE_NAME"), toml.TOML("jwt.refresh_cookie_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-user",
			Usage:   "SMTP user",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USER"), toml.TOML("smtp.user", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "From address for outbound mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "google-client-id",
			Usage:   "Google OAuth2 client id",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_CLIENT_ID"), toml.TOML("oauth.google_client_id", configFile)),
		},
		&cli.StringFlag{
			Name:    "google-client-secret",
			Usage:   "Google OAuth2 client secret",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_CLIENT_SECRET"), toml.TOML("oauth.google_client_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "facebook-client-id",
			Usage:   "Facebook OAuth2 client id",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FACEBOOK_CLIENT_ID"), toml.TOML("oauth.facebook_client_id", configFile)),
		},
		&cli.StringFlag{
			Name:    "facebook-client-secret",
			Usage:   "Facebook OAuth2 client secret",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FACEBOOK_CLIENT_SECRET"), toml.TOML("oauth.facebook_client_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, off, acme, selfsigned, manual)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "ACME account email for Let's Encrypt",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_EMAIL"), toml.TOML("tls.email", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-dir",
			Value:   "./data/certs",
			Usage:   "Directory for managed certificates",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_DIR"), toml.TOML("tls.cert_dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Certificate file for manual TLS mode",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Key file for manual TLS mode",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
	}
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services and routes into a
// running echo server with graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/go-auth-service/internal/cache"
	"codeberg.org/oliverandrich/go-auth-service/internal/config"
	"codeberg.org/oliverandrich/go-auth-service/internal/database"
	"codeberg.org/oliverandrich/go-auth-service/internal/handlers"
	"codeberg.org/oliverandrich/go-auth-service/internal/middleware"
	"codeberg.org/oliverandrich/go-auth-service/internal/repository"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/auth"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/email"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/oauthflow"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/password"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/revocation"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/token"
	"codeberg.org/oliverandrich/go-auth-service/internal/services/twofactor"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	redisClient, err := cache.Open(ctx, cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			slog.Error("failed to close redis client", "error", closeErr)
		}
	}()

	mailer, err := email.NewService(&cfg.SMTP, cfg.Server.FrontendURL)
	if err != nil {
		return fmt.Errorf("failed to create mailer: %w", err)
	}

	repo := repository.New(db)
	tokens := token.NewService(&cfg.JWT)
	coordinator := oauthflow.NewCoordinator(&cfg.OAuth, cfg.Server.BaseURL, redisClient)

	authService, err := auth.NewService(
		repo,
		tokens,
		password.NewHasher(),
		revocation.NewStore(redisClient),
		twofactor.NewStore(redisClient, cfg.JWT.ConfirmationTTL),
		coordinator,
		mailer,
	)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, cfg, authService, tokens)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, cfg *config.Config, svc *auth.Service, tokens *token.Service) {
	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	h := handlers.New(svc, cfg.JWT.RefreshCookieName, secure)

	e.GET("/health", h.Health)

	g := e.Group("/auth")
	g.POST("/sign-up", h.SignUp)
	g.POST("/confirm-email", h.ConfirmEmail)
	g.POST("/sign-in", h.SignIn)
	g.POST("/confirm-sign-in", h.ConfirmSignIn)
	g.POST("/sign-out", h.SignOut)
	g.POST("/refresh-token", h.Refresh)
	g.POST("/forgot-password", h.ForgotPassword)
	g.POST("/reset-password", h.ResetPassword)
	g.GET("/ext/:provider", h.OAuthSignIn)
	g.GET("/ext/:provider/callback", h.OAuthCallback)

	protected := g.Group("", middleware.RequireAccessToken(tokens))
	protected.POST("/update-password", h.UpdatePassword)
	protected.POST("/update-two-factor", h.UpdateTwoFactor)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP→HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeSelfSigned, TLSModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/ticketing/internal/config"
	"codeberg.org/oliverandrich/ticketing/internal/database"
	"codeberg.org/oliverandrich/ticketing/internal/handlers"
	"codeberg.org/oliverandrich/ticketing/internal/i18n"
	appmw "codeberg.org/oliverandrich/ticketing/internal/middleware"
	"codeberg.org/oliverandrich/ticketing/internal/repository"
	"codeberg.org/oliverandrich/ticketing/internal/services/auth"
	"codeberg.org/oliverandrich/ticketing/internal/services/company"
	"codeberg.org/oliverandrich/ticketing/internal/services/email"
	"codeberg.org/oliverandrich/ticketing/internal/services/throttle"
	"codeberg.org/oliverandrich/ticketing/internal/storage"
	"codeberg.org/oliverandrich/ticketing/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Deps are the services the HTTP server is built from.
type Deps struct {
	Repo      *repository.Repository
	Auth      *auth.Service
	Companies *company.Service
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"database", cfg.Database.Driver,
	)

	// Database, migrations included
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	mailer, err := email.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up email: %w", err)
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	repo := repository.New(db)
	deps := Deps{
		Repo: repo,
		Auth: auth.NewService(repo, mailer, &cfg.Auth, cfg.Site.URL,
			auth.WithLimiter(limiter),
			auth.WithTranslator(i18n.T),
		),
		Companies: company.NewService(repo, storage.New(cfg.Media.Dir)),
	}

	return startWithGracefulShutdown(ctx, New(cfg, deps), cfg)
}

// newLimiter returns the Redis limiter when a Redis URL is configured and
// a no-op limiter otherwise.
func newLimiter(ctx context.Context, cfg *config.Config) (throttle.Limiter, func(), error) {
	if cfg.Redis.URL == "" {
		slog.Info("throttling disabled", "reason", "no redis url")
		return throttle.Noop{}, func() {}, nil
	}

	client, err := throttle.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Error("failed to close redis", "error", err)
		}
	}
	return throttle.NewRedis(client, cfg.Throttle.Limit, cfg.Throttle.Window), closeFn, nil
}

// New builds the Echo instance with middleware and routes.
func New(cfg *config.Config, deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	setupMiddleware(e, cfg, deps.Auth)
	setupRoutes(e, cfg, deps)

	return e
}

func setupRoutes(e *echo.Echo, cfg *config.Config, deps Deps) {
	h := handlers.New(deps.Repo)
	ah := handlers.NewAuth(deps.Auth)
	ch := handlers.NewCompany(deps.Companies, cfg.MediaBaseURL())

	// Uploaded files, unless served from another host
	if strings.HasPrefix(cfg.Media.URL, "/") {
		e.Static(strings.TrimSuffix(cfg.Media.URL, "/"), cfg.Media.Dir)
	}

	api := e.Group("/api")
	api.GET("/health/", h.Health)

	a := api.Group("/auth")
	a.POST("/registration/", ah.Register)
	a.POST("/login/", ah.Login)
	a.POST("/logout/", ah.Logout, appmw.RequireAuth)
	a.GET("/user/", ah.User, appmw.RequireAuth)
	a.PATCH("/user/", ah.UpdateUser, appmw.RequireAuth)
	a.PUT("/user/", ah.UpdateUser, appmw.RequireAuth)
	a.POST("/verify-email/", ah.VerifyEmail)
	a.POST("/resend-verification/", ah.ResendVerification)
	a.POST("/password/reset/", ah.PasswordReset)
	a.POST("/password/reset/confirm/", ah.PasswordResetConfirm)
	a.POST("/complete-onboarding/", ah.CompleteOnboarding, appmw.RequireAuth)

	co := api.Group("/companies", appmw.RequireAuth)
	co.GET("/my/", ch.MyCompany)
	co.PATCH("/my/", ch.UpdateMyCompany)
	co.GET("/my/members/", ch.Members)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Channel for server errors
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

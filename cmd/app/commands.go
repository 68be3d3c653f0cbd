// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/ticketing/internal/config"
	"codeberg.org/oliverandrich/ticketing/internal/database"
	"codeberg.org/oliverandrich/ticketing/internal/repository"
	"codeberg.org/oliverandrich/ticketing/internal/server"
	"codeberg.org/oliverandrich/ticketing/internal/services/auth"
	"codeberg.org/oliverandrich/ticketing/internal/services/email"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: withDB(database.RunMigrations),
			},
			{
				Name:   "down",
				Usage:  "Roll back the last migration",
				Action: withDB(database.MigrateDown),
			},
			{
				Name:   "reset",
				Usage:  "Roll back all migrations",
				Action: withDB(database.MigrateReset),
			},
			{
				Name:   "status",
				Usage:  "Show the state of every migration",
				Action: withDB(database.MigrateStatus),
			},
		},
	}
}

// withDB runs fn against the configured database without migrating it first.
func withDB(fn func(db *sqlx.DB) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		cfg := config.NewFromCLI(cmd)
		server.SetupLogger(cfg.Log.Level, cfg.Log.Format)

		db, err := database.Connect(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("failed to close database", "error", closeErr)
			}
		}()

		return fn(db)
	}
}

func createSuperuserCommand() *cli.Command {
	return &cli.Command{
		Name:  "createsuperuser",
		Usage: "Create a verified staff user with all permissions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
			&cli.StringFlag{Name: "password", Usage: "Password", Required: true, Sources: cli.EnvVars("SUPERUSER_PASSWORD")},
			&cli.StringFlag{Name: "name", Usage: "Display name", Value: "Admin"},
		},
		Action: createSuperuser,
	}
}

func createSuperuser(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	server.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	mailer, err := email.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up email: %w", err)
	}

	svc := auth.NewService(repository.New(db), mailer, &cfg.Auth, cfg.Site.URL)
	user, err := svc.EnsureSuperuser(ctx, cmd.String("email"), cmd.String("password"), cmd.String("name"))

	var pwErr *auth.PasswordValidationError
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return fmt.Errorf("a user with email %q already exists", cmd.String("email"))
	case errors.As(err, &pwErr):
		return fmt.Errorf("password rejected: %v", pwErr.Messages())
	case err != nil:
		return err
	}

	fmt.Printf("Superuser %s created (id %d)\n", user.Email, user.ID)
	return nil
}

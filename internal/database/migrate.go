// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"embed"
	"fmt"
	"path"

	"github.com/pressly/goose/v3"
	"github.com/vinovest/sqlx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// prepare selects the goose dialect and migration directory for the
// connection's driver.
func prepare(db *sqlx.DB) (string, error) {
	goose.SetBaseFS(embedMigrations)

	var dialect, dir string
	switch db.DriverName() {
	case DriverSQLite:
		dialect, dir = "sqlite3", "sqlite"
	case DriverPostgres:
		dialect, dir = "postgres", "postgres"
	default:
		return "", fmt.Errorf("no migrations for driver %q", db.DriverName())
	}

	if err := goose.SetDialect(dialect); err != nil {
		return "", err
	}

	return path.Join("migrations", dir), nil
}

// RunMigrations runs all pending goose migrations.
func RunMigrations(db *sqlx.DB) error {
	dir, err := prepare(db)
	if err != nil {
		return err
	}

	return goose.Up(db.DB, dir)
}

// MigrateDown rolls back the last migration.
func MigrateDown(db *sqlx.DB) error {
	dir, err := prepare(db)
	if err != nil {
		return err
	}

	return goose.Down(db.DB, dir)
}

// MigrateReset rolls back all migrations.
func MigrateReset(db *sqlx.DB) error {
	dir, err := prepare(db)
	if err != nil {
		return err
	}

	return goose.Reset(db.DB, dir)
}

// MigrateStatus prints the applied state of every migration.
func MigrateStatus(db *sqlx.DB) error {
	dir, err := prepare(db)
	if err != nil {
		return err
	}

	return goose.Status(db.DB, dir)
}

// Version returns the current schema version.
func Version(db *sqlx.DB) (int64, error) {
	if _, err := prepare(db); err != nil {
		return 0, err
	}

	return goose.GetDBVersion(db.DB)
}

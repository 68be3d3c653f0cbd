// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/oliverandrich/ticketing/internal/database"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db interface {
	Get(dest any, query string, args ...any) error
}, name string) bool {
	t.Helper()
	var count int64
	err := db.Get(&count, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", name)
	require.NoError(t, err)
	return count == 1
}

func TestMain(m *testing.M) {
	goose.SetLogger(goose.NopLogger())
	os.Exit(m.Run())
}

func TestOpen_InMemory(t *testing.T) {
	db, err := database.Open(database.DriverSQLite, ":memory:")

	require.NoError(t, err)
	require.NotNil(t, db)

	err = db.Close()
	require.NoError(t, err)
}

func TestOpen_EmptyDriverDefaultsToSQLite(t *testing.T) {
	db, err := database.Open("", ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	assert.Equal(t, database.DriverSQLite, db.DriverName())
}

func TestOpen_DefaultDSN(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	_ = os.Chdir(tmpDir)
	defer func() {
		_ = os.Chdir(oldWd)
	}()

	db, err := database.Open(database.DriverSQLite, "")

	require.NoError(t, err)
	require.NotNil(t, db)
	defer func() {
		_ = db.Close()
	}()

	_, err = os.Stat(filepath.Join(tmpDir, "data", "ticketing.db"))
	assert.NoError(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := database.Open("oracle", "whatever")

	assert.Error(t, err)
}

func TestOpen_PostgresRequiresDSN(t *testing.T) {
	_, err := database.Open(database.DriverPostgres, "")

	assert.Error(t, err)
}

func TestOpen_MigrationsApplied(t *testing.T) {
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	for _, table := range []string{"users", "companies", "company_members", "auth_tokens"} {
		assert.True(t, tableExists(t, db, table), "table %s missing", table)
	}

	version, err := database.Version(db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
}

func TestOpen_ForeignKeysEnabled(t *testing.T) {
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	var enabled int
	err = db.Get(&enabled, "PRAGMA foreign_keys")
	require.NoError(t, err)
	assert.Equal(t, 1, enabled)
}

func TestOpen_WithExistingParams(t *testing.T) {
	db, err := database.Open(database.DriverSQLite, ":memory:?_txlock=deferred")

	require.NoError(t, err)
	require.NotNil(t, db)
	defer func() {
		_ = db.Close()
	}()
}

func TestOpen_PragmasApplied(t *testing.T) {
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	var journalMode string
	err = db.Get(&journalMode, "PRAGMA journal_mode")
	require.NoError(t, err)
	// In memory mode, WAL is not applied, but this shouldn't error
	assert.NotEmpty(t, journalMode)

	var synchronous int
	err = db.Get(&synchronous, "PRAGMA synchronous")
	require.NoError(t, err)
	assert.NotZero(t, synchronous)
}

func TestOpen_FileDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "test.db")

	db, err := database.Open(database.DriverSQLite, dbPath)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	assert.True(t, tableExists(t, db, "users"))
}

func TestConnect_DoesNotMigrate(t *testing.T) {
	db, err := database.Connect(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	assert.False(t, tableExists(t, db, "users"))
}

func TestMigrateDown(t *testing.T) {
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	require.NoError(t, database.MigrateDown(db))

	assert.False(t, tableExists(t, db, "auth_tokens"))
	assert.True(t, tableExists(t, db, "companies"))
}

func TestMigrateReset(t *testing.T) {
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	require.NoError(t, database.MigrateReset(db))

	assert.False(t, tableExists(t, db, "users"))

	require.NoError(t, database.RunMigrations(db))
	assert.True(t, tableExists(t, db, "users"))
}

func TestMigrateStatus(t *testing.T) {
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	assert.NoError(t, database.MigrateStatus(db))
}

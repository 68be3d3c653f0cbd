// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"codeberg.org/oliverandrich/ticketing/internal/database"
	"codeberg.org/oliverandrich/ticketing/internal/models"
	"codeberg.org/oliverandrich/ticketing/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

var quietMigrations sync.Once

// TestPassword is the plain-text password of users created by NewTestUser.
const TestPassword = "securepass123"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	quietMigrations.Do(func() { goose.SetLogger(goose.NopLogger()) })
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates an active user with a verified email and TestPassword.
func NewTestUser(t *testing.T, repo *repository.Repository, email string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:           email,
		PasswordHash:    string(hash),
		Name:            "Test User",
		IsActive:        true,
		IsEmailVerified: true,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// NewUnverifiedTestUser creates an active user whose email is not verified yet.
func NewUnverifiedTestUser(t *testing.T, repo *repository.Repository, email string) *models.User {
	t.Helper()
	user := NewTestUser(t, repo, email)
	user.IsEmailVerified = false
	require.NoError(t, repo.UpdateUser(context.Background(), user))
	return user
}

// NewTestCompany creates a company administered by admin, who is also a member.
func NewTestCompany(t *testing.T, repo *repository.Repository, admin *models.User, name string) *models.Company {
	t.Helper()
	ctx := context.Background()
	company := &models.Company{Name: name, AdminID: admin.ID}
	require.NoError(t, repo.CreateCompany(ctx, company))
	require.NoError(t, repo.AddCompanyMember(ctx, company.ID, admin.ID))
	return company
}

// NewTestToken returns the auth token key for a user.
func NewTestToken(t *testing.T, repo *repository.Repository, user *models.User) string {
	t.Helper()
	token, err := repo.GetOrCreateToken(context.Background(), user.ID)
	require.NoError(t, err)
	return token.Key
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewEchoContextWithHeaders creates an Echo context with custom headers.
func NewEchoContextWithHeaders(e *echo.Echo, method, path string, body io.Reader, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

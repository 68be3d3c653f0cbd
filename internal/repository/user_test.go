// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/ticketing/internal/models"
	"codeberg.org/oliverandrich/ticketing/internal/repository"
	"codeberg.org/oliverandrich/ticketing/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "John@Example.com", PasswordHash: "hash", Name: "John", IsActive: true}
	err := repo.CreateUser(ctx, user)

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "john@example.com", user.Email)
	assert.NotZero(t, user.CreatedAt)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "test@example.com")

	err := repo.CreateUser(ctx, &models.User{Email: "TEST@example.com", PasswordHash: "hash"})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestGetUserByID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestUser(t, repo, "test@example.com")

	retrieved, err := repo.GetUserByID(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)
	assert.Equal(t, "test@example.com", retrieved.Email)
	assert.Equal(t, "Test User", retrieved.Name)
	assert.True(t, retrieved.IsActive)
	assert.True(t, retrieved.IsEmailVerified)
	assert.False(t, retrieved.IsOnboarded)
	assert.Nil(t, retrieved.LastLogin)
}

func TestGetUserByID_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByID(context.Background(), 999)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestUser(t, repo, "test@example.com")

	retrieved, err := repo.GetUserByEmail(ctx, "  Test@EXAMPLE.com")

	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserExists(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "test@example.com")

	exists, err := repo.UserExists(ctx, "TEST@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.UserExists(ctx, "other@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateUser_VerificationCodeRoundTrip(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewUnverifiedTestUser(t, repo, "test@example.com")
	issued := time.Now()
	code, err := user.IssueVerificationCode(issued)
	require.NoError(t, err)
	user.Name = "Renamed"
	user.IsOnboarded = true

	require.NoError(t, repo.UpdateUser(ctx, user))

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", retrieved.Name)
	assert.True(t, retrieved.IsOnboarded)
	require.NotNil(t, retrieved.VerificationCode)
	assert.Equal(t, code, *retrieved.VerificationCode)
	require.NotNil(t, retrieved.VerificationCodeSetAt)
	assert.WithinDuration(t, issued, *retrieved.VerificationCodeSetAt, time.Second)
	assert.True(t, retrieved.VerificationCodeValid(code, time.Now()))
}

func TestUpdateUser_ClearsCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewUnverifiedTestUser(t, repo, "test@example.com")
	_, err := user.IssueVerificationCode(time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateUser(ctx, user))

	user.MarkEmailVerified()
	require.NoError(t, repo.UpdateUser(ctx, user))

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.IsEmailVerified)
	assert.Nil(t, retrieved.VerificationCode)
	assert.Nil(t, retrieved.VerificationCodeSetAt)
}

func TestUpdateUser_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.UpdateUser(context.Background(), &models.User{ID: 42, Email: "x@example.com"})

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateUserPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "test@example.com")

	require.NoError(t, repo.UpdateUserPassword(ctx, user.ID, "newhash"))

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", retrieved.PasswordHash)
}

func TestUpdateUserPassword_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.UpdateUserPassword(context.Background(), 999, "newhash")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateLastLogin(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "test@example.com")
	now := time.Now()

	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, now))

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved.LastLogin)
	assert.WithinDuration(t, now, *retrieved.LastLogin, time.Second)
}

func TestCountUsers(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	testutil.NewTestUser(t, repo, "a@example.com")
	testutil.NewTestUser(t, repo, "b@example.com")

	count, err = repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

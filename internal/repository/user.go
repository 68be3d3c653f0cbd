// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/ticketing/internal/models"
)

const userColumns = `id, email, password_hash, name, is_active, is_staff, is_superuser,
	is_email_verified, email_verification_code, email_verification_code_created_at,
	is_onboarded, last_login, created_at, updated_at`

// CreateUser inserts a new user and sets its ID and timestamps. The email
// is normalized before storage.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.Email = models.NormalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	id, err := r.insertReturningID(ctx,
		`INSERT INTO users (email, password_hash, name, is_active, is_staff, is_superuser,
			is_email_verified, email_verification_code, email_verification_code_created_at,
			is_onboarded, last_login, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		user.Email, user.PasswordHash, user.Name, user.IsActive, user.IsStaff, user.IsSuperuser,
		user.IsEmailVerified, user.VerificationCode, user.VerificationCodeSetAt,
		user.IsOnboarded, user.LastLogin, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return err
	}

	user.ID = id
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email address, case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, models.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserExists checks if a user with the given email exists.
func (r *Repository) UserExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.get(ctx, &count, `SELECT count(*) FROM users WHERE email = ?`, models.NormalizeEmail(email)); err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateUser writes all mutable fields of the user back to the database.
func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := r.exec(ctx,
		`UPDATE users SET email = ?, password_hash = ?, name = ?, is_active = ?, is_staff = ?,
			is_superuser = ?, is_email_verified = ?, email_verification_code = ?,
			email_verification_code_created_at = ?, is_onboarded = ?, last_login = ?, updated_at = ?
		WHERE id = ?`,
		models.NormalizeEmail(user.Email), user.PasswordHash, user.Name, user.IsActive, user.IsStaff,
		user.IsSuperuser, user.IsEmailVerified, user.VerificationCode,
		user.VerificationCodeSetAt, user.IsOnboarded, user.LastLogin, user.UpdatedAt,
		user.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateUserPassword updates a user's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateLastLogin records a successful login.
func (r *Repository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.exec(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), id)
	return err
}

// CountUsers returns the total number of users.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.get(ctx, &count, `SELECT count(*) FROM users`); err != nil {
		return 0, err
	}
	return count, nil
}

func requireAffected(res interface{ RowsAffected() (int64, error) }) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

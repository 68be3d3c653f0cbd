// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"errors"
	"time"

	"codeberg.org/oliverandrich/ticketing/internal/models"
)

// GetOrCreateToken returns the user's auth token, creating one if the user
// has none yet.
func (r *Repository) GetOrCreateToken(ctx context.Context, userID int64) (*models.AuthToken, error) {
	token, err := r.GetTokenByUserID(ctx, userID)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	key, err := models.NewAuthTokenKey()
	if err != nil {
		return nil, err
	}

	token = &models.AuthToken{Key: key, UserID: userID, CreatedAt: time.Now().UTC()}
	_, err = r.exec(ctx, `INSERT INTO auth_tokens (key, user_id, created_at) VALUES (?, ?, ?)`,
		token.Key, token.UserID, token.CreatedAt)
	if errors.Is(err, ErrDuplicate) {
		// Created concurrently by another request.
		return r.GetTokenByUserID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	return token, nil
}

// GetTokenByUserID retrieves the auth token of a user.
func (r *Repository) GetTokenByUserID(ctx context.Context, userID int64) (*models.AuthToken, error) {
	var token models.AuthToken
	if err := r.get(ctx, &token, `SELECT key, user_id, created_at FROM auth_tokens WHERE user_id = ?`, userID); err != nil {
		return nil, err
	}
	return &token, nil
}

// GetUserByToken resolves a token key to its user.
func (r *Repository) GetUserByToken(ctx context.Context, key string) (*models.User, error) {
	var user models.User
	err := r.get(ctx, &user,
		`SELECT u.id, u.email, u.password_hash, u.name, u.is_active, u.is_staff, u.is_superuser,
			u.is_email_verified, u.email_verification_code, u.email_verification_code_created_at,
			u.is_onboarded, u.last_login, u.created_at, u.updated_at
		FROM users u
		JOIN auth_tokens t ON t.user_id = u.id
		WHERE t.key = ?`,
		key)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteToken deletes a token by key.
func (r *Repository) DeleteToken(ctx context.Context, key string) error {
	_, err := r.exec(ctx, `DELETE FROM auth_tokens WHERE key = ?`, key)
	return err
}

// DeleteUserTokens deletes all tokens of a user.
func (r *Repository) DeleteUserTokens(ctx context.Context, userID int64) error {
	_, err := r.exec(ctx, `DELETE FROM auth_tokens WHERE user_id = ?`, userID)
	return err
}

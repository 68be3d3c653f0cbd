// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"codeberg.org/oliverandrich/ticketing/internal/models"
	"codeberg.org/oliverandrich/ticketing/internal/repository"
	"codeberg.org/oliverandrich/ticketing/internal/services/throttle"
	"codeberg.org/oliverandrich/ticketing/internal/validation"
)

// VerifyEmail checks the code sent to email, marks the address as verified
// and returns the user's auth token.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (*models.AuthToken, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownEmail
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.IsEmailVerified {
		return nil, ErrAlreadyVerified
	}

	if !user.VerificationCodeValid(code, s.now()) {
		slog.Warn("verify_email_failed", "user_id", user.ID)
		return nil, ErrInvalidCode
	}

	user.MarkEmailVerified()

	var token *models.AuthToken
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}
		token, err = tx.GetOrCreateToken(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify email: %w", err)
	}

	slog.Info("verify_email_success", "user_id", user.ID)
	return token, nil
}

// ResendVerification issues a new code for an unverified user. Unknown
// addresses and throttled requests succeed without sending anything.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	if !s.limiter.Allow(ctx, throttle.ActionResendVerification, email) {
		return nil
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}

	code, err := user.IssueVerificationCode(s.now())
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	return s.sendVerificationCode(ctx, user, code)
}

func (s *Service) sendVerificationCode(ctx context.Context, user *models.User, code string) error {
	return s.mailer.SendTemplate(ctx, user.Email, s.translate(ctx, "email_verify_subject"), TemplateVerifyEmail, map[string]any{
		"name":              user.Name,
		"verification_code": code,
	})
}

// RequestPasswordReset emails a reset link to the user. It reports
// success for unknown addresses, throttled requests and send failures
// alike, so callers cannot tell which accounts exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if !s.limiter.Allow(ctx, throttle.ActionPasswordReset, email) {
		return nil
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	resetURL, err := s.PasswordResetURL(user)
	if err != nil {
		return err
	}

	err = s.mailer.SendTemplate(ctx, user.Email, s.translate(ctx, "email_password_reset_subject"), TemplatePasswordReset, map[string]any{
		"name":               user.Name,
		"email":              user.Email,
		"password_reset_url": resetURL,
	})
	if err != nil {
		slog.Error("password_reset_email_failed", "user_id", user.ID, "error", err)
		return nil
	}

	slog.Info("password_reset_requested", "user_id", user.ID)
	return nil
}

// PasswordResetURL builds the frontend link for resetting the user's password.
func (s *Service) PasswordResetURL(user *models.User) (string, error) {
	token, err := s.resetTokens.Make(user, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to create reset token: %w", err)
	}
	return fmt.Sprintf("%s/reset-password/%s/%s", s.siteURL, EncodeUID(user.ID), token), nil
}

// MinResetPasswordLength is the only rule a new password set through a
// reset link has to meet.
const MinResetPasswordLength = 8

// ConfirmPasswordReset sets a new password if uid and token form a valid
// reset link. The user's auth token is deleted, ending existing sessions.
func (s *Service) ConfirmPasswordReset(ctx context.Context, uid, token, newPassword string) error {
	id, err := DecodeUID(uid)
	if err != nil {
		return ErrInvalidResetLink
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidResetLink
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.resetTokens.Check(user, token, s.now()); err != nil {
		slog.Warn("password_reset_failed", "user_id", user.ID, "reason", err)
		return ErrInvalidResetLink
	}

	if utf8.RuneCountInString(newPassword) < MinResetPasswordLength {
		return validation.Field("new_password", fmt.Sprintf("Ensure this field has at least %d characters.", MinResetPasswordLength))
	}

	passwordHash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.UpdateUserPassword(ctx, user.ID, passwordHash); err != nil {
			return err
		}
		return tx.DeleteUserTokens(ctx, user.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	slog.Info("password_reset_success", "user_id", user.ID)
	return nil
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/ticketing/internal/i18n"
	"codeberg.org/oliverandrich/ticketing/internal/services/auth"
	"codeberg.org/oliverandrich/ticketing/internal/services/email"
	"codeberg.org/oliverandrich/ticketing/internal/validation"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for accounts and authentication.
type AuthHandlers struct {
	auth *auth.Service
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *auth.Service) *AuthHandlers {
	return &AuthHandlers{auth: svc}
}

// Register creates an account and sends the verification code.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req auth.RegisterParams
	if err := decode(c, &req); err != nil {
		return renderError(c, err)
	}

	_, err := h.auth.Register(c.Request().Context(), req)
	if errors.Is(err, auth.ErrUserExists) {
		return FieldErrors(c, validation.Field("email", i18n.T(c.Request().Context(), "user_exists")))
	}
	if err != nil {
		return renderError(c, err)
	}

	return Detail(c, http.StatusCreated, "registration_verification_sent")
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Login exchanges credentials for the user's auth token.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return renderError(c, err)
	}

	ctx := c.Request().Context()
	user, token, err := h.auth.Login(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return FieldErrors(c, validation.NonField(i18n.T(ctx, "login_invalid_credentials")))
	case errors.Is(err, auth.ErrEmailNotVerified):
		return c.JSON(http.StatusForbidden, map[string]any{
			"email_not_verified": true,
			"email":              user.Email,
			"detail":             i18n.T(ctx, "login_email_not_verified"),
		})
	case err != nil:
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"key": token.Key})
}

// Logout deletes the auth token the request was made with.
func (h *AuthHandlers) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), currentToken(c)); err != nil {
		return err
	}
	return Detail(c, http.StatusOK, "logout_success")
}

// User returns the authenticated user.
func (h *AuthHandlers) User(c echo.Context) error {
	return c.JSON(http.StatusOK, currentUser(c))
}

// UpdateUserRequest is the request body for a partial profile update.
// Email, pk and is_onboarded are read-only.
type UpdateUserRequest struct {
	Name *string `json:"name"`
}

// UpdateUser changes the authenticated user's profile.
func (h *AuthHandlers) UpdateUser(c echo.Context) error {
	var req UpdateUserRequest
	if err := decode(c, &req); err != nil {
		return renderError(c, err)
	}

	user := currentUser(c)
	if req.Name == nil {
		return c.JSON(http.StatusOK, user)
	}

	updated, err := h.auth.UpdateProfile(c.Request().Context(), user, *req.Name)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// VerifyEmailRequest is the request body for verifying an email address.
type VerifyEmailRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
	Code  string `json:"code" form:"code" validate:"required,min=6,max=6"`
}

// VerifyEmail checks the verification code and logs the user in.
func (h *AuthHandlers) VerifyEmail(c echo.Context) error {
	var req VerifyEmailRequest
	if err := bind(c, &req); err != nil {
		return renderError(c, err)
	}

	token, err := h.auth.VerifyEmail(c.Request().Context(), req.Email, req.Code)
	switch {
	case errors.Is(err, auth.ErrUnknownEmail):
		return Detail(c, http.StatusBadRequest, "verify_email_invalid")
	case errors.Is(err, auth.ErrAlreadyVerified):
		return Detail(c, http.StatusBadRequest, "verify_email_already_verified")
	case errors.Is(err, auth.ErrInvalidCode):
		return Detail(c, http.StatusBadRequest, "verify_email_invalid_code")
	case err != nil:
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"detail": i18n.T(c.Request().Context(), "verify_email_success"),
		"key":    token.Key,
	})
}

// EmailRequest is the request body of endpoints taking only an address.
type EmailRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

// ResendVerification sends a new verification code. The answer is the same
// whether or not an account exists.
func (h *AuthHandlers) ResendVerification(c echo.Context) error {
	var req EmailRequest
	if err := bind(c, &req); err != nil {
		return renderError(c, err)
	}

	err := h.auth.ResendVerification(c.Request().Context(), req.Email)
	var sendErr *email.SendError
	switch {
	case errors.Is(err, auth.ErrAlreadyVerified):
		return Detail(c, http.StatusBadRequest, "verify_email_already_verified")
	case errors.As(err, &sendErr):
		slog.Error("resend_verification_failed", "error", err)
	case err != nil:
		return err
	}

	return Detail(c, http.StatusOK, "resend_verification_generic")
}

// PasswordReset emails a reset link. The answer is the same whether or not
// an account exists.
func (h *AuthHandlers) PasswordReset(c echo.Context) error {
	var req EmailRequest
	if err := bind(c, &req); err != nil {
		return renderError(c, err)
	}

	if err := h.auth.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return Detail(c, http.StatusOK, "password_reset_sent")
}

// PasswordResetConfirmRequest is the request body for setting a new password.
type PasswordResetConfirmRequest struct {
	UID         string `json:"uid" form:"uid" validate:"required"`
	Token       string `json:"token" form:"token" validate:"required"`
	NewPassword string `json:"new_password" form:"new_password" validate:"required,min=8"`
}

// PasswordResetConfirm sets a new password using a reset link.
func (h *AuthHandlers) PasswordResetConfirm(c echo.Context) error {
	var req PasswordResetConfirmRequest
	if err := bind(c, &req); err != nil {
		return renderError(c, err)
	}

	err := h.auth.ConfirmPasswordReset(c.Request().Context(), req.UID, req.Token, req.NewPassword)
	if errors.Is(err, auth.ErrInvalidResetLink) {
		return Detail(c, http.StatusBadRequest, "password_reset_invalid_link")
	}
	if err != nil {
		return renderError(c, err)
	}

	return Detail(c, http.StatusOK, "password_reset_success")
}

// CompleteOnboarding marks the authenticated user as onboarded.
func (h *AuthHandlers) CompleteOnboarding(c echo.Context) error {
	user, err := h.auth.CompleteOnboarding(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

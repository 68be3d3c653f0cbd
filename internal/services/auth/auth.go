// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"codeberg.org/oliverandrich/ticketing/internal/config"
	"codeberg.org/oliverandrich/ticketing/internal/models"
	"codeberg.org/oliverandrich/ticketing/internal/repository"
	"codeberg.org/oliverandrich/ticketing/internal/services/throttle"
	"codeberg.org/oliverandrich/ticketing/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCode        = errors.New("invalid or expired verification code")
	ErrUnknownEmail       = fmt.Errorf("%w: unknown email", ErrInvalidCode)
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrInvalidResetLink   = errors.New("invalid or expired password reset link")
	ErrInvalidEmail       = errors.New("invalid email format")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Template names of the emails sent by the service.
const (
	TemplateVerifyEmail   = "auth/verify_email"
	TemplatePasswordReset = "auth/password_reset"
)

// Mailer sends templated emails.
type Mailer interface {
	SendTemplate(ctx context.Context, to, subject, templateName string, data map[string]any) error
}

// Translator resolves a message ID for the locale carried by ctx.
type Translator func(ctx context.Context, messageID string) string

// LoginPolicy runs after the credentials check. A non-nil error denies
// the login.
type LoginPolicy func(user *models.User) error

// RequireVerifiedEmail denies logins of users who have not verified their
// email address yet.
func RequireVerifiedEmail(user *models.User) error {
	if !user.IsEmailVerified {
		return ErrEmailNotVerified
	}
	return nil
}

type Service struct {
	repo              *repository.Repository
	mailer            Mailer
	config            *config.AuthConfig
	siteURL           string
	passwordValidator *PasswordValidator
	validator         *validation.Validator
	resetTokens       *ResetTokens
	limiter           throttle.Limiter
	policies          []LoginPolicy
	translate         Translator
	now               func() time.Time
	hashCost          int
}

// Option configures a Service.
type Option func(*Service)

// WithLimiter throttles resend-verification and password-reset requests.
func WithLimiter(l throttle.Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHashCost sets the bcrypt cost for new password hashes.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// WithTranslator localizes email subjects.
func WithTranslator(t Translator) Option {
	return func(s *Service) { s.translate = t }
}

// WithLoginPolicies replaces the policies derived from the config.
func WithLoginPolicies(policies ...LoginPolicy) Option {
	return func(s *Service) { s.policies = policies }
}

// NewService creates the account service. siteURL is the frontend base
// URL used in password reset links.
func NewService(repo *repository.Repository, mailer Mailer, cfg *config.AuthConfig, siteURL string, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		mailer:            mailer,
		config:            cfg,
		siteURL:           strings.TrimSuffix(siteURL, "/"),
		passwordValidator: DefaultPasswordValidator(),
		validator:         validation.New(),
		limiter:           throttle.Noop{},
		translate:         defaultSubject,
		now:               time.Now,
		hashCost:          bcrypt.DefaultCost,
	}

	if cfg.RequireEmailVerification {
		s.policies = []LoginPolicy{RequireVerifiedEmail}
	}

	for _, opt := range opts {
		opt(s)
	}

	s.resetTokens = NewResetTokens(resetSecret(cfg.SecretKey), cfg.PasswordResetTimeout)

	return s
}

func resetSecret(secret string) []byte {
	if secret != "" {
		return []byte(secret)
	}

	slog.Warn("auth_secret_missing", "detail", "password reset links will not survive a restart")
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return key
}

var defaultSubjects = map[string]string{
	"email_verify_subject":         "Verify your email address",
	"email_password_reset_subject": "Reset your password",
}

func defaultSubject(_ context.Context, messageID string) string {
	if s, ok := defaultSubjects[messageID]; ok {
		return s
	}
	return messageID
}

// RegisterParams holds the parameters for user registration
type RegisterParams struct {
	Name     string `json:"name" form:"name" validate:"required,notblank,max=255"`
	Email    string `json:"email" form:"email" validate:"required,email,max=254"`
	Password string `json:"password1" form:"password1" validate:"required"`
}

func userAttributes(email, name string) []UserAttribute {
	return []UserAttribute{
		{Label: "email address", Value: email},
		{Label: "name", Value: name},
	}
}

// Register creates a user together with the company they administer and
// emails them a verification code. Field problems are returned as
// validation.Errors, a taken email address as ErrUserExists.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	errs := validation.Errors{}
	if err := s.validator.Validate(params); err != nil {
		fieldErrs, ok := validation.AsErrors(err)
		if !ok {
			return nil, err
		}
		errs.Merge(fieldErrs)
	}
	if params.Password != "" {
		if res := s.passwordValidator.Validate(params.Password, userAttributes(params.Email, params.Name)...); !res.Valid {
			for _, e := range res.Errors {
				errs.Add("password1", e.Message)
			}
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	email := models.NormalizeEmail(params.Email)

	exists, err := s.repo.UserExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := s.hashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         params.Name,
		IsActive:     true,
	}

	code, err := user.IssueVerificationCode(s.now())
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}

		company := &models.Company{Name: models.DefaultCompanyName(user.Name), AdminID: user.ID}
		if err := tx.CreateCompany(ctx, company); err != nil {
			return fmt.Errorf("failed to create company: %w", err)
		}
		return tx.AddCompanyMember(ctx, company.ID, user.ID)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "email", user.Email)

	// The account exists either way; a lost email can be resent.
	if err := s.sendVerificationCode(ctx, user, code); err != nil {
		slog.Error("verification_email_failed", "user_id", user.ID, "error", err)
	}

	return user, nil
}

// Authenticate checks the credentials. Unknown emails, wrong passwords and
// inactive users all yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", email, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		slog.Warn("login_failed", "email", email, "reason", "inactive")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates the user, applies the login policies and returns the
// user's auth token. When a policy denies the login the user is returned
// along with the policy error.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, *models.AuthToken, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	for _, policy := range s.policies {
		if err := policy(user); err != nil {
			slog.Warn("login_denied", "user_id", user.ID, "reason", err)
			return user, nil, err
		}
	}

	token, err := s.repo.GetOrCreateToken(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get token: %w", err)
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLogin = &now

	slog.Info("login_success", "user_id", user.ID, "email", user.Email)
	return user, token, nil
}

// Logout deletes the auth token.
func (s *Service) Logout(ctx context.Context, key string) error {
	if err := s.repo.DeleteToken(ctx, key); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	slog.Info("logout_success")
	return nil
}

// UserForToken resolves an auth token to an active user.
func (s *Service) UserForToken(ctx context.Context, key string) (*models.User, error) {
	if key == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByToken(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// UpdateProfile changes the user's display name.
func (s *Service) UpdateProfile(ctx context.Context, user *models.User, name string) (*models.User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validation.Field("name", "This field may not be blank.")
	}
	if len([]rune(name)) > 255 {
		return nil, validation.Field("name", "Ensure this field has no more than 255 characters.")
	}

	updated := *user
	updated.Name = name
	if err := s.repo.UpdateUser(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &updated, nil
}

// CompleteOnboarding marks the user as onboarded.
func (s *Service) CompleteOnboarding(ctx context.Context, user *models.User) (*models.User, error) {
	updated := *user
	updated.IsOnboarded = true
	if err := s.repo.UpdateUser(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	slog.Info("onboarding_completed", "user_id", user.ID)
	return &updated, nil
}

// EnsureSuperuser creates an active, verified staff user with all
// permissions. It fails with ErrUserExists if the email is taken.
func (s *Service) EnsureSuperuser(ctx context.Context, email, password, name string) (*models.User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	if err := s.passwordValidator.Validate(password, userAttributes(email, name)...).Err(); err != nil {
		return nil, err
	}

	passwordHash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:           email,
		PasswordHash:    passwordHash,
		Name:            name,
		IsActive:        true,
		IsStaff:         true,
		IsSuperuser:     true,
		IsEmailVerified: true,
		IsOnboarded:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create superuser: %w", err)
	}

	slog.Info("superuser_created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	// VerificationCodeLength is the number of digits in an email verification code.
	VerificationCodeLength = 6
	// VerificationCodeExpiry is how long a verification code stays valid.
	VerificationCodeExpiry = 15 * time.Minute
)

var verificationCodeSpace = big.NewInt(1_000_000)

// User is an account. The email address is the login name.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID                    int64      `db:"id" json:"pk"`
	Email                 string     `db:"email" json:"email"`
	PasswordHash          string     `db:"password_hash" json:"-"`
	Name                  string     `db:"name" json:"name"`
	IsActive              bool       `db:"is_active" json:"-"`
	IsStaff               bool       `db:"is_staff" json:"-"`
	IsSuperuser           bool       `db:"is_superuser" json:"-"`
	IsEmailVerified       bool       `db:"is_email_verified" json:"-"`
	VerificationCode      *string    `db:"email_verification_code" json:"-"`
	VerificationCodeSetAt *time.Time `db:"email_verification_code_created_at" json:"-"`
	IsOnboarded           bool       `db:"is_onboarded" json:"is_onboarded"`
	LastLogin             *time.Time `db:"last_login" json:"-"`
	CreatedAt             time.Time  `db:"created_at" json:"-"`
	UpdatedAt             time.Time  `db:"updated_at" json:"-"`
}

// String returns the email address.
func (u *User) String() string {
	return u.Email
}

// NormalizeEmail trims and lower-cases an email address. All lookups and
// inserts go through it, so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IssueVerificationCode generates a fresh 6-digit code, stores it on the
// user together with now and returns it. The caller persists the user.
func (u *User) IssueVerificationCode(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, verificationCodeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	code := fmt.Sprintf("%0*d", VerificationCodeLength, n.Int64())
	issuedAt := now.UTC()
	u.VerificationCode = &code
	u.VerificationCodeSetAt = &issuedAt

	return code, nil
}

// VerificationCodeValid reports whether code matches the stored code and
// was issued no more than VerificationCodeExpiry before now.
func (u *User) VerificationCodeValid(code string, now time.Time) bool {
	if u.VerificationCode == nil || *u.VerificationCode == "" || u.VerificationCodeSetAt == nil {
		return false
	}

	if subtle.ConstantTimeCompare([]byte(*u.VerificationCode), []byte(code)) != 1 {
		return false
	}

	return !now.After(u.VerificationCodeSetAt.Add(VerificationCodeExpiry))
}

// MarkEmailVerified flags the email as verified and clears the pending code.
func (u *User) MarkEmailVerified() {
	u.IsEmailVerified = true
	u.VerificationCode = nil
	u.VerificationCodeSetAt = nil
}

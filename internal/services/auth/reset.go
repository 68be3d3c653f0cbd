// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/ticketing/internal/models"
	"github.com/gorilla/securecookie"
)

const resetTokenName = "password_reset"

var errResetTokenInvalid = errors.New("invalid password reset token")

// resetClaims is the signed payload of a password reset token.
type resetClaims struct {
	UserID      int64  `json:"u"`
	Fingerprint string `json:"f"`
	IssuedAt    int64  `json:"t"`
}

// ResetTokens mints and checks password reset tokens. A token is bound to
// the user's current password hash, email and last login, so it stops
// working once any of them change.
type ResetTokens struct {
	codec  *securecookie.SecureCookie
	maxAge time.Duration
}

// NewResetTokens creates a token codec signing with a key derived from secret.
func NewResetTokens(secret []byte, maxAge time.Duration) *ResetTokens {
	hashKey := sha256.Sum256(append([]byte("ticketing.password_reset:"), secret...))

	codec := securecookie.New(hashKey[:], nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(maxAge.Seconds()))
	// Tokens end up in URLs, not cookies.
	codec.MaxLength(0)

	return &ResetTokens{codec: codec, maxAge: maxAge}
}

// Make creates a token for user.
func (rt *ResetTokens) Make(user *models.User, now time.Time) (string, error) {
	return rt.codec.Encode(resetTokenName, resetClaims{
		UserID:      user.ID,
		Fingerprint: fingerprint(user),
		IssuedAt:    now.Unix(),
	})
}

// Check verifies that token was minted for user in its current state and
// has not expired.
func (rt *ResetTokens) Check(user *models.User, token string, now time.Time) error {
	var claims resetClaims
	if err := rt.codec.Decode(resetTokenName, token, &claims); err != nil {
		return errResetTokenInvalid
	}

	if claims.UserID != user.ID {
		return errResetTokenInvalid
	}
	if subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(fingerprint(user))) != 1 {
		return errResetTokenInvalid
	}
	if rt.maxAge > 0 && now.Sub(time.Unix(claims.IssuedAt, 0)) > rt.maxAge {
		return errResetTokenInvalid
	}

	return nil
}

func fingerprint(user *models.User) string {
	var lastLogin int64
	if user.LastLogin != nil {
		lastLogin = user.LastLogin.Unix()
	}

	h := sha256.New()
	h.Write([]byte(user.PasswordHash))
	h.Write([]byte{0})
	h.Write([]byte(user.Email))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(lastLogin, 10)))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// EncodeUID encodes a user ID for use in a reset link.
func EncodeUID(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(uid string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

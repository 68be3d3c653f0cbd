// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// authTokenBytes yields 40 hex characters.
const authTokenBytes = 20

// AuthToken is the opaque API key a user authenticates with. Each user has
// at most one; logging out deletes it.
type AuthToken struct {
	Key       string    `db:"key"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// NewAuthTokenKey generates a random token key.
func NewAuthTokenKey() (string, error) {
	b := make([]byte, authTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

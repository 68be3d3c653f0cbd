// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"fmt"
	"time"
)

// Company is administered by exactly one user and has any number of members.
type Company struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Logo      *string   `db:"logo"` // path relative to the media root
	AdminID   int64     `db:"admin_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DefaultCompanyName is the name given to the company created at registration.
func DefaultCompanyName(userName string) string {
	return fmt.Sprintf("%s's Company", userName)
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext provides the custom Echo context.
package appcontext

import (
	"codeberg.org/oliverandrich/ticketing/internal/models"
	"github.com/labstack/echo/v4"
)

// Context is a custom Echo context carrying the token-authenticated user.
type Context struct {
	echo.Context
	User  *models.User // nil if not authenticated
	Token string       // auth token key the user authenticated with
}

// GetUser returns the authenticated user, or nil if not authenticated.
func (c *Context) GetUser() *models.User {
	return c.User
}

// IsAuthenticated returns true if the user is authenticated.
func (c *Context) IsAuthenticated() bool {
	return c.User != nil
}

// From returns the custom context wrapped around c, or nil.
func From(c echo.Context) *Context {
	if cc, ok := c.(*Context); ok {
		return cc
	}
	return nil
}

// Wrap installs the custom context for all following handlers.
func Wrap() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := c.(*Context); ok {
				return next(c)
			}
			return next(&Context{Context: c})
		}
	}
}

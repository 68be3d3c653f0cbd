// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"codeberg.org/oliverandrich/ticketing/internal/appcontext"
	"codeberg.org/oliverandrich/ticketing/internal/models"
	"github.com/labstack/echo/v4"
)

// decode binds the request body into req.
func decode(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusUnsupportedMediaType {
			return err
		}
		return errInvalidBody
	}
	return nil
}

// bind decodes the request body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := decode(c, req); err != nil {
		return err
	}
	return c.Validate(req)
}

// currentUser returns the token-authenticated user. Routes using it sit
// behind middleware.RequireAuth.
func currentUser(c echo.Context) *models.User {
	if cc := appcontext.From(c); cc != nil {
		return cc.User
	}
	return nil
}

func currentToken(c echo.Context) string {
	if cc := appcontext.From(c); cc != nil {
		return cc.Token
	}
	return ""
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/ticketing/internal/appcontext"
	"codeberg.org/oliverandrich/ticketing/internal/i18n"
	"codeberg.org/oliverandrich/ticketing/internal/models"
	"codeberg.org/oliverandrich/ticketing/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// TokenKeyword is the Authorization scheme of auth tokens.
const TokenKeyword = "Token"

// TokenResolver resolves an auth token key to its user.
type TokenResolver interface {
	UserForToken(ctx context.Context, key string) (*models.User, error)
}

// TokenAuth authenticates requests carrying "Authorization: Token <key>".
// Requests without such a header pass through anonymously; a malformed
// header or an unknown key is rejected with 401.
func TokenAuth(resolver TokenResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			parts := strings.Fields(c.Request().Header.Get(echo.HeaderAuthorization))
			if len(parts) == 0 || !strings.EqualFold(parts[0], TokenKeyword) {
				return next(c)
			}

			ctx := c.Request().Context()
			switch len(parts) {
			case 1:
				return Unauthorized(c, i18n.T(ctx, "auth_invalid_header"))
			case 2:
			default:
				return Unauthorized(c, i18n.T(ctx, "auth_invalid_header_spaces"))
			}

			user, err := resolver.UserForToken(ctx, parts[1])
			if errors.Is(err, auth.ErrInvalidToken) {
				return Unauthorized(c, i18n.T(ctx, "auth_invalid_token"))
			}
			if err != nil {
				return err
			}

			if cc := appcontext.From(c); cc != nil {
				cc.User = user
				cc.Token = parts[1]
				return next(cc)
			}
			return next(&appcontext.Context{Context: c, User: user, Token: parts[1]})
		}
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cc := appcontext.From(c)
		if cc == nil || !cc.IsAuthenticated() {
			return Unauthorized(c, i18n.T(c.Request().Context(), "auth_credentials_missing"))
		}
		return next(cc)
	}
}

// Unauthorized writes a 401 response with a token challenge.
func Unauthorized(c echo.Context, detail string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, TokenKeyword)
	return c.JSON(http.StatusUnauthorized, map[string]string{"detail": detail})
}

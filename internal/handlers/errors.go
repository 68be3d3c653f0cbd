// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/ticketing/internal/i18n"
	"codeberg.org/oliverandrich/ticketing/internal/validation"
	"github.com/labstack/echo/v4"
)

var errInvalidBody = errors.New("invalid request body")

// Detail writes {"detail": "..."} with the translated message.
func Detail(c echo.Context, code int, messageID string) error {
	return c.JSON(code, map[string]string{
		"detail": i18n.T(c.Request().Context(), messageID),
	})
}

// FieldErrors writes field-keyed error messages with status 400.
func FieldErrors(c echo.Context, errs validation.Errors) error {
	return c.JSON(http.StatusBadRequest, errs)
}

// renderError answers validation and body errors. Anything else is passed
// on to the HTTP error handler.
func renderError(c echo.Context, err error) error {
	if errs, ok := validation.AsErrors(err); ok {
		return FieldErrors(c, errs)
	}
	if errors.Is(err, errInvalidBody) {
		return Detail(c, http.StatusBadRequest, "error_invalid_body")
	}
	return err
}

// HTTPErrorHandler renders uncaught errors as {"detail": "..."}.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	ctx := c.Request().Context()
	code := http.StatusInternalServerError
	message := i18n.T(ctx, "error_internal")

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch {
		case code == http.StatusNotFound:
			message = i18n.T(ctx, "error_not_found")
		case code >= http.StatusInternalServerError:
		default:
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		}
	}

	if code >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"detail": message})
	}
	if err != nil {
		slog.Error("error_response_failed", "error", err)
	}
}

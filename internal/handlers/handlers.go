// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/ticketing/internal/i18n"
	"codeberg.org/oliverandrich/ticketing/internal/repository"
	"github.com/labstack/echo/v4"
)

// Handlers contains the handlers not tied to a resource.
type Handlers struct {
	repo *repository.Repository
}

// New creates a new Handlers instance.
func New(repo *repository.Repository) *Handlers {
	return &Handlers{repo: repo}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.repo.DB().PingContext(ctx); err != nil {
		slog.Error("health_check_failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": i18n.T(ctx, "health_unavailable"),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"message": i18n.T(ctx, "health_ok"),
	})
}

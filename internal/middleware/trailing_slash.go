// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AppendTrailingSlash redirects GET and HEAD requests below prefix that lack
// a trailing slash to the canonical URL with one. Other methods are left
// alone, as a redirect would drop their body.
func AppendTrailingSlash(prefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			path := r.URL.Path
			if (r.Method == http.MethodGet || r.Method == http.MethodHead) &&
				strings.HasPrefix(path, prefix) && !strings.HasSuffix(path, "/") {
				newURL := path + "/"
				if r.URL.RawQuery != "" {
					newURL += "?" + r.URL.RawQuery
				}
				return c.Redirect(http.StatusMovedPermanently, newURL)
			}
			return next(c)
		}
	}
}

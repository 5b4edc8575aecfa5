// Package middleware holds the Echo middleware shared across routes.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders hardens responses for a single-user server bound to
// localhost: the UI is the only intended consumer, so framing by other
// pages is refused outright and nothing may be cached or sniffed.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")

			// Engine state changes on every decision; a cached
			// snapshot is a wrong snapshot.
			if strings.HasPrefix(c.Request().URL.Path, "/api") {
				h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
				h.Set("Pragma", "no-cache")
			}

			return next(c)
		}
	}
}

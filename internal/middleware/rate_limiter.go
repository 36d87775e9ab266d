package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RateLimiter limits the sign-in routes to 10 requests per second per IP,
// with a burst of the same size.
func RateLimiter() echo.MiddlewareFunc {
	config := middleware.RateLimiterConfig{
		// In-memory; fine for a single instance.
		Store: middleware.NewRateLimiterMemoryStore(10),

		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			FromContext(c.Request().Context()).Warn("Sign-in rate limit exceeded", "ip", identifier)
			return c.String(http.StatusTooManyRequests, "Too many sign-in attempts. Please try again later.")
		},
	}
	return middleware.RateLimiterWithConfig(config)
}

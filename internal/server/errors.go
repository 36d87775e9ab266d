package server

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/middleware"
	"github.com/labstack/echo/v4"
)

// ErrorPage renders the error view for a failed request.
type ErrorPage func(c echo.Context, status int) error

// setupErrorHandling installs the application's HTTP error handler.
//
// Handlers return errors instead of rendering them. Unhandled errors are
// logged with a stack trace and answered with a 500; *echo.HTTPError keeps its
// status. Either way the error page is rendered in place of the failed
// response, so the URL the user sees does not change.
func setupErrorHandling(e *echo.Echo, page ErrorPage) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		// Already answered, usually by the access log middleware handling
		// the error before echo hands it here a second time.
		if c.Response().Committed {
			return
		}
		logger := middleware.FromContext(c.Request().Context())

		status := http.StatusInternalServerError
		message := http.StatusText(status)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			}
			attrs := []any{"status", status, "path", c.Request().URL.Path, "error", he.Message}
			if he.Internal != nil {
				attrs = append(attrs, "internal", he.Internal)
			}
			if status >= http.StatusInternalServerError {
				logger.Error("HTTP error", attrs...)
			} else {
				logger.Warn("HTTP error", attrs...)
			}
		} else {
			logger.Error("Internal Server Error (Unhandled)",
				"path", c.Request().URL.Path,
				"error", err.Error(),
				"stack_trace", string(debug.Stack()),
			)
		}

		// HEAD requests get no page body.
		if page == nil || c.Request().Method == http.MethodHead {
			_ = c.String(status, message)
			return
		}

		h := c.Response().Header()
		h.Set(echo.HeaderCacheControl, "no-store, no-cache")
		h.Set("Pragma", "no-cache")
		if rerr := page(c, status); rerr != nil {
			logger.Error("Failed to render error page", "error", rerr)
			if !c.Response().Committed {
				_ = c.String(status, message)
			}
		}
	}
}

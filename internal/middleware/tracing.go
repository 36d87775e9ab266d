package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request. The span (and any incoming
// traceparent) is available from the request context to everything after it.
func Tracing(tp trace.TracerProvider) echo.MiddlewareFunc {
	return echo.WrapMiddleware(otelhttp.NewMiddleware("userownsdata",
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	))
}

// NoStore marks responses as uncacheable. Pages carrying access tokens
// must never be stored by the browser or a proxy.
func NoStore() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderCacheControl, "no-store, no-cache")
			h.Set("Pragma", "no-cache")
			return next(c)
		}
	}
}

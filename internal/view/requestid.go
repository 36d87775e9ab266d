package view

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"
)

// RequestID identifies the current request for support purposes. It is the
// W3C traceparent of the span this server started for the request when
// tracing is on, otherwise the X-Request-ID assigned to the request. A
// caller's span, propagated but not continued, does not count.
func RequestID(c echo.Context) string {
	sc := trace.SpanContextFromContext(c.Request().Context())
	if sc.IsValid() && !sc.IsRemote() {
		return "00-" + sc.TraceID().String() + "-" + sc.SpanID().String() + "-" + sc.TraceFlags().String()
	}
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

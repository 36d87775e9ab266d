package view_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/view"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestRequestID(t *testing.T) {
	e := echo.New()

	t.Run("uses the active trace", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

		ctx, span := tp.Tracer("test").Start(context.Background(), "request")
		defer span.End()

		req := httptest.NewRequest(http.MethodGet, "/Home/Error", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		rec.Header().Set(echo.HeaderXRequestID, "ignored")
		c := e.NewContext(req, rec)

		id := view.RequestID(c)
		require.Regexp(t, regexp.MustCompile(`^00-[0-9a-f]{32}-[0-9a-f]{16}-01$`), id)
		assert.Contains(t, id, span.SpanContext().TraceID().String())
	})

	t.Run("ignores a caller's span that was not continued", func(t *testing.T) {
		remote := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35},
			SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa},
			TraceFlags: trace.FlagsSampled,
			Remote:     true,
		})
		ctx := trace.ContextWithRemoteSpanContext(context.Background(), remote)

		req := httptest.NewRequest(http.MethodGet, "/Home/Error", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Response().Header().Set(echo.HeaderXRequestID, "req-456")

		assert.Equal(t, "req-456", view.RequestID(c))
	})

	t.Run("falls back to the response request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/Home/Error", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Response().Header().Set(echo.HeaderXRequestID, "req-123")

		assert.Equal(t, "req-123", view.RequestID(c))
	})

	t.Run("falls back to the incoming header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/Home/Error", nil)
		req.Header.Set(echo.HeaderXRequestID, "from-proxy")
		c := e.NewContext(req, httptest.NewRecorder())

		assert.Equal(t, "from-proxy", view.RequestID(c))
	})

	t.Run("empty when nothing identifies the request", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		assert.Empty(t, view.RequestID(c))
	})
}

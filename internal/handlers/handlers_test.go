package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/auth"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/handlers"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/middleware"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/rendering"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "a-very-secret-key-for-testing-!"

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Renderer = rendering.NewUniversalRenderer()
	e.Validator = handlers.NewValidator()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(testSessionSecret))))
	return e
}

// asUser puts a signed-in identity on the context, standing in for the
// Identity middleware.
func asUser(id *auth.Identity) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.UserContextKey, id)
			return next(c)
		}
	}
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// flashes decodes the flash session set by a response.
func flashes(t *testing.T, rec *httptest.ResponseRecorder, key string) []interface{} {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	var flash *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "flash-session" {
			flash = c
		}
	}
	if flash != nil {
		req.AddCookie(flash)
	}
	sess, err := sessions.NewCookieStore([]byte(testSessionSecret)).Get(req, "flash-session")
	require.NoError(t, err)
	return sess.Flashes(key)
}

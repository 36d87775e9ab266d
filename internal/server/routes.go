package server

import (
	"net/http"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/middleware"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/web"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	rateLimiter := middleware.RateLimiter()
	noStore := middleware.NoStore()

	s.E.GET("/", s.homeHandler.Index)
	s.E.GET("/Home", s.homeHandler.Index)
	s.E.GET("/Home/Index", s.homeHandler.Index)
	s.E.GET("/Home/Embed", s.homeHandler.Embed, middleware.RequireAuth(), noStore)
	s.E.GET("/Home/Error", s.homeHandler.Error, noStore)

	s.E.GET("/auth/signin", s.authHandler.SignIn, rateLimiter)
	s.E.GET(s.Cfg.GetCallbackPath(), s.authHandler.Callback, rateLimiter, noStore)
	s.E.GET("/auth/signout", s.authHandler.SignOut)

	s.E.StaticFS("/static", echo.MustSubFS(web.FS, "static"))

	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	if s.metrics != nil {
		s.E.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

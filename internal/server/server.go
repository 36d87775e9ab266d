package server

import (
	"errors"
	"fmt"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/config"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/handlers"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/metrics"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/middleware"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/powerbi"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/rendering"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel/trace"
)

// IdentityProvider signs users in with Azure AD and refreshes their tokens.
// *auth.Provider implements it.
type IdentityProvider interface {
	handlers.OIDCProvider
	middleware.TokenRefresher
}

// Dependencies are the services the HTTP layer is built from.
type Dependencies struct {
	Config   config.Provider
	PowerBI  powerbi.Service
	Identity IdentityProvider
	// Optional.
	Embeds   handlers.EmbedRecorder
	Metrics  *metrics.Metrics
	Tracing  trace.TracerProvider
	Sessions sessions.Store
}

// Server holds the echo instance and the handlers mounted on it.
type Server struct {
	E           *echo.Echo
	Cfg         config.Provider
	metrics     *metrics.Metrics
	homeHandler *handlers.HomeHandler
	authHandler *handlers.AuthHandler
}

// New creates a new Server with its middleware chain installed. Call
// RegisterRoutes before serving.
func New(deps Dependencies) (*Server, error) {
	if deps.Config == nil || deps.PowerBI == nil || deps.Identity == nil {
		return nil, errors.New("server: config, power bi service and identity provider are required")
	}

	store := deps.Sessions
	if store == nil {
		var err error
		if store, err = NewSessionStore(deps.Config); err != nil {
			return nil, fmt.Errorf("server: session store: %w", err)
		}
	}

	homeHandler := handlers.NewHomeHandler(deps.PowerBI, deps.Embeds, deps.Config.IsDevelopment())
	authHandler := handlers.NewAuthHandler(deps.Identity, deps.Config.GetAppBaseURL())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = rendering.NewUniversalRenderer()
	e.Validator = handlers.NewValidator()
	setupErrorHandling(e, homeHandler.RenderError)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	if deps.Tracing != nil {
		e.Use(middleware.Tracing(deps.Tracing))
	}
	e.Use(middleware.Logger)
	e.Use(middleware.AccessLog())
	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
	}
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: contentSecurityPolicy,
	}))
	e.Use(session.Middleware(store))
	e.Use(middleware.Identity(deps.Identity))

	return &Server{
		E:           e,
		Cfg:         deps.Config,
		metrics:     deps.Metrics,
		homeHandler: homeHandler,
		authHandler: authHandler,
	}, nil
}

// The report is rendered in an iframe served by app.powerbi.com; the
// powerbi-client and htmx scripts come from public CDNs.
const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' https://cdn.jsdelivr.net https://unpkg.com; " +
	"style-src 'self' 'unsafe-inline'; " +
	"frame-src https://app.powerbi.com https://*.powerbi.com; " +
	"connect-src 'self' https://*.powerbi.com https://*.analysis.windows.net; " +
	"img-src 'self' data:"

package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/auth"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/powerbi"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
)

const UserContextKey = "user"

// SignInPath is where anonymous users are sent by RequireAuth.
const SignInPath = "/auth/signin"

// TokenRefresher turns a stored token into a source that refreshes it.
type TokenRefresher interface {
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
}

// Identity loads the signed-in user from the session, if any. It never
// rejects a request; use RequireAuth for that.
//
// The access token is refreshed before the handler runs so a rotated token
// can still be written to the session cookie. When the refresh fails the
// session is dropped and the request continues anonymously.
func Identity(refresher TokenRefresher) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, tok, err := auth.Current(c)
			if err != nil {
				return next(c)
			}

			ctx := c.Request().Context()
			logger := FromContext(ctx)

			ts := refresher.TokenSource(ctx, tok)
			fresh, err := ts.Token()
			if err != nil {
				logger.Warn("Access token refresh failed, signing user out", "user", id.Username, "error", err)
				if err := auth.Clear(c); err != nil {
					logger.Error("Failed to clear auth session", "error", err)
				}
				return next(c)
			}

			if fresh.AccessToken != tok.AccessToken {
				if err := auth.SaveToken(c, fresh); err != nil {
					logger.Error("Failed to store refreshed token", "error", err)
				} else {
					logger.Debug("Access token refreshed", "user", id.Username, "expiry", fresh.Expiry)
				}
			}

			c.Set(UserContextKey, id)
			ctx = powerbi.WithTokenSource(ctx, oauth2.ReuseTokenSource(fresh, ts))
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireAuth redirects anonymous users to the sign-in route, remembering
// where they were going. It must run after Identity.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				target := SignInPath + "?redirect=" + url.QueryEscape(c.Request().RequestURI)
				return c.Redirect(http.StatusSeeOther, target)
			}
			return next(c)
		}
	}
}

// CurrentUser returns the identity set by Identity, or nil.
func CurrentUser(c echo.Context) *auth.Identity {
	id, _ := c.Get(UserContextKey).(*auth.Identity)
	return id
}

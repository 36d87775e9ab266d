package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/auth"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/middleware"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/view"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// OIDCProvider is the part of auth.Provider the handlers need.
type OIDCProvider interface {
	AuthCodeURL(state, nonce string) string
	Exchange(ctx context.Context, code string) (*auth.Login, error)
	LogoutURL(postLogoutRedirect string) string
}

// AuthHandler handles the Azure AD sign-in and sign-out round trips.
type AuthHandler struct {
	provider OIDCProvider
	baseURL  string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(provider OIDCProvider, baseURL string) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// SignIn handles GET /auth/signin. It remembers where to go afterwards and
// sends the browser to the authorize endpoint.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	pending := auth.PendingLogin{
		State:    uuid.NewString(),
		Nonce:    uuid.NewString(),
		Redirect: safeRedirect(req.Redirect),
	}
	if err := auth.BeginLogin(c, pending); err != nil {
		return fmt.Errorf("begin sign-in: %w", err)
	}
	return c.Redirect(http.StatusFound, h.provider.AuthCodeURL(pending.State, pending.Nonce))
}

// Callback handles the redirect back from Azure AD.
func (h *AuthHandler) Callback(c echo.Context) error {
	logger := middleware.FromContext(c.Request().Context())

	var req CallbackRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid sign-in response").SetInternal(err)
	}

	if req.Error != "" {
		// Typically access_denied when the user declines consent.
		logger.Warn("Sign-in failed at the identity provider", "error", req.Error, "description", req.ErrorDescription)
		view.SetFlashError(c, "Sign-in did not complete. Please try again.")
		return c.Redirect(http.StatusSeeOther, "/")
	}

	pending, err := auth.TakePendingLogin(c)
	if err != nil {
		return err
	}
	if pending.State == "" || req.State != pending.State {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid sign-in state").SetInternal(auth.ErrStateMismatch)
	}

	login, err := h.provider.Exchange(c.Request().Context(), req.Code)
	if err != nil {
		return fmt.Errorf("complete sign-in: %w", err)
	}
	if login.Nonce != pending.Nonce {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid sign-in response").SetInternal(auth.ErrNonceMismatch)
	}

	if err := auth.SaveLogin(c, login.Identity, login.Token); err != nil {
		return fmt.Errorf("store sign-in: %w", err)
	}

	logger.Info("User signed in", "user", login.Identity.Username, "tenant", login.Identity.TenantID)
	view.SetFlashSuccess(c, "Signed in as "+login.Identity.DisplayName()+".")

	target := pending.Redirect
	if target == "" {
		target = "/"
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// SignOut handles GET /auth/signout. The local session is dropped first, then
// the browser is sent to Azure AD to end the single sign-on session.
func (h *AuthHandler) SignOut(c echo.Context) error {
	if err := auth.Clear(c); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	view.SetFlashSuccess(c, "You have been signed out.")

	if h.baseURL == "" {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.Redirect(http.StatusFound, h.provider.LogoutURL(h.baseURL+"/"))
}

// safeRedirect only allows local paths, so the sign-in flow cannot be used
// as an open redirect.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

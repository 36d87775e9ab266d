package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/auth"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/handlers"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeProvider stands in for Azure AD. Its authorize URL carries the state
// and nonce so tests can complete the round trip.
type fakeProvider struct {
	nonce    string
	err      error
	codes    []string
	identity *auth.Identity
}

func (f *fakeProvider) AuthCodeURL(state, nonce string) string {
	f.nonce = nonce
	return "https://login.example.com/authorize?" + url.Values{"state": {state}, "nonce": {nonce}}.Encode()
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (*auth.Login, error) {
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return &auth.Login{
		Identity: f.identity,
		Token:    &oauth2.Token{AccessToken: "user-token"},
		Nonce:    f.nonce,
	}, nil
}

func (f *fakeProvider) LogoutURL(postLogoutRedirect string) string {
	return "https://login.example.com/logout?post_logout_redirect_uri=" + url.QueryEscape(postLogoutRedirect)
}

func setupAuthTest(p *fakeProvider) *echo.Echo {
	e := newTestEcho()
	h := handlers.NewAuthHandler(p, "http://localhost:8080/")
	e.GET("/auth/signin", h.SignIn)
	e.GET("/signin-oidc", h.Callback)
	e.GET("/auth/signout", h.SignOut)
	e.GET("/whoami", func(c echo.Context) error {
		id, _, err := auth.Current(c)
		if err != nil {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, id.Username)
	})
	return e
}

// beginSignIn runs /auth/signin and returns the state and session cookies.
func beginSignIn(t *testing.T, e *echo.Echo, redirect string) (string, []*http.Cookie) {
	t.Helper()
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/auth/signin?redirect="+url.QueryEscape(redirect), nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state, rec.Result().Cookies()
}

func callback(e *echo.Echo, query string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	return serve(e, withCookies(httptest.NewRequest(http.MethodGet, "/signin-oidc?"+query, nil), cookies))
}

// withCookies adds cookies the way a browser would: a later Set-Cookie for
// the same name replaces an earlier one.
func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	latest := map[string]*http.Cookie{}
	var order []string
	for _, c := range cookies {
		if _, seen := latest[c.Name]; !seen {
			order = append(order, c.Name)
		}
		latest[c.Name] = c
	}
	for _, name := range order {
		req.AddCookie(latest[name])
	}
	return req
}

func TestSignIn_Callback(t *testing.T) {
	t.Run("completes the round trip", func(t *testing.T) {
		p := &fakeProvider{identity: megan}
		e := setupAuthTest(p)

		state, cookies := beginSignIn(t, e, "/Home/Embed")
		rec := callback(e, "code=abc&state="+state, cookies)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/Home/Embed", rec.Header().Get("Location"))
		assert.Equal(t, []string{"abc"}, p.codes)
		assert.Equal(t, []interface{}{"Signed in as Megan Bowen."}, flashes(t, rec, "success"))

		who := serve(e, withCookies(httptest.NewRequest(http.MethodGet, "/whoami", nil), rec.Result().Cookies()))
		assert.Equal(t, "meganb@contoso.com", who.Body.String())
	})

	t.Run("rejects a mismatched state", func(t *testing.T) {
		p := &fakeProvider{identity: megan}
		e := setupAuthTest(p)

		_, cookies := beginSignIn(t, e, "/")
		rec := callback(e, "code=abc&state=forged", cookies)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, p.codes, "the code must not be redeemed")
	})

	t.Run("rejects a callback without a pending sign-in", func(t *testing.T) {
		e := setupAuthTest(&fakeProvider{identity: megan})

		rec := callback(e, "code=abc&state=", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a callback without a code", func(t *testing.T) {
		p := &fakeProvider{identity: megan}
		e := setupAuthTest(p)

		state, cookies := beginSignIn(t, e, "/")
		rec := callback(e, "state="+state, cookies)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, p.codes)
	})

	t.Run("rejects a mismatched nonce", func(t *testing.T) {
		p := &fakeProvider{identity: megan}
		e := setupAuthTest(p)

		state, cookies := beginSignIn(t, e, "/")
		p.nonce = "replayed"
		rec := callback(e, "code=abc&state="+state, cookies)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("surfaces exchange failures", func(t *testing.T) {
		p := &fakeProvider{err: errors.New("invalid_grant")}
		e := setupAuthTest(p)

		state, cookies := beginSignIn(t, e, "/")
		rec := callback(e, "code=abc&state="+state, cookies)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("provider errors send the user home with a message", func(t *testing.T) {
		e := setupAuthTest(&fakeProvider{})

		rec := callback(e, "error=access_denied&error_description=cancelled", nil)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
		assert.NotEmpty(t, flashes(t, rec, "error"))
	})
}

func TestSignIn_RedirectTarget(t *testing.T) {
	cases := map[string]string{
		"/Home/Embed":          "/Home/Embed",
		"https://evil.example": "/",
		"//evil.example/path":  "/",
		"/\\evil.example":      "/",
		"":                     "/",
	}
	for redirect, want := range cases {
		t.Run(redirect, func(t *testing.T) {
			p := &fakeProvider{identity: megan}
			e := setupAuthTest(p)

			state, cookies := beginSignIn(t, e, redirect)
			rec := callback(e, "code=abc&state="+state, cookies)

			assert.Equal(t, want, rec.Header().Get("Location"))
		})
	}
}

func TestSignOut(t *testing.T) {
	p := &fakeProvider{identity: megan}
	e := setupAuthTest(p)

	state, cookies := beginSignIn(t, e, "/")
	signedIn := callback(e, "code=abc&state="+state, cookies)

	rec := serve(e, withCookies(httptest.NewRequest(http.MethodGet, "/auth/signout", nil), signedIn.Result().Cookies()))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://login.example.com/logout?post_logout_redirect_uri=http%3A%2F%2Flocalhost%3A8080%2F", rec.Header().Get("Location"))

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionName {
			cleared = c.MaxAge < 0
		}
	}
	assert.True(t, cleared, "the auth session cookie is expired")
}

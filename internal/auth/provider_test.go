package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "6f1c4a2e-0000-0000-0000-00000000c11e"

func signIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return raw
}

// tokenEndpoint fakes the Microsoft identity platform token endpoint.
func tokenEndpoint(t *testing.T, idToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contoso/oauth2/v2.0/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, testClientID, r.PostForm.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "user-access-token",
			"refresh_token": "user-refresh-token",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"id_token":      idToken,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(instance string) *Provider {
	return NewProvider(ProviderConfig{
		Instance:     instance,
		TenantID:     "contoso",
		ClientID:     testClientID,
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/signin-oidc",
		Scopes:       []string{"https://analysis.windows.net/powerbi/api/Report.Read.All"},
	})
}

func TestAuthCodeURL(t *testing.T) {
	p := newTestProvider("https://login.microsoftonline.com/")

	u, err := url.Parse(p.AuthCodeURL("state-1", "nonce-1"))
	require.NoError(t, err)

	assert.Equal(t, "login.microsoftonline.com", u.Host)
	assert.Equal(t, "/contoso/oauth2/v2.0/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "nonce-1", q.Get("nonce"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "query", q.Get("response_mode"))
	assert.Equal(t, "http://localhost:8080/signin-oidc", q.Get("redirect_uri"))
	assert.Equal(t, "openid profile offline_access https://analysis.windows.net/powerbi/api/Report.Read.All", q.Get("scope"))
}

func TestLogoutURL(t *testing.T) {
	p := newTestProvider("https://login.microsoftonline.com")

	assert.Equal(t,
		"https://login.microsoftonline.com/contoso/oauth2/v2.0/logout?post_logout_redirect_uri=http%3A%2F%2Flocalhost%3A8080%2F",
		p.LogoutURL("http://localhost:8080/"))
	assert.Equal(t, "https://login.microsoftonline.com/contoso/oauth2/v2.0/logout", p.LogoutURL(""))
}

func TestExchange(t *testing.T) {
	now := time.Now()

	t.Run("extracts the identity from the id token", func(t *testing.T) {
		idToken := signIDToken(t, jwt.MapClaims{
			"aud":                testClientID,
			"exp":                now.Add(time.Hour).Unix(),
			"sub":                "subject",
			"name":               "Megan Bowen",
			"preferred_username": "meganb@contoso.com",
			"oid":                "0b0c0d0e-0000-0000-0000-000000000001",
			"tid":                "72f988bf-0000-0000-0000-000000000000",
			"nonce":              "nonce-1",
		})
		srv := tokenEndpoint(t, idToken)
		p := newTestProvider(srv.URL)

		login, err := p.Exchange(context.Background(), "the-code")
		require.NoError(t, err)

		assert.Equal(t, "Megan Bowen", login.Identity.Name)
		assert.Equal(t, "meganb@contoso.com", login.Identity.Username)
		assert.Equal(t, "0b0c0d0e-0000-0000-0000-000000000001", login.Identity.ObjectID)
		assert.Equal(t, "72f988bf-0000-0000-0000-000000000000", login.Identity.TenantID)
		assert.Equal(t, "nonce-1", login.Nonce)
		assert.Equal(t, "user-access-token", login.Token.AccessToken)
		assert.Equal(t, "user-refresh-token", login.Token.RefreshToken)
	})

	t.Run("rejects a token issued for another client", func(t *testing.T) {
		idToken := signIDToken(t, jwt.MapClaims{
			"aud": "someone-else",
			"exp": now.Add(time.Hour).Unix(),
		})
		srv := tokenEndpoint(t, idToken)
		p := newTestProvider(srv.URL)

		_, err := p.Exchange(context.Background(), "the-code")
		assert.ErrorContains(t, err, "invalid id token")
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		idToken := signIDToken(t, jwt.MapClaims{
			"aud": testClientID,
			"exp": now.Add(-time.Hour).Unix(),
		})
		srv := tokenEndpoint(t, idToken)
		p := newTestProvider(srv.URL)

		_, err := p.Exchange(context.Background(), "the-code")
		assert.ErrorContains(t, err, "invalid id token")
	})

	t.Run("requires an id token", func(t *testing.T) {
		srv := tokenEndpoint(t, "")
		p := newTestProvider(srv.URL)

		_, err := p.Exchange(context.Background(), "the-code")
		assert.ErrorIs(t, err, ErrMissingIDToken)
	})
}

func TestIdentityDisplayName(t *testing.T) {
	assert.Equal(t, "Megan Bowen", (&Identity{Name: "Megan Bowen", Username: "meganb"}).DisplayName())
	assert.Equal(t, "meganb", (&Identity{Username: "meganb"}).DisplayName())
}

package auth

import (
	"fmt"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
)

// SessionName is the cookie/session holding the authentication state.
const SessionName = "auth-session"

const (
	keyIdentity = "identity"
	keyToken    = "token"
	keyState    = "state"
	keyNonce    = "nonce"
	keyRedirect = "redirect"
)

// PendingLogin is the state remembered between the sign-in redirect and the callback.
type PendingLogin struct {
	State    string
	Nonce    string
	Redirect string
}

// BeginLogin stores the state, nonce and post-login target.
func BeginLogin(c echo.Context, p PendingLogin) error {
	sess, err := load(c)
	if err != nil {
		return err
	}
	sess.Values[keyState] = p.State
	sess.Values[keyNonce] = p.Nonce
	sess.Values[keyRedirect] = p.Redirect
	return sess.Save(c.Request(), c.Response())
}

// TakePendingLogin returns and clears the values stored by BeginLogin.
func TakePendingLogin(c echo.Context) (PendingLogin, error) {
	sess, err := load(c)
	if err != nil {
		return PendingLogin{}, err
	}

	state, _ := sess.Values[keyState].(string)
	nonce, _ := sess.Values[keyNonce].(string)
	redirect, _ := sess.Values[keyRedirect].(string)
	delete(sess.Values, keyState)
	delete(sess.Values, keyNonce)
	delete(sess.Values, keyRedirect)

	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return PendingLogin{}, fmt.Errorf("auth: save session: %w", err)
	}
	return PendingLogin{State: state, Nonce: nonce, Redirect: redirect}, nil
}

// SaveLogin persists the signed-in identity and its tokens.
func SaveLogin(c echo.Context, id *Identity, tok *oauth2.Token) error {
	sess, err := load(c)
	if err != nil {
		return err
	}
	sess.Values[keyIdentity] = id
	sess.Values[keyToken] = tok
	return sess.Save(c.Request(), c.Response())
}

// SaveToken replaces the stored token, e.g. after a refresh.
func SaveToken(c echo.Context, tok *oauth2.Token) error {
	sess, err := load(c)
	if err != nil {
		return err
	}
	sess.Values[keyToken] = tok
	return sess.Save(c.Request(), c.Response())
}

// Current returns the signed-in identity and token, or ErrNotAuthenticated.
func Current(c echo.Context) (*Identity, *oauth2.Token, error) {
	sess, err := load(c)
	if err != nil {
		return nil, nil, err
	}

	id, _ := sess.Values[keyIdentity].(*Identity)
	tok, _ := sess.Values[keyToken].(*oauth2.Token)
	if id == nil || tok == nil {
		return nil, nil, ErrNotAuthenticated
	}
	return id, tok, nil
}

// Clear removes the authentication session.
func Clear(c echo.Context) error {
	sess, err := load(c)
	if err != nil {
		return err
	}
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

func load(c echo.Context) (*sessions.Session, error) {
	sess, err := session.Get(SessionName, c)
	if sess == nil {
		return nil, fmt.Errorf("auth: load session: %w", err)
	}
	// A cookie that no longer decodes (rotated secret, expired file) yields a
	// fresh session, which is treated as signed out.
	return sess, nil
}

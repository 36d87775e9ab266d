package server

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/config"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
)

// sessionMaxAge bounds how long a browser stays signed in without visiting.
const sessionMaxAge = 8 * 60 * 60

// NewSessionStore builds the session store selected by configuration.
//
// Separate signing and encryption keys are derived from the session secret:
// sessions hold OAuth2 tokens and must not be readable by the browser.
// Tokens easily exceed the 4KB cookie limit, so the filesystem store (which
// only puts an id in the cookie) is the default.
func NewSessionStore(cfg config.Provider) (sessions.Store, error) {
	hashKey, blockKey, err := deriveKeys(cfg.GetSessionSecret())
	if err != nil {
		return nil, err
	}

	opts := &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.GetAppBaseURL(), "https://"),
		SameSite: http.SameSiteLaxMode,
	}

	switch cfg.GetSessionStore() {
	case "cookie":
		store := sessions.NewCookieStore(hashKey, blockKey)
		store.Options = opts
		return store, nil
	default:
		store := sessions.NewFilesystemStore(cfg.GetSessionDir(), hashKey, blockKey)
		store.MaxLength(0)
		store.Options = opts
		return store, nil
	}
}

func deriveKeys(secret string) (hashKey, blockKey []byte, err error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("userownsdata session keys"))
	hashKey = make([]byte, 32)
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(r, hashKey); err != nil {
		return nil, nil, fmt.Errorf("derive session hash key: %w", err)
	}
	if _, err := io.ReadFull(r, blockKey); err != nil {
		return nil, nil, fmt.Errorf("derive session block key: %w", err)
	}
	return hashKey, blockKey, nil
}

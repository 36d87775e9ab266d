package auth

import (
	"encoding/gob"

	"golang.org/x/oauth2"
)

// Identity is the signed-in user as described by the ID token.
type Identity struct {
	ObjectID string
	Name     string
	Username string
	TenantID string
}

// DisplayName prefers the full name over the login name.
func (i *Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Username
}

func init() {
	// Session values are gob encoded.
	gob.Register(&Identity{})
	gob.Register(&oauth2.Token{})
}

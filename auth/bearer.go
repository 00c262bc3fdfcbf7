package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// AuthenticatorFunc adapts a token check that needs no context.
type AuthenticatorFunc func(token string) (identity string, err error)

// Authenticate calls f(token).
func (f AuthenticatorFunc) Authenticate(_ context.Context, token string) (string, error) {
	return f(token)
}

// BearerAuth returns an Authenticator backed by validate. validate is called
// once per Flight call and must be safe for concurrent use.
func BearerAuth(validate func(token string) (identity string, err error)) Authenticator {
	return AuthenticatorFunc(validate)
}

var errUnknownToken = errors.New("unknown token")

// StaticTokens returns an Authenticator for a fixed token to identity map,
// as loaded from configuration. The map is copied. Tokens are compared in
// constant time.
func StaticTokens(tokens map[string]string) Authenticator {
	known := make([]staticToken, 0, len(tokens))
	for token, identity := range tokens {
		known = append(known, staticToken{token: []byte(token), identity: identity})
	}
	return AuthenticatorFunc(func(token string) (string, error) {
		candidate := []byte(token)
		for _, k := range known {
			if subtle.ConstantTimeCompare(k.token, candidate) == 1 {
				return k.identity, nil
			}
		}
		return "", errUnknownToken
	})
}

type staticToken struct {
	token    []byte
	identity string
}

// Package auth provides bearer-token authentication and per-identity rate
// limiting for the product search Flight server.
package auth

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/metadata"
)

var (
	errNoToken     = errors.New("missing bearer token")
	errNotBearer   = errors.New("authorization header must use the Bearer scheme")
	errBadToken    = errors.New("invalid bearer token")
	errNoIdentity = errors.New("authenticator returned an empty identity")
)

// Authenticator maps a bearer token to the identity of its caller. The
// identity keys the rate limiter and appears in search logs.
// Implementations must be safe for concurrent use.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

type identityKey struct{}

// WithIdentity returns ctx carrying the caller identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller identity, or "" for calls that were
// not authenticated.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey{}).(string)
	return identity
}

// bearerToken reads the token of the first authorization header in md.
// The scheme is matched without regard to case.
func bearerToken(md metadata.MD) (string, error) {
	values := md.Get("authorization")
	if len(values) == 0 || values[0] == "" {
		return "", errNoToken
	}
	scheme, token, ok := strings.Cut(values[0], " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errNotBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errNoToken
	}
	return token, nil
}

// identify authenticates the incoming call and returns ctx with the caller
// identity attached. The authenticator's own error is not surfaced to the
// client.
func identify(ctx context.Context, authenticator Authenticator) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	token, err := bearerToken(md)
	if err != nil {
		return ctx, err
	}
	identity, err := authenticator.Authenticate(ctx, token)
	if err != nil {
		return ctx, errBadToken
	}
	if identity == "" {
		return ctx, errNoIdentity
	}
	return WithIdentity(ctx, identity), nil
}

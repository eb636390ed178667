// Package session exposes the authentication collaborator consumed by the
// gateway: "get the current bearer token, or nothing". Token refresh and
// storage live outside this module.
package session

import "context"

// TokenProvider supplies the current bearer token for backend calls.
// An empty token with a nil error means "no session".
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Static is a TokenProvider returning a fixed token.
type Static string

// Token implements TokenProvider.
func (s Static) Token(context.Context) (string, error) {
	return string(s), nil
}

// ProviderFunc adapts a function to the TokenProvider interface.
type ProviderFunc func(ctx context.Context) (string, error)

// Token implements TokenProvider.
func (f ProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

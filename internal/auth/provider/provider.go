package provider

import (
	"context"

	"role-gate/internal/auth"
)

// OAuthProvider defines the contract for both hops of the flow.
// Implementations return identity facts only and never decide
// whether a role is granted.
type OAuthProvider interface {
	// Name returns the provider identifier ("discord" or "google").
	Name() string

	// AuthCodeURL returns the authorization URL carrying state.
	AuthCodeURL(state string) string

	// ExchangeCode exchanges the authorization code and returns a
	// normalized identity. Failures are *auth.Error values.
	ExchangeCode(ctx context.Context, code string) (*auth.Identity, error)
}

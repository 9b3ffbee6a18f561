package identity

import (
	"context"
	"errors"
)

// ErrAuth wraps every failure reported by the identity provider:
// bad credentials as well as provider outages.
var ErrAuth = errors.New("authentication failed")

// Identity is the authenticated principal returned by the provider.
type Identity struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Provider is the identity capability the membership registry relies on.
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	// AuthenticateFederated signs in with a credential issued by a third-party
	// provider such as "google.com".
	AuthenticateFederated(ctx context.Context, providerID, idToken string) (*Identity, error)
	// CreateIdentity registers a new email/password identity and signs it in.
	// If the account was created but the sign-in failed, the returned
	// Identity has a UID and no tokens, and the error is nil.
	CreateIdentity(ctx context.Context, email, password string) (*Identity, error)
	// EndSession invalidates every token issued to uid.
	EndSession(ctx context.Context, uid string) error
	// VerifyIDToken returns the UID of a valid, unrevoked ID token.
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

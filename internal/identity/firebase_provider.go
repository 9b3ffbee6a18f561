package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// DefaultFederatedProvider is used when a federated sign-in names no provider.
const DefaultFederatedProvider = "google.com"

// FirebaseProvider implements Provider with the Firebase Admin SDK for
// account management and the Identity Toolkit API for end-user sign-in,
// which the Admin SDK does not expose.
type FirebaseProvider struct {
	authClient *auth.Client
	toolkit    *identitytoolkit.Service
	requestURI string
}

// NewToolkitService creates the Identity Toolkit client for the project's web API key.
func NewToolkitService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*identitytoolkit.Service, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("identitytoolkit.NewService: %w", err)
	}
	return svc, nil
}

// NewFirebaseProvider creates a new FirebaseProvider. requestURI is the
// continue URI reported to the federated provider.
func NewFirebaseProvider(authClient *auth.Client, toolkit *identitytoolkit.Service, requestURI string) *FirebaseProvider {
	return &FirebaseProvider{authClient: authClient, toolkit: toolkit, requestURI: requestURI}
}

func authError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w: %s", op, ErrAuth, apiErr.Message)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrAuth, err)
}

func (p *FirebaseProvider) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := p.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, authError("verify password", err)
	}
	return &Identity{
		UID:          resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

func (p *FirebaseProvider) AuthenticateFederated(ctx context.Context, providerID, idToken string) (*Identity, error) {
	if providerID == "" {
		providerID = DefaultFederatedProvider
	}
	postBody := url.Values{}
	postBody.Set("id_token", idToken)
	postBody.Set("providerId", providerID)

	resp, err := p.toolkit.Relyingparty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          postBody.Encode(),
		RequestUri:        p.requestURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, authError("verify assertion", err)
	}
	if resp.LocalId == "" {
		return nil, fmt.Errorf("verify assertion: %w: no account returned for %s", ErrAuth, providerID)
	}
	return &Identity{
		UID:          resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

func (p *FirebaseProvider) CreateIdentity(ctx context.Context, email, password string) (*Identity, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	record, err := p.authClient.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, fmt.Errorf("create identity: %w: email already in use", ErrAuth)
		}
		return nil, authError("create identity", err)
	}

	// The new account is signed in straight away, like a client-side sign-up.
	// The account exists either way, so a failed sign-in only costs the tokens.
	id, err := p.Authenticate(ctx, email, password)
	if err != nil {
		return &Identity{UID: record.UID, Email: record.Email}, nil
	}
	return id, nil
}

func (p *FirebaseProvider) EndSession(ctx context.Context, uid string) error {
	if err := p.authClient.RevokeRefreshTokens(ctx, uid); err != nil {
		return authError("revoke refresh tokens", err)
	}
	return nil
}

func (p *FirebaseProvider) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := p.authClient.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return "", authError("verify id token", err)
	}
	return token.UID, nil
}

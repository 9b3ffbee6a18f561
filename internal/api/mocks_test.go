package api

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"clubledger-backend-go/internal/identity"
)

// mockProvider implements identity.Provider. ID tokens are verified against
// the tokens map so tests can authenticate requests.
type mockProvider struct {
	mock.Mock
	tokens map[string]string
}

func (m *mockProvider) identityResult(args mock.Arguments) (*identity.Identity, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Identity), args.Error(1)
}

func (m *mockProvider) Authenticate(ctx context.Context, email, password string) (*identity.Identity, error) {
	return m.identityResult(m.Called(ctx, email, password))
}

func (m *mockProvider) AuthenticateFederated(ctx context.Context, providerID, idToken string) (*identity.Identity, error) {
	return m.identityResult(m.Called(ctx, providerID, idToken))
}

func (m *mockProvider) CreateIdentity(ctx context.Context, email, password string) (*identity.Identity, error) {
	return m.identityResult(m.Called(ctx, email, password))
}

func (m *mockProvider) EndSession(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func (m *mockProvider) VerifyIDToken(_ context.Context, idToken string) (string, error) {
	uid, ok := m.tokens[idToken]
	if !ok {
		return "", errors.New("unknown token")
	}
	return uid, nil
}

package core

import (
	"context"

	"clubledger-backend-go/internal/identity"
	"clubledger-backend-go/internal/models"
)

// MembershipRegistry owns user records and the role state machine
// (pending -> member, pending -> rejected).
type MembershipRegistry interface {
	// Register creates an identity and a pending user record. A missing email
	// or password is a no-op returning (nil, nil).
	Register(ctx context.Context, email, password string) (*identity.Identity, error)
	// Login signs in with email and password. Missing input returns (nil, nil).
	Login(ctx context.Context, email, password string) (*identity.Identity, error)
	// LoginWithProvider signs in through a federated provider and creates a
	// pending user record if the identity has none yet.
	LoginWithProvider(ctx context.Context, providerID, idToken string) (*identity.Identity, error)
	Logout(ctx context.Context, uid string) error
	// Accept and Reject patch only the role field, whatever the current role is.
	Accept(ctx context.Context, uid string) error
	Reject(ctx context.Context, uid string) error
	Lookup(ctx context.Context, uid string) (*models.User, error)
	// RequireMember returns the user only if their role is member.
	RequireMember(ctx context.Context, uid string) (*models.User, error)
	// ValidatePayer checks that a user record may be credited with a settlement.
	ValidatePayer(user *models.User) error
}

// EventLedger owns games and their settlement.
type EventLedger interface {
	// CreateGame schedules a pending game at date (YYYY-MM-DD) and timeOfDay
	// (HH:MM). Missing or unparseable input returns ("", nil).
	CreateGame(ctx context.Context, date, timeOfDay, venue string) (string, error)
	Remove(ctx context.Context, gameID string) error
	// PayGame settles the game and credits memberID's total atomically.
	// amount <= 0 or a missing ID is a no-op.
	PayGame(ctx context.Context, gameID string, amount float64, memberID string) error
}

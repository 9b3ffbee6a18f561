package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"clubledger-backend-go/internal/db"
	"clubledger-backend-go/internal/identity"
	"clubledger-backend-go/internal/models"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotMember is returned when an action requires an accepted member.
	ErrNotMember = errors.New("user is not a member")
	// ErrPayerNotMember is returned when a settlement names a payer that is
	// not an accepted member.
	ErrPayerNotMember = errors.New("payer is not a member")
)

// membershipRegistry implements the MembershipRegistry interface.
type membershipRegistry struct {
	provider identity.Provider
	users    db.UserRepository
	logger   *zap.Logger
}

// NewMembershipRegistry creates a new MembershipRegistry instance.
func NewMembershipRegistry(provider identity.Provider, users db.UserRepository, logger *zap.Logger) MembershipRegistry {
	return &membershipRegistry{
		provider: provider,
		users:    users,
		logger:   logger,
	}
}

func (r *membershipRegistry) Register(ctx context.Context, email, password string) (*identity.Identity, error) {
	if email == "" || password == "" {
		r.logger.Debug("Register skipped: email and password are required")
		return nil, nil
	}

	id, err := r.provider.CreateIdentity(ctx, email, password)
	if err != nil {
		r.logger.Error("Failed to create identity", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	if id.IDToken == "" {
		r.logger.Warn("Identity created but not signed in; client must log in", zap.String("uid", id.UID))
	}

	// The identity is not rolled back if this write fails.
	if err := r.users.Put(ctx, models.NewPendingUser(id.UID, email)); err != nil {
		r.logger.Error("Identity created without user record", zap.String("uid", id.UID), zap.Error(err))
		return nil, fmt.Errorf("failed to create user record for '%s': %w", id.UID, err)
	}

	r.logger.Info("User registered", zap.String("uid", id.UID))
	return id, nil
}

func (r *membershipRegistry) Login(ctx context.Context, email, password string) (*identity.Identity, error) {
	if email == "" || password == "" {
		r.logger.Debug("Login skipped: email and password are required")
		return nil, nil
	}
	id, err := r.provider.Authenticate(ctx, email, password)
	if err != nil {
		r.logger.Warn("Login failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return id, nil
}

func (r *membershipRegistry) LoginWithProvider(ctx context.Context, providerID, idToken string) (*identity.Identity, error) {
	if idToken == "" {
		r.logger.Debug("Federated login skipped: provider token is required")
		return nil, nil
	}
	id, err := r.provider.AuthenticateFederated(ctx, providerID, idToken)
	if err != nil {
		r.logger.Warn("Federated login failed", zap.String("providerID", providerID), zap.Error(err))
		return nil, err
	}

	// An existing record keeps its role and total.
	err = r.users.Create(ctx, models.NewPendingUser(id.UID, id.Email))
	switch {
	case errors.Is(err, db.ErrAlreadyExists):
		r.logger.Debug("Federated login for existing user", zap.String("uid", id.UID))
	case err != nil:
		r.logger.Error("Failed to create user record after federated login", zap.String("uid", id.UID), zap.Error(err))
		return nil, fmt.Errorf("failed to create user record for '%s': %w", id.UID, err)
	default:
		r.logger.Info("User registered via federated login", zap.String("uid", id.UID))
	}
	return id, nil
}

func (r *membershipRegistry) Logout(ctx context.Context, uid string) error {
	if err := r.provider.EndSession(ctx, uid); err != nil {
		r.logger.Error("Failed to end session", zap.String("uid", uid), zap.Error(err))
		return err
	}
	return nil
}

func (r *membershipRegistry) Accept(ctx context.Context, uid string) error {
	return r.setRole(ctx, uid, models.RoleMember)
}

func (r *membershipRegistry) Reject(ctx context.Context, uid string) error {
	return r.setRole(ctx, uid, models.RoleRejected)
}

func (r *membershipRegistry) setRole(ctx context.Context, uid string, role models.Role) error {
	if uid == "" {
		r.logger.Debug("Role change skipped: uid is required", zap.String("role", string(role)))
		return nil
	}
	if err := r.users.UpdateRole(ctx, uid, role); err != nil {
		r.logger.Error("Failed to update role", zap.String("uid", uid), zap.String("role", string(role)), zap.Error(err))
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, uid)
		}
		return err
	}
	r.logger.Info("Role updated", zap.String("uid", uid), zap.String("role", string(role)))
	return nil
}

func (r *membershipRegistry) Lookup(ctx context.Context, uid string) (*models.User, error) {
	user, err := r.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, uid)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", uid, err)
	}
	return user, nil
}

func (r *membershipRegistry) RequireMember(ctx context.Context, uid string) (*models.User, error) {
	user, err := r.Lookup(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !user.IsMember() {
		return nil, fmt.Errorf("%w: user '%s' has role %q", ErrNotMember, uid, user.Role)
	}
	return user, nil
}

func (r *membershipRegistry) ValidatePayer(user *models.User) error {
	if user == nil {
		return fmt.Errorf("%w: no user record", ErrPayerNotMember)
	}
	if !user.IsMember() {
		return fmt.Errorf("%w: user '%s' has role %q", ErrPayerNotMember, user.ID, user.Role)
	}
	return nil
}
